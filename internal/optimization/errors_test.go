package optimization

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError("boom").WithComponent("hybrid").WithOperation("optimize")
	assert.Equal(t, "hybrid: optimize: boom", err.Error())

	assert.Equal(t, "boom", NewError("boom").Error())
	assert.Equal(t, "ran 3 times", NewErrorf("ran %d times", 3).Error())
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored"))

	inner := fmt.Errorf("file not found")
	wrapped := WrapError(inner, "loading state")
	require.NotNil(t, wrapped)
	assert.Equal(t, "loading state: file not found", wrapped.Error())
	assert.True(t, errors.Is(wrapped, inner))
}

func TestWrapErrorKeepsConfigSentinel(t *testing.T) {
	err := WrapError(InvalidConfigf("weights mismatch"), "scalarizer selection failed")
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Contains(t, err.Error(), "weights mismatch")
}

func TestInvalidConfigf(t *testing.T) {
	err := InvalidConfigf("F must be in [0, 2], got %v", 3.0)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Contains(t, err.Error(), "F must be in [0, 2]")
}
