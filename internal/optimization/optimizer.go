package optimization

import (
	"context"
)

// Optimizer defines the interface for optimization algorithms. A single
// Optimize call owns its population and state exclusively; concurrent calls
// on distinct optimizers are safe.
type Optimizer interface {
	// Optimize runs the optimization to completion. It returns an error
	// only for configuration-time failures; evaluation failures are
	// absorbed into the Result. Context cancellation stops the run at the
	// next end-of-iteration barrier and the partial Result is returned
	// with Success=false.
	Optimize(ctx context.Context) (*Result, error)
}
