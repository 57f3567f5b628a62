package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhenwuuu/swarmopt/internal/config"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Optimization.WorkerCount = 2
	cfg.Optimization.DefaultPopulation = 30
	cfg.Optimization.DefaultIterations = 50
	cfg.Optimization.MaxConcurrentRuns = 4

	srv := NewServer(cfg, zap.NewNop())
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// pollStatus polls until the optimization leaves the pending/running states or
// the deadline passes.
func pollStatus(t *testing.T, ts *httptest.Server, id string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(fmt.Sprintf("%s/api/v1/status/%s", ts.URL, id))
		require.NoError(t, err)
		body := decodeBody(t, resp)
		switch body["status"] {
		case "pending", "running":
			time.Sleep(20 * time.Millisecond)
		default:
			return body
		}
	}
	t.Fatal("optimization did not finish in time")
	return nil
}

func TestObjectivesEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/objectives")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	items, ok := body["objectives"].([]interface{})
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(items), 5)

	names := make([]string, 0, len(items))
	for _, raw := range items {
		item := raw.(map[string]interface{})
		names = append(names, item["name"].(string))
	}
	assert.Contains(t, names, "sphere")
	assert.Contains(t, names, "pressure-vessel")
	assert.Contains(t, names, "sphere-abs")
}

func TestOptimizeLifecycle(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/optimize", map[string]interface{}{
		"objective":      "sphere",
		"bounds":         [][2]float64{{-5, 5}, {-5, 5}},
		"max_iterations": 60,
		"patience":       200,
		"seed":           42,
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	id, ok := body["optimization_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	final := pollStatus(t, ts, id)
	assert.Equal(t, "completed", final["status"])
	require.NotNil(t, final["result"])

	result := final["result"].(map[string]interface{})
	assert.Equal(t, true, result["success"])
	assert.Less(t, result["best_fitness"].(float64), 1e-3)
	assert.NotNil(t, final["end_time"])
}

func TestOptimizeMultiObjective(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/optimize", map[string]interface{}{
		"objective":      "sphere-abs",
		"bounds":         [][2]float64{{-5, 5}, {-5, 5}},
		"max_iterations": 60,
		"patience":       200,
		"seed":           7,
		"weights":        []float64{0.5, 0.5},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := decodeBody(t, resp)["optimization_id"].(string)

	final := pollStatus(t, ts, id)
	assert.Equal(t, "completed", final["status"])

	result := final["result"].(map[string]interface{})
	front, ok := result["pareto_front"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, front)
}

func TestOptimizeConstrainedObjective(t *testing.T) {
	_, ts := newTestServer(t)

	// pressure-vessel carries default bounds, so none are sent.
	resp := postJSON(t, ts.URL+"/api/v1/optimize", map[string]interface{}{
		"objective":       "pressure-vessel",
		"population_size": 60,
		"max_iterations":  150,
		"patience":        400,
		"seed":            2024,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := decodeBody(t, resp)["optimization_id"].(string)

	final := pollStatus(t, ts, id)
	assert.Equal(t, "completed", final["status"])
}

func TestOptimizeUnknownObjective(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/optimize", map[string]interface{}{
		"objective": "nonexistent",
		"bounds":    [][2]float64{{-1, 1}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Contains(t, body["error"], "unknown objective")
}

func TestOptimizeMissingBounds(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/optimize", map[string]interface{}{
		"objective": "sphere",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/status/opt_missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelOptimization(t *testing.T) {
	_, ts := newTestServer(t)

	// A long run so cancellation lands while it is still going.
	resp := postJSON(t, ts.URL+"/api/v1/optimize", map[string]interface{}{
		"objective":       "rastrigin",
		"bounds":          [][2]float64{{-5.12, 5.12}, {-5.12, 5.12}, {-5.12, 5.12}, {-5.12, 5.12}},
		"population_size": 200,
		"max_iterations":  100000,
		"patience":        1000000,
		"seed":            1,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := decodeBody(t, resp)["optimization_id"].(string)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/v1/optimization/%s", ts.URL, id), nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, delResp.StatusCode)
	delResp.Body.Close()

	final := pollStatus(t, ts, id)
	assert.Equal(t, "cancelled", final["status"])
}

func TestCancelUnknownOptimization(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/optimization/opt_missing", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJSONRPCLifecycle(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/rpc", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "optimization.start",
		"params": []interface{}{map[string]interface{}{
			"objective":      "sphere",
			"bounds":         [][2]float64{{-5, 5}, {-5, 5}},
			"max_iterations": 40,
			"patience":       200,
			"seed":           3,
		}},
	})
	body := decodeBody(t, resp)
	require.Nil(t, body["error"], "unexpected rpc error: %v", body["error"])

	result := body["result"].(map[string]interface{})
	id := result["optimization_id"].(string)
	require.NotEmpty(t, id)

	// Poll over RPC until terminal.
	deadline := time.Now().Add(30 * time.Second)
	var status string
	for time.Now().Before(deadline) {
		resp := postJSON(t, ts.URL+"/rpc", map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      2,
			"method":  "optimization.status",
			"params":  []interface{}{map[string]string{"optimization_id": id}},
		})
		body := decodeBody(t, resp)
		require.Nil(t, body["error"])
		status = body["result"].(map[string]interface{})["status"].(string)
		if status != "pending" && status != "running" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, "completed", status)
}

func TestJSONRPCMethodNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/rpc", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "optimization.bogus",
	})
	body := decodeBody(t, resp)
	require.NotNil(t, body["error"])
	assert.Equal(t, float64(-32601), body["error"].(map[string]interface{})["code"])
}

func TestJSONRPCInvalidVersion(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/rpc", map[string]interface{}{
		"jsonrpc": "1.0",
		"id":      1,
		"method":  "optimization.start",
	})
	body := decodeBody(t, resp)
	require.NotNil(t, body["error"])
	assert.Equal(t, float64(-32600), body["error"].(map[string]interface{})["code"])
}

func TestBuildProblemDefaultBounds(t *testing.T) {
	reg := builtinObjectives()

	p, err := buildProblem(reg["pressure-vessel"], nil)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Dimensions)
	assert.Len(t, p.Constraints, 4)

	_, err = buildProblem(reg["sphere"], nil)
	assert.Error(t, err, "sphere has no default bounds")
}
