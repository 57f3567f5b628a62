package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/zhenwuuu/swarmopt/internal/config"
	apperrors "github.com/zhenwuuu/swarmopt/internal/errors"
	"github.com/zhenwuuu/swarmopt/internal/optimization"
	"github.com/zhenwuuu/swarmopt/internal/optimization/constraints"
	"github.com/zhenwuuu/swarmopt/internal/optimization/hybrid"
	"github.com/zhenwuuu/swarmopt/internal/optimization/pareto"
)

// OptimizationState tracks one optimization job. The state is guarded by the
// server's mutex and safe to read concurrently.
type OptimizationState struct {
	ID          string
	Status      string // "pending", "running", "completed", "failed", "cancelled"
	StartTime   time.Time
	EndTime     *time.Time
	Iteration   int
	Progress    float64
	Best        *optimization.Solution
	BestFitness float64
	Result      *optimization.Result
	CancelFunc  context.CancelFunc
	LastUpdated time.Time
}

// Server implements the HTTP and JSON-RPC surface of the optimization
// service. It manages jobs and provides endpoints to start, monitor and
// cancel them.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	registry map[string]objectiveEntry
	sem      *semaphore.Weighted

	optimizations   map[string]*OptimizationState
	optimizationsMu sync.RWMutex // Protects the optimizations map
}

// NewServer creates a new server instance with the given config and logger.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	maxRuns := cfg.Optimization.MaxConcurrentRuns
	if maxRuns < 1 {
		maxRuns = 1
	}
	return &Server{
		cfg:           cfg,
		logger:        logger,
		registry:      builtinObjectives(),
		sem:           semaphore.NewWeighted(int64(maxRuns)),
		optimizations: make(map[string]*OptimizationState),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/objectives", s.handleObjectives)
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// optimizeRequest is the request body for starting a run. Omitted algorithm
// parameters fall back to engine defaults.
type optimizeRequest struct {
	Objective string       `json:"objective"`
	Bounds    [][2]float64 `json:"bounds"`

	PopulationSize int     `json:"population_size"`
	MaxIterations  int     `json:"max_iterations"`
	F              float64 `json:"f"`
	CR             float64 `json:"cr"`
	Inertia        float64 `json:"inertia"`
	Cognitive      float64 `json:"cognitive"`
	Social         float64 `json:"social"`
	HybridRatio    float64 `json:"hybrid_ratio"`
	Adaptive       *bool   `json:"adaptive"`
	Tolerance      float64 `json:"tolerance"`
	Patience       int     `json:"patience"`
	Seed           int64   `json:"seed"`
	Polish         bool    `json:"polish"`

	ConstraintHandler string  `json:"constraint_handler"` // "feasibility" (default) or "penalty"
	PenaltyFactor     float64 `json:"penalty_factor"`
	PenaltyExponent   float64 `json:"penalty_exponent"`

	ArchiveSize    int       `json:"archive_size"`
	LeaderPressure float64   `json:"leader_pressure"`
	CrowdingWeight float64   `json:"crowding_weight"`
	Weights        []float64 `json:"weights"` // weighted-sum scalarization
}

// toConfig maps the request onto the engine configuration.
func (req *optimizeRequest) toConfig(cfg *config.Config) optimization.Config {
	out := optimization.Config{
		PopulationSize: req.PopulationSize,
		MaxIterations:  req.MaxIterations,
		F:              req.F,
		CR:             req.CR,
		Inertia:        req.Inertia,
		Cognitive:      req.Cognitive,
		Social:         req.Social,
		HybridRatio:    req.HybridRatio,
		Adaptive:       req.Adaptive == nil || *req.Adaptive,
		Tolerance:      req.Tolerance,
		Patience:       req.Patience,
		Seed:           req.Seed,
		Polish:         req.Polish,
		Workers:        cfg.Optimization.WorkerCount,
		ArchiveSize:    req.ArchiveSize,
		LeaderPressure: req.LeaderPressure,
		CrowdingWeight: req.CrowdingWeight,
	}
	if out.PopulationSize == 0 {
		out.PopulationSize = cfg.Optimization.DefaultPopulation
	}
	if out.MaxIterations == 0 {
		out.MaxIterations = cfg.Optimization.DefaultIterations
	}
	if req.ConstraintHandler == "penalty" {
		out.Handler = constraints.NewPenaltyMethod(req.PenaltyFactor, req.PenaltyExponent)
	}
	return out
}

// start validates a request, registers job state and launches the run.
func (s *Server) start(req *optimizeRequest) (*OptimizationState, error) {
	if req.Objective == "" {
		return nil, apperrors.New("objective is required").WithComponent("server")
	}
	entry, ok := s.registry[req.Objective]
	if !ok {
		return nil, apperrors.Errorf("unknown objective %q", req.Objective).WithComponent("server")
	}

	problem, err := buildProblem(entry, req.Bounds)
	if err != nil {
		return nil, apperrors.Wrap(err, "invalid problem definition").WithOperation("optimize")
	}

	engineCfg := req.toConfig(s.cfg)
	engineCfg.Logger = s.logger

	ctx, cancel := context.WithCancel(context.Background())

	id := fmt.Sprintf("opt_%d", time.Now().UnixNano())
	state := &OptimizationState{
		ID:          id,
		Status:      "pending",
		StartTime:   time.Now(),
		CancelFunc:  cancel,
		LastUpdated: time.Now(),
	}

	maxIterations := engineCfg.MaxIterations
	engineCfg.Callback = func(iteration int, bestPosition []float64, bestFitness float64, _ optimization.Population) bool {
		s.optimizationsMu.Lock()
		state.Iteration = iteration
		state.Progress = float64(iteration) / float64(maxIterations)
		state.Best = &optimization.Solution{Position: bestPosition}
		state.BestFitness = bestFitness
		state.LastUpdated = time.Now()
		s.optimizationsMu.Unlock()
		return true
	}

	var opt optimization.Optimizer
	if problem.NumObjectives() > 1 {
		var scalarizer pareto.Scalarizer
		if len(req.Weights) > 0 {
			scalarizer = pareto.WeightedSum{Weights: req.Weights}
		}
		opt, err = pareto.New(problem, engineCfg, scalarizer)
	} else {
		opt, err = hybrid.New(problem, engineCfg)
	}
	if err != nil {
		cancel()
		return nil, err
	}

	s.optimizationsMu.Lock()
	s.optimizations[id] = state
	s.optimizationsMu.Unlock()

	optimizationsStarted.Inc()
	go s.runOptimization(ctx, state, opt)

	return state, nil
}

// runOptimization executes one job in a goroutine, bounded by the concurrency
// semaphore.
func (s *Server) runOptimization(ctx context.Context, state *OptimizationState, opt optimization.Optimizer) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.finish(state, nil, err)
		return
	}
	defer s.sem.Release(1)

	s.optimizationsMu.Lock()
	state.Status = "running"
	state.LastUpdated = time.Now()
	s.optimizationsMu.Unlock()

	result, err := opt.Optimize(ctx)
	s.finish(state, result, err)
}

// finish records the terminal state of a job.
func (s *Server) finish(state *OptimizationState, result *optimization.Result, err error) {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	status := "completed"
	switch {
	case err != nil:
		status = "failed"
		s.logger.Error("optimization failed",
			zap.String("optimization_id", state.ID),
			zap.Error(err),
		)
	case result != nil && !result.Success && result.Message == "context cancelled before completion":
		status = "cancelled"
	case result != nil:
		evaluationsTotal.Add(float64(result.Evaluations))
		if !result.Success {
			s.logger.Warn("optimization finished without success",
				zap.String("optimization_id", state.ID),
				zap.String("message", result.Message),
			)
		}
	}

	if result != nil {
		state.Result = result
		state.Best = &optimization.Solution{Position: result.BestPosition}
		state.BestFitness = result.BestFitness
	}
	state.Status = status
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	optimizationsCompleted.WithLabelValues(status).Inc()
}

// cancel requests cooperative cancellation of a running job.
func (s *Server) cancel(id string) error {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	state, exists := s.optimizations[id]
	if !exists {
		return fmt.Errorf("optimization not found")
	}

	switch state.Status {
	case "completed", "failed", "cancelled":
		return fmt.Errorf("cannot cancel optimization with status: %s", state.Status)
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}
	state.LastUpdated = time.Now()

	s.logger.Info("optimization cancellation requested",
		zap.String("optimization_id", id),
	)
	return nil
}

// status builds the status response payload for a job.
func (s *Server) status(id string) (map[string]interface{}, error) {
	s.optimizationsMu.RLock()
	defer s.optimizationsMu.RUnlock()

	state, exists := s.optimizations[id]
	if !exists {
		return nil, fmt.Errorf("optimization not found")
	}

	response := map[string]interface{}{
		"optimization_id": state.ID,
		"status":          state.Status,
		"iteration":       state.Iteration,
		"progress":        state.Progress,
		"start_time":      state.StartTime.Format(time.RFC3339),
		"last_update":     state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Best != nil {
		response["best_solution"] = map[string]interface{}{
			"position": state.Best.Position,
			"fitness":  state.BestFitness,
		}
	}
	if state.Result != nil {
		response["result"] = state.Result
	}
	return response, nil
}

// handleObjectives lists the registered objectives.
func (s *Server) handleObjectives(w http.ResponseWriter, r *http.Request) {
	type item struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Objectives  int    `json:"objectives"`
		Constraints int    `json:"constraints"`
	}
	items := make([]item, 0, len(s.registry))
	for _, name := range objectiveNames(s.registry) {
		entry := s.registry[name]
		items = append(items, item{
			Name:        name,
			Description: entry.Description,
			Objectives:  len(entry.Objectives),
			Constraints: len(entry.Constraints),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"objectives": items})
}

// handleOptimize handles POST /api/v1/optimize.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	state, err := s.start(&req)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"optimization_id": state.ID,
		"status":          state.Status,
	})
}

// handleStatus handles GET /api/v1/status/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing optimization ID", http.StatusBadRequest)
		return
	}

	response, err := s.status(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(response)
}

// handleCancel handles DELETE /api/v1/optimization/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing optimization ID", http.StatusBadRequest)
		return
	}

	err := s.cancel(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "cancellation requested"})
}

// handleJSONRPC handles JSON-RPC 2.0 requests.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}

	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "optimization.start":
		result, err = s.rpcStart(request.Params)
	case "optimization.status":
		result, err = s.rpcStatus(request.Params)
	case "optimization.cancel":
		result, err = s.rpcCancel(request.Params)
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) rpcStart(params []json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("missing required parameters")
	}
	var req optimizeRequest
	if err := json.Unmarshal(params[0], &req); err != nil {
		return nil, fmt.Errorf("invalid parameter format: %v", err)
	}
	state, err := s.start(&req)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"optimization_id": state.ID,
		"status":          state.Status,
	}, nil
}

type rpcIDParams struct {
	OptimizationID string `json:"optimization_id"`
}

func (s *Server) rpcStatus(params []json.RawMessage) (interface{}, error) {
	id, err := parseRPCID(params)
	if err != nil {
		return nil, err
	}
	return s.status(id)
}

func (s *Server) rpcCancel(params []json.RawMessage) (interface{}, error) {
	id, err := parseRPCID(params)
	if err != nil {
		return nil, err
	}
	if err := s.cancel(id); err != nil {
		return nil, err
	}
	return map[string]string{"status": "cancellation requested"}, nil
}

func parseRPCID(params []json.RawMessage) (string, error) {
	if len(params) == 0 {
		return "", fmt.Errorf("missing required parameters")
	}
	var p rpcIDParams
	if err := json.Unmarshal(params[0], &p); err != nil {
		return "", fmt.Errorf("invalid parameter format: %v", err)
	}
	if p.OptimizationID == "" {
		return "", fmt.Errorf("optimization_id is required")
	}
	return p.OptimizationID, nil
}

// respondWithError sends a JSON-RPC 2.0 error response.
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("request error",
		zap.Int("code", code),
		zap.String("message", message),
	)

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Close cancels all running optimizations.
func (s *Server) Close() error {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	for _, opt := range s.optimizations {
		if opt.CancelFunc != nil {
			opt.CancelFunc()
		}
	}
	return nil
}
