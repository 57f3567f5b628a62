// Package hybrid implements a population-based optimizer that mixes
// Differential Evolution and Particle Swarm Optimization update rules with
// adaptive parameter control, greedy selection and pluggable constraint
// handling.
package hybrid

import (
	"context"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhenwuuu/swarmopt/internal/optimization"
	"github.com/zhenwuuu/swarmopt/internal/optimization/constraints"
)

// feasibilityEps is the violation below which a solution is reported
// feasible in the Result.
const feasibilityEps = 1e-9

// params holds the adaptive parameter set for the current iteration.
type params struct {
	f, cr, w, ratio float64
}

// incumbent tracks the global best solution.
type incumbent struct {
	position  []float64
	score     float64
	fitness   float64
	violation float64
	ok        bool
}

// candidate is the outcome of one proposal + evaluation in the parallel
// phase. It is written by exactly one goroutine and read only after the
// barrier.
type candidate struct {
	position  []float64
	velocity  []float64 // nil for DE-path candidates
	score     float64
	fitness   float64
	violation float64
	failed    bool // evaluation error or non-finite objective
}

// Optimizer runs the hybrid DE/PSO loop for a single-objective problem. All
// mutable state is owned by one Optimize call; distinct Optimizers may run
// concurrently.
type Optimizer struct {
	problem  *optimization.Problem
	cfg      optimization.Config
	handler  constraints.Handler
	log      *zap.Logger
	maximize bool

	pop       optimization.Population
	score     []float64 // oriented fitness per individual, lower is better
	bestScore []float64 // oriented personal-best fitness
	failed    []bool    // individuals whose current position failed to evaluate

	params     params
	stagnation int // drives adaptive control, reset on exploration boosts
	stall      int // drives early termination, reset only on improvement

	best     incumbent
	curve    []float64
	evals    atomic.Int64
	evalErrs atomic.Int64
}

// New builds an optimizer for a single-objective problem. Configuration
// errors are reported here, before any evaluation happens.
func New(problem *optimization.Problem, cfg optimization.Config) (*Optimizer, error) {
	if problem == nil {
		return nil, optimization.InvalidConfigf("problem is required")
	}
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if n := problem.NumObjectives(); n != 1 {
		return nil, optimization.InvalidConfigf("hybrid optimizer handles one objective, got %d (use pareto for vector objectives)", n)
	}
	cfg, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	handler := cfg.Handler
	if handler == nil && problem.Constrained() {
		handler = constraints.NewFeasibilityRules()
	}
	return &Optimizer{
		problem:  problem,
		cfg:      cfg,
		handler:  handler,
		log:      cfg.Logger.Named("hybrid"),
		maximize: problem.MaximizeAt(0),
		params: params{
			f:     cfg.F,
			cr:    cfg.CR,
			w:     cfg.Inertia,
			ratio: cfg.HybridRatio,
		},
	}, nil
}

// Optimize runs the loop to completion. See optimization.Optimizer for the
// error contract.
func (o *Optimizer) Optimize(ctx context.Context) (*optimization.Result, error) {
	o.initPopulation()
	o.curve = append(o.curve, o.best.fitness)

	var msg string
	success := true
	iterations := 0

	for it := 1; it <= o.cfg.MaxIterations; it++ {
		cands := o.propose(it)
		improved := o.applySelection(cands)
		iterations = it
		o.curve = append(o.curve, o.best.fitness)

		if o.cfg.Adaptive {
			o.adapt(improved)
		}
		if improved {
			o.stall = 0
		} else {
			o.stall++
		}

		o.log.Debug("iteration complete",
			zap.Int("iteration", it),
			zap.Float64("best_fitness", o.best.fitness),
			zap.Float64("best_violation", o.best.violation),
			zap.Float64("f", o.params.f),
			zap.Float64("inertia", o.params.w),
			zap.Float64("hybrid_ratio", o.params.ratio),
		)

		if o.cfg.Callback != nil && !o.cfg.Callback(it, append([]float64(nil), o.best.position...), o.best.fitness, o.pop) {
			msg = "stopped by callback"
			break
		}
		if o.stall >= o.cfg.Patience {
			msg = "converged: no improvement above tolerance"
			break
		}
		select {
		case <-ctx.Done():
			msg = "context cancelled before completion"
			success = false
		default:
		}
		if !success {
			break
		}
	}
	if msg == "" {
		msg = "max iterations reached"
	}

	if o.cfg.Polish && success && !o.problem.Constrained() {
		o.polish()
	}

	if !o.best.ok {
		success = false
		msg = "no valid solution found"
	} else if o.problem.Constrained() && o.best.violation > feasibilityEps {
		success = false
		msg = "no feasible solution found"
	}

	res := &optimization.Result{
		BestPosition:  append([]float64(nil), o.best.position...),
		BestFitness:   o.best.fitness,
		BestViolation: o.best.violation,
		Curve:         o.curve,
		Evaluations:   int(o.evals.Load()),
		EvalErrors:    int(o.evalErrs.Load()),
		Iterations:    iterations,
		Success:       success,
		Message:       msg,
	}
	o.log.Info("optimization finished",
		zap.Bool("success", res.Success),
		zap.String("message", res.Message),
		zap.Int("iterations", res.Iterations),
		zap.Int("evaluations", res.Evaluations),
		zap.Int("eval_errors", res.EvalErrors),
		zap.Float64("best_fitness", res.BestFitness),
	)
	return res, nil
}

// orient maps a raw objective value onto the internal scale where lower is
// better.
func (o *Optimizer) orient(raw float64) float64 {
	if o.maximize {
		return -raw
	}
	return raw
}

// worstFitness is the worst representable raw objective value.
func (o *Optimizer) worstFitness() float64 {
	if o.maximize {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

func (o *Optimizer) workers() int {
	if o.cfg.Workers > 0 {
		return o.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// evaluate scores a position. Failed or non-finite evaluations yield the
// worst representable fitness so the candidate loses every comparison; the
// failure is tallied and the run continues.
func (o *Optimizer) evaluate(pos []float64) candidate {
	c := candidate{position: pos}
	o.evals.Add(1)
	val, err := o.problem.ObjectiveAt(0)(pos)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		o.evalErrs.Add(1)
		c.fitness = o.worstFitness()
		c.score = math.Inf(1)
		c.failed = true
	} else {
		c.fitness = val
		c.score = o.orient(val)
	}
	if o.problem.Constrained() {
		v, errs := o.problem.Violation(pos)
		if errs > 0 {
			o.evalErrs.Add(int64(errs))
		}
		c.violation = v
	}
	return c
}

// initPopulation samples and evaluates the initial population, then seeds the
// personal and global bests at a serial barrier.
func (o *Optimizer) initPopulation() {
	o.pop = optimization.NewPopulation(o.problem, o.cfg.PopulationSize, o.cfg.Seed)
	o.score = make([]float64, len(o.pop))
	o.bestScore = make([]float64, len(o.pop))
	o.failed = make([]bool, len(o.pop))
	o.best = incumbent{
		fitness:   o.worstFitness(),
		score:     math.Inf(1),
		violation: math.Inf(1),
	}

	cands := make([]candidate, len(o.pop))
	g := new(errgroup.Group)
	g.SetLimit(o.workers())
	for i := range o.pop {
		i := i
		g.Go(func() error {
			cands[i] = o.evaluate(o.pop[i].Position)
			return nil
		})
	}
	_ = g.Wait()

	for i, c := range cands {
		ind := o.pop[i]
		ind.Fitness = c.fitness
		ind.Violation = c.violation
		ind.BestPosition = append([]float64(nil), ind.Position...)
		ind.BestFitness = c.fitness
		ind.BestViolation = c.violation
		o.score[i] = c.score
		o.bestScore[i] = c.score
		o.failed[i] = c.failed
		o.updateBest(i)
	}
}

// propose generates and evaluates one candidate per individual. This is the
// only concurrent phase; each goroutine touches exclusively its own slot and
// its individual's private RNG stream, and reads the population snapshot that
// the previous barrier left behind.
func (o *Optimizer) propose(iteration int) []candidate {
	cands := make([]candidate, len(o.pop))
	g := new(errgroup.Group)
	g.SetLimit(o.workers())
	for i := range o.pop {
		i := i
		g.Go(func() error {
			ind := o.pop[i]
			rng := ind.Rand()
			if rng.Float64() < o.params.ratio {
				pos := DETrial(rng, o.problem, o.pop, i, o.params.f, o.params.cr)
				cands[i] = o.evaluate(pos)
			} else {
				pos, vel := PSOStep(rng, o.problem, ind, o.best.position, o.params.w, o.cfg.Cognitive, o.cfg.Social)
				c := o.evaluate(pos)
				c.velocity = vel
				cands[i] = c
			}
			return nil
		})
	}
	_ = g.Wait()
	return cands
}

// better applies the active comparison rule: the constraint handler when one
// is configured, plain oriented-fitness comparison otherwise.
func (o *Optimizer) better(aScore, aViol, bScore, bViol float64) bool {
	if o.handler != nil {
		return o.handler.Better(
			constraints.Candidate{Fitness: aScore, Violation: aViol},
			constraints.Candidate{Fitness: bScore, Violation: bViol},
		)
	}
	return aScore < bScore
}

// applySelection is the serialized end-of-iteration step: greedy replacement,
// personal-best and global-best updates, and the handler's feasibility
// observation. It reports whether the global best improved by more than the
// configured tolerance.
func (o *Optimizer) applySelection(cands []candidate) bool {
	prev := o.best
	feasible := 0

	for i, c := range cands {
		ind := o.pop[i]
		// Failed evaluations are rejected outright; they never reach the
		// comparison rule.
		if !c.failed && (o.failed[i] || o.better(c.score, c.violation, o.score[i], ind.Violation)) {
			copy(ind.Position, c.position)
			if c.velocity != nil {
				copy(ind.Velocity, c.velocity)
			}
			ind.Fitness = c.fitness
			ind.Violation = c.violation
			o.score[i] = c.score
			o.failed[i] = false
		}
		if !o.failed[i] && o.better(o.score[i], ind.Violation, o.bestScore[i], ind.BestViolation) {
			copy(ind.BestPosition, ind.Position)
			ind.BestFitness = ind.Fitness
			ind.BestViolation = ind.Violation
			o.bestScore[i] = o.score[i]
		}
		if !o.failed[i] && ind.Violation == 0 {
			feasible++
		}
		o.updateBest(i)
	}

	if o.handler != nil {
		o.handler.Observe(float64(feasible) / float64(len(o.pop)))
	}

	if !prev.ok {
		return o.best.ok
	}
	return prev.violation-o.best.violation > o.cfg.Tolerance ||
		prev.score-o.best.score > o.cfg.Tolerance
}

// updateBest promotes individual i to global best if it wins the active
// comparison rule. Individuals whose position failed to evaluate are never
// promoted.
func (o *Optimizer) updateBest(i int) {
	if o.failed[i] {
		return
	}
	ind := o.pop[i]
	if o.best.ok && !o.better(o.score[i], ind.Violation, o.best.score, o.best.violation) {
		return
	}
	if o.best.position == nil {
		o.best.position = make([]float64, len(ind.Position))
	}
	copy(o.best.position, ind.Position)
	o.best.score = o.score[i]
	o.best.fitness = ind.Fitness
	o.best.violation = ind.Violation
	o.best.ok = true
}
