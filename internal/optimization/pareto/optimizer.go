package pareto

import (
	"context"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhenwuuu/swarmopt/internal/optimization"
	"github.com/zhenwuuu/swarmopt/internal/optimization/hybrid"
)

// moParams is the adaptive parameter set, clamped to the same valid ranges as
// the single-objective controller.
type moParams struct {
	f, cr, w, ratio float64
}

const (
	fMin, fMax         = 0.1, 2.0
	inertiaMin         = 0.2
	inertiaMax         = 0.95
	ratioMin, ratioMax = 0.05, 0.95
)

// moCandidate is one proposal + evaluation outcome, written by a single
// goroutine during the parallel phase.
type moCandidate struct {
	position  []float64
	velocity  []float64
	raw       []float64
	scores    []float64
	violation float64
	failed    bool // any objective errored or returned a non-finite value
}

// Optimizer runs the hybrid DE/PSO loop for vector-valued objectives,
// replacing the single global best with leaders sampled from a bounded
// non-dominated archive.
type Optimizer struct {
	problem    *optimization.Problem
	cfg        optimization.Config
	log        *zap.Logger
	scalarizer Scalarizer

	pop        optimization.Population
	scores     [][]float64 // oriented objective vectors, lower is better
	bestScores [][]float64
	failed     []bool // individuals whose current position failed to evaluate
	archive    *Archive

	params     moParams
	stagnation int
	stall      int

	curve    []float64
	evals    atomic.Int64
	evalErrs atomic.Int64
}

// New builds a multi-objective optimizer. The scalarizer may be nil; the
// Result then reports the member minimizing the first objective as its best
// solution.
func New(problem *optimization.Problem, cfg optimization.Config, scalarizer Scalarizer) (*Optimizer, error) {
	if problem == nil {
		return nil, optimization.InvalidConfigf("problem is required")
	}
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if n := problem.NumObjectives(); n < 2 {
		return nil, optimization.InvalidConfigf("multi-objective optimizer needs at least 2 objectives, got %d", n)
	}
	cfg, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Optimizer{
		problem:    problem,
		cfg:        cfg,
		log:        cfg.Logger.Named("pareto"),
		scalarizer: scalarizer,
		archive:    NewArchive(cfg.ArchiveSize),
		params: moParams{
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
	o.curve = append(o.curve, o.bestFirstObjective())

	var msg string
	success := true
	iterations := 0

	for it := 1; it <= o.cfg.MaxIterations; it++ {
		cands := o.propose()
		changed := o.applySelection(cands)
		iterations = it
		o.curve = append(o.curve, o.bestFirstObjective())

		if o.cfg.Adaptive {
			o.adapt(changed)
		}
		if changed {
			o.stall = 0
		} else {
			o.stall++
		}

		o.log.Debug("iteration complete",
			zap.Int("iteration", it),
			zap.Int("archive_size", o.archive.Len()),
			zap.Float64("hybrid_ratio", o.params.ratio),
		)

		if o.cfg.Callback != nil {
			pos, fit := o.callbackBest()
			if !o.cfg.Callback(it, pos, fit, o.pop) {
				msg = "stopped by callback"
				break
			}
		}
		if o.stall >= o.cfg.Patience {
			msg = "converged: archive stable"
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

	if o.archive.Len() == 0 {
		success = false
		msg = "no feasible solution found"
	}

	return o.buildResult(iterations, success, msg)
}

func (o *Optimizer) buildResult(iterations int, success bool, msg string) (*optimization.Result, error) {
	res := &optimization.Result{
		Curve:       o.curve,
		Evaluations: int(o.evals.Load()),
		EvalErrors:  int(o.evalErrs.Load()),
		Iterations:  iterations,
		Success:     success,
		Message:     msg,
	}

	front := o.archive.Members()
	res.ParetoFront = make([]optimization.Solution, len(front))
	for i, m := range front {
		res.ParetoFront[i] = optimization.Solution{
			Position:   append([]float64(nil), m.Position...),
			Objectives: append([]float64(nil), m.Objectives...),
		}
	}

	if len(front) > 0 {
		var pick *Member
		if o.scalarizer != nil {
			m, score, err := o.scalarizer.Select(front)
			if err != nil {
				return nil, optimization.WrapError(err, "scalarizer selection failed")
			}
			pick = m
			res.BestFitness = score
		} else {
			pick = front[0]
			for _, m := range front[1:] {
				if m.scores[0] < pick.scores[0] {
					pick = m
				}
			}
			res.BestFitness = pick.Objectives[0]
		}
		res.BestPosition = append([]float64(nil), pick.Position...)
	}

	o.log.Info("optimization finished",
		zap.Bool("success", res.Success),
		zap.String("message", res.Message),
		zap.Int("front_size", len(res.ParetoFront)),
		zap.Int("evaluations", res.Evaluations),
	)
	return res, nil
}

func (o *Optimizer) workers() int {
	if o.cfg.Workers > 0 {
		return o.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// orient maps the k-th raw objective value onto the internal scale where
// lower is better.
func (o *Optimizer) orient(k int, raw float64) float64 {
	if o.problem.MaximizeAt(k) {
		return -raw
	}
	return raw
}

func (o *Optimizer) evaluate(pos []float64) moCandidate {
	nObj := o.problem.NumObjectives()
	c := moCandidate{
		position: pos,
		raw:      make([]float64, nObj),
		scores:   make([]float64, nObj),
	}
	for k := 0; k < nObj; k++ {
		o.evals.Add(1)
		val, err := o.problem.ObjectiveAt(k)(pos)
		if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
			o.evalErrs.Add(1)
			c.scores[k] = math.Inf(1)
			c.failed = true
			if o.problem.MaximizeAt(k) {
				c.raw[k] = math.Inf(-1)
			} else {
				c.raw[k] = math.Inf(1)
			}
			continue
		}
		c.raw[k] = val
		c.scores[k] = o.orient(k, val)
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

func (o *Optimizer) initPopulation() {
	o.pop = optimization.NewPopulation(o.problem, o.cfg.PopulationSize, o.cfg.Seed)
	o.scores = make([][]float64, len(o.pop))
	o.bestScores = make([][]float64, len(o.pop))
	o.failed = make([]bool, len(o.pop))

	cands := make([]moCandidate, len(o.pop))
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
		ind.Objectives = append([]float64(nil), c.raw...)
		ind.Violation = c.violation
		ind.BestPosition = append([]float64(nil), ind.Position...)
		ind.BestObjectives = append([]float64(nil), c.raw...)
		ind.BestViolation = c.violation
		o.scores[i] = append([]float64(nil), c.scores...)
		o.bestScores[i] = append([]float64(nil), c.scores...)
		o.failed[i] = c.failed
		if !c.failed && c.violation == 0 {
			o.archive.Insert(ind.Position, c.raw, c.scores)
		}
	}
}

// propose generates and evaluates one candidate per individual. Leaders are
// sampled from the archive snapshot left by the previous barrier using each
// individual's private RNG stream.
func (o *Optimizer) propose() []moCandidate {
	cands := make([]moCandidate, len(o.pop))
	g := new(errgroup.Group)
	g.SetLimit(o.workers())
	for i := range o.pop {
		i := i
		g.Go(func() error {
			ind := o.pop[i]
			rng := ind.Rand()
			if rng.Float64() < o.params.ratio {
				pos := hybrid.DETrial(rng, o.problem, o.pop, i, o.params.f, o.params.cr)
				cands[i] = o.evaluate(pos)
				return nil
			}
			leaderPos := ind.BestPosition
			if m := o.archive.Leader(rng, o.cfg.LeaderPressure, o.cfg.CrowdingWeight); m != nil {
				leaderPos = m.Position
			}
			pos, vel := hybrid.PSOStep(rng, o.problem, ind, leaderPos, o.params.w, o.cfg.Cognitive, o.cfg.Social)
			c := o.evaluate(pos)
			c.velocity = vel
			cands[i] = c
			return nil
		})
	}
	_ = g.Wait()
	return cands
}

// accept decides whether a candidate replaces the incumbent: feasibility
// first, then dominance; mutually non-dominated pairs are accepted with
// probability one half from the individual's stream.
func (o *Optimizer) accept(ind *optimization.Individual, cScores []float64, cViol float64, iScores []float64, iViol float64) bool {
	switch {
	case cViol == 0 && iViol > 0:
		return true
	case cViol > 0 && iViol == 0:
		return false
	case cViol > 0 && iViol > 0:
		return cViol < iViol
	}
	if dominates(cScores, iScores) {
		return true
	}
	if dominates(iScores, cScores) {
		return false
	}
	return ind.Rand().Float64() < 0.5
}

// applySelection is the serialized end-of-iteration step: replacement,
// personal bests and the archive update. It reports whether the archive
// changed.
func (o *Optimizer) applySelection(cands []moCandidate) bool {
	changed := false
	for i, c := range cands {
		ind := o.pop[i]
		// Failed evaluations are rejected outright; they never replace the
		// incumbent and never reach the archive.
		if !c.failed && (o.failed[i] || o.accept(ind, c.scores, c.violation, o.scores[i], ind.Violation)) {
			copy(ind.Position, c.position)
			if c.velocity != nil {
				copy(ind.Velocity, c.velocity)
			}
			copy(ind.Objectives, c.raw)
			copy(o.scores[i], c.scores)
			ind.Violation = c.violation
			o.failed[i] = false
		}
		if !o.failed[i] && o.accept(ind, o.scores[i], ind.Violation, o.bestScores[i], ind.BestViolation) {
			copy(ind.BestPosition, ind.Position)
			copy(ind.BestObjectives, ind.Objectives)
			copy(o.bestScores[i], o.scores[i])
			ind.BestViolation = ind.Violation
		}
		if !c.failed && c.violation == 0 && o.archive.Insert(c.position, c.raw, c.scores) {
			changed = true
		}
	}
	return changed
}

func (o *Optimizer) adapt(changed bool) {
	if changed {
		o.stagnation = 0
		const recoverRate = 0.05
		o.params.f += recoverRate * (o.cfg.F - o.params.f)
		o.params.w += recoverRate * (o.cfg.Inertia - o.params.w)
		o.params.ratio += recoverRate * (o.cfg.HybridRatio - o.params.ratio)
		return
	}
	o.stagnation++
	threshold := o.cfg.Patience / 3
	if threshold < 3 {
		threshold = 3
	}
	if o.stagnation <= threshold {
		return
	}
	o.params.f = clamp(o.params.f*1.2, fMin, fMax)
	o.params.w = clamp(o.params.w*0.9, inertiaMin, inertiaMax)
	o.params.ratio = clamp(o.params.ratio+0.1, ratioMin, ratioMax)
	o.stagnation = 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// bestFirstObjective returns the best raw value of the first objective over
// the archive, falling back to the population while the archive is empty.
// It feeds the convergence curve.
func (o *Optimizer) bestFirstObjective() float64 {
	best := math.Inf(1)
	found := false
	for _, m := range o.archive.Members() {
		if m.scores[0] < best {
			best = m.scores[0]
			found = true
		}
	}
	if !found {
		for i := range o.pop {
			if !o.failed[i] && o.scores[i][0] < best {
				best = o.scores[i][0]
			}
		}
	}
	if o.problem.MaximizeAt(0) {
		return -best
	}
	return best
}

// callbackBest picks the position/fitness pair reported to the per-iteration
// callback: the archive member minimizing the first objective.
func (o *Optimizer) callbackBest() ([]float64, float64) {
	members := o.archive.Members()
	if len(members) == 0 {
		return nil, math.NaN()
	}
	pick := members[0]
	for _, m := range members[1:] {
		if m.scores[0] < pick.scores[0] {
			pick = m
		}
	}
	return append([]float64(nil), pick.Position...), pick.Objectives[0]
}
