package optimization

import (
	"go.uber.org/zap"

	"github.com/zhenwuuu/swarmopt/internal/optimization/constraints"
)

// Callback is invoked once per iteration at the end-of-iteration barrier,
// after all candidates have been evaluated and selection has been applied.
// Returning false stops the run after the current iteration; there is no
// mid-iteration cancellation.
type Callback func(iteration int, bestPosition []float64, bestFitness float64, population Population) bool

// Config contains the algorithm configuration for a single optimization run.
// Zero values are replaced by documented defaults; out-of-range values are
// rejected by Validate.
type Config struct {
	// PopulationSize is the fixed number of individuals for the whole run.
	PopulationSize int

	// MaxIterations bounds the number of iterations.
	MaxIterations int

	// F is the differential weight for DE mutation, valid in [0, 2].
	F float64

	// CR is the DE crossover probability, valid in [0, 1].
	CR float64

	// Inertia is the PSO inertia weight w, valid in [0, 1].
	Inertia float64

	// Cognitive and Social are the PSO c1/c2 acceleration weights.
	Cognitive float64
	Social    float64

	// HybridRatio is the per-individual probability of taking the DE path
	// instead of the PSO path, valid in [0, 1].
	HybridRatio float64

	// Adaptive enables stagnation-driven control of F, Inertia and
	// HybridRatio.
	Adaptive bool

	// Tolerance is the minimum best-fitness improvement that counts as
	// progress.
	Tolerance float64

	// Patience is the number of consecutive non-improving iterations after
	// which the run terminates early.
	Patience int

	// Seed seeds the deterministic RNG sub-streams. Zero selects a
	// time-based seed.
	Seed int64

	// Workers bounds parallel candidate evaluation within one iteration.
	// Zero or negative uses GOMAXPROCS.
	Workers int

	// Polish runs a Nelder-Mead refinement from the best position after
	// the main loop. Only applied to unconstrained single-objective runs.
	Polish bool

	// Handler selects the constraint-handling strategy for constrained
	// problems. Nil defaults to feasibility rules when the problem has
	// constraints.
	Handler constraints.Handler

	// ArchiveSize bounds the non-dominated archive (multi-objective only).
	ArchiveSize int

	// LeaderPressure is the probability of diversity-biased leader
	// sampling from the archive instead of uniform sampling, in [0, 1].
	LeaderPressure float64

	// CrowdingWeight is the exponent applied to crowding distances during
	// biased leader sampling. Must be non-negative.
	CrowdingWeight float64

	// Callback, when set, is invoked once per iteration at the barrier.
	Callback Callback

	// Logger receives structured progress logs. Nil defaults to a no-op
	// logger.
	Logger *zap.Logger
}

// DefaultConfig returns the default algorithm configuration.
func DefaultConfig() Config {
	return Config{
		PopulationSize: 50,
		MaxIterations:  200,
		F:              0.7,
		CR:             0.9,
		Inertia:        0.7,
		Cognitive:      1.5,
		Social:         1.5,
		HybridRatio:    0.5,
		Adaptive:       true,
		Tolerance:      1e-8,
		Patience:       30,
		ArchiveSize:    100,
		LeaderPressure: 0.7,
		CrowdingWeight: 1.0,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PopulationSize == 0 {
		c.PopulationSize = def.PopulationSize
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.F == 0 {
		c.F = def.F
	}
	if c.CR == 0 {
		c.CR = def.CR
	}
	if c.Inertia == 0 {
		c.Inertia = def.Inertia
	}
	if c.Cognitive == 0 {
		c.Cognitive = def.Cognitive
	}
	if c.Social == 0 {
		c.Social = def.Social
	}
	if c.HybridRatio == 0 {
		c.HybridRatio = def.HybridRatio
	}
	if c.Tolerance == 0 {
		c.Tolerance = def.Tolerance
	}
	if c.Patience == 0 {
		c.Patience = def.Patience
	}
	if c.ArchiveSize == 0 {
		c.ArchiveSize = def.ArchiveSize
	}
	if c.LeaderPressure == 0 {
		c.LeaderPressure = def.LeaderPressure
	}
	if c.CrowdingWeight == 0 {
		c.CrowdingWeight = def.CrowdingWeight
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Normalize applies defaults and validates the result. It is called once at
// optimizer construction.
func (c Config) Normalize() (Config, error) {
	c = c.withDefaults()
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	// DE mutation needs the target plus three distinct donors.
	if c.PopulationSize < 4 {
		return InvalidConfigf("population size must be at least 4, got %d", c.PopulationSize)
	}
	if c.MaxIterations < 1 {
		return InvalidConfigf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.F < 0 || c.F > 2 {
		return InvalidConfigf("F must be in [0, 2], got %v", c.F)
	}
	if c.CR < 0 || c.CR > 1 {
		return InvalidConfigf("CR must be in [0, 1], got %v", c.CR)
	}
	if c.Inertia < 0 || c.Inertia > 1 {
		return InvalidConfigf("inertia must be in [0, 1], got %v", c.Inertia)
	}
	if c.Cognitive < 0 || c.Social < 0 {
		return InvalidConfigf("cognitive and social weights must be non-negative")
	}
	if c.HybridRatio < 0 || c.HybridRatio > 1 {
		return InvalidConfigf("hybrid ratio must be in [0, 1], got %v", c.HybridRatio)
	}
	if c.Tolerance < 0 {
		return InvalidConfigf("tolerance must be non-negative, got %v", c.Tolerance)
	}
	if c.Patience < 1 {
		return InvalidConfigf("patience must be positive, got %d", c.Patience)
	}
	if c.ArchiveSize < 2 {
		return InvalidConfigf("archive size must be at least 2, got %d", c.ArchiveSize)
	}
	if c.LeaderPressure < 0 || c.LeaderPressure > 1 {
		return InvalidConfigf("leader pressure must be in [0, 1], got %v", c.LeaderPressure)
	}
	if c.CrowdingWeight < 0 {
		return InvalidConfigf("crowding weight must be non-negative, got %v", c.CrowdingWeight)
	}
	return nil
}
