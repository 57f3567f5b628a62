package hybrid

// Adaptive parameter control. Stagnation beyond a threshold boosts
// exploration: F goes up, inertia goes down and the hybrid ratio shifts
// toward DE. Steady improvement decays the parameters back toward their
// configured values. Every parameter stays clamped to its valid range.

const (
	fMin, fMax         = 0.1, 2.0
	inertiaMin         = 0.2
	inertiaMax         = 0.95
	ratioMin, ratioMax = 0.05, 0.95

	boostF     = 1.2
	decayW     = 0.9
	shiftRatio = 0.1

	// recoverRate eases parameters back toward the configured baseline
	// after an improving iteration.
	recoverRate = 0.05
)

// adaptThreshold is the stagnation count that triggers an exploration boost.
func (o *Optimizer) adaptThreshold() int {
	if t := o.cfg.Patience / 3; t > 3 {
		return t
	}
	return 3
}

func (o *Optimizer) adapt(improved bool) {
	if improved {
		o.stagnation = 0
		o.params.f += recoverRate * (o.cfg.F - o.params.f)
		o.params.w += recoverRate * (o.cfg.Inertia - o.params.w)
		o.params.ratio += recoverRate * (o.cfg.HybridRatio - o.params.ratio)
		return
	}

	o.stagnation++
	if o.stagnation <= o.adaptThreshold() {
		return
	}
	o.params.f = clamp(o.params.f*boostF, fMin, fMax)
	o.params.w = clamp(o.params.w*decayW, inertiaMin, inertiaMax)
	o.params.ratio = clamp(o.params.ratio+shiftRatio, ratioMin, ratioMax)
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
