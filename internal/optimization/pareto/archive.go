package pareto

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Member is one non-dominated solution held by the archive.
type Member struct {
	Position   []float64
	Objectives []float64 // raw objective values as reported to the caller

	// Crowding is the crowding distance over the current archive;
	// boundary members carry +Inf.
	Crowding float64

	scores []float64 // oriented objectives, lower is better
}

// Archive is a bounded set of mutually non-dominated solutions. It is mutated
// only inside the serialized end-of-iteration step and read concurrently
// during the parallel phase.
type Archive struct {
	capacity int
	members  []*Member
}

// NewArchive creates an archive bounded by capacity.
func NewArchive(capacity int) *Archive {
	return &Archive{capacity: capacity}
}

// Members returns the current archive contents. The slice must not be
// mutated by callers.
func (a *Archive) Members() []*Member { return a.members }

// Len returns the number of archived solutions.
func (a *Archive) Len() int { return len(a.members) }

// Insert offers a candidate to the archive. Dominated candidates are
// rejected; members dominated by the candidate are evicted; if the archive
// then exceeds its capacity, the most crowded members are dropped until the
// bound holds. It reports whether the archive changed.
func (a *Archive) Insert(position, objectives, scores []float64) bool {
	for _, m := range a.members {
		if dominates(m.scores, scores) || floats.Equal(m.scores, scores) {
			return false
		}
	}

	kept := a.members[:0]
	for _, m := range a.members {
		if !dominates(scores, m.scores) {
			kept = append(kept, m)
		}
	}
	a.members = append(kept, &Member{
		Position:   append([]float64(nil), position...),
		Objectives: append([]float64(nil), objectives...),
		scores:     append([]float64(nil), scores...),
	})

	a.updateCrowding()
	for len(a.members) > a.capacity {
		a.evictMostCrowded()
		a.updateCrowding()
	}
	return true
}

// updateCrowding recomputes the crowding distance of every member: per
// objective, boundary members get +Inf and interior members accumulate the
// normalized gap between their neighbors.
func (a *Archive) updateCrowding() {
	n := len(a.members)
	for _, m := range a.members {
		m.Crowding = 0
	}
	if n < 3 {
		for _, m := range a.members {
			m.Crowding = math.Inf(1)
		}
		return
	}

	order := make([]int, n)
	nObj := len(a.members[0].scores)
	for k := 0; k < nObj; k++ {
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(x, y int) bool {
			return a.members[order[x]].scores[k] < a.members[order[y]].scores[k]
		})
		lo := a.members[order[0]].scores[k]
		hi := a.members[order[n-1]].scores[k]
		a.members[order[0]].Crowding = math.Inf(1)
		a.members[order[n-1]].Crowding = math.Inf(1)
		if hi == lo {
			continue
		}
		for j := 1; j < n-1; j++ {
			above := a.members[order[j+1]].scores[k]
			below := a.members[order[j-1]].scores[k]
			a.members[order[j]].Crowding += (above - below) / (hi - lo)
		}
	}
}

// evictMostCrowded removes the member with the smallest crowding distance.
func (a *Archive) evictMostCrowded() {
	victim := 0
	for i, m := range a.members {
		if m.Crowding < a.members[victim].Crowding {
			victim = i
		}
	}
	a.members = append(a.members[:victim], a.members[victim+1:]...)
}
