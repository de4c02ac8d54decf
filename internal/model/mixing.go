package model

import (
	"math"
	"math/rand"
)

// mixingDecay is the per-group-distance weight decay of the age-assortative
// mixing table: same-group pairings get weight 1, pairings between groups a
// distance d apart get mixingDecay^d.
const mixingDecay = 0.2

// MixingTable is the precomputed age-assortative pairing distribution over
// all (female group, male group) combinations, linearized across the
// NumAgeGroups x NumAgeGroups pairs and normalized to sum to 1.
type MixingTable struct {
	probs []float64
	pairs [][2]int // (female group, male group)
}

// NewMixingTable builds the table.
func NewMixingTable() *MixingTable {
	n := NumAgeGroups * NumAgeGroups
	t := &MixingTable{
		probs: make([]float64, 0, n),
		pairs: make([][2]int, 0, n),
	}

	sum := 0.0
	for i := 0; i < NumAgeGroups; i++ {
		for j := 0; j < NumAgeGroups; j++ {
			w := 1.0
			if i != j {
				w = math.Pow(mixingDecay, math.Abs(float64(i-j)))
			}
			t.probs = append(t.probs, w)
			t.pairs = append(t.pairs, [2]int{i, j})
			sum += w
		}
	}
	for i := range t.probs {
		t.probs[i] /= sum
	}
	return t
}

// Prob returns the normalized probability of the (femaleGroup, maleGroup)
// pairing.
func (t *MixingTable) Prob(femaleGroup, maleGroup int) float64 {
	return t.probs[femaleGroup*NumAgeGroups+maleGroup]
}

// Sample draws one (femaleGroup, maleGroup) pairing.
func (t *MixingTable) Sample(rng *rand.Rand) (femaleGroup, maleGroup int) {
	u := rng.Float64()
	acc := 0.0
	for i, p := range t.probs {
		acc += p
		if u < acc {
			return t.pairs[i][0], t.pairs[i][1]
		}
	}
	// Floating-point underflow on the final accumulation step.
	last := t.pairs[len(t.pairs)-1]
	return last[0], last[1]
}
