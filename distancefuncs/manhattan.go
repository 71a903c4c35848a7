package distancefuncs

import (
	"fmt"
	"math"

	"github.com/arboretum-go/slimtree"
)

// Manhattan is the weighted L1 distance over Vector, grounded in the
// reference family's ManhattanDistance: sum_i w_i*|a_i-b_i|, with unit
// weights until SetWeights installs a vector of its own.
type Manhattan struct {
	slimtree.Counting
	weights []float64
}

var _ slimtree.DistanceFunction[*Vector] = (*Manhattan)(nil)

func (m *Manhattan) Distance(a, b *Vector) float64 {
	if len(a.Features) != len(b.Features) {
		panic(fmt.Sprintf("distancefuncs: vector length mismatch (%d vs %d)", len(a.Features), len(b.Features)))
	}
	m.Tick()
	var sum float64
	for i, av := range a.Features {
		w := 1.0
		if i < len(m.weights) {
			w = m.weights[i]
		}
		sum += w * math.Abs(av-b.Features[i])
	}
	return sum
}

func (m *Manhattan) SetWeights(w []float64) error {
	if len(w) == 0 {
		return slimtree.NewError(slimtree.ErrInvariant, "weight vector cannot be empty")
	}
	m.weights = append([]float64(nil), w...)
	return nil
}

func (m *Manhattan) Weights() []float64 { return m.weights }
