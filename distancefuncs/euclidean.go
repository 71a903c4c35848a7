package distancefuncs

import (
	"fmt"
	"math"

	"github.com/arboretum-go/slimtree"
)

// Euclidean is the weighted L2 distance over Vector, grounded in the
// reference family's EuclideanDistanceWeighted: sqrt(sum_i w_i*(a_i-b_i)^2),
// with unit weights until SetWeights installs a vector of its own.
type Euclidean struct {
	slimtree.Counting
	weights []float64
}

var _ slimtree.DistanceFunction[*Vector] = (*Euclidean)(nil)

func (e *Euclidean) Distance(a, b *Vector) float64 {
	if len(a.Features) != len(b.Features) {
		panic(fmt.Sprintf("distancefuncs: vector length mismatch (%d vs %d)", len(a.Features), len(b.Features)))
	}
	e.Tick()
	var sum float64
	for i, av := range a.Features {
		w := 1.0
		if i < len(e.weights) {
			w = e.weights[i]
		}
		d := av - b.Features[i]
		sum += w * d * d
	}
	return math.Sqrt(sum)
}

func (e *Euclidean) SetWeights(w []float64) error {
	if len(w) == 0 {
		return slimtree.NewError(slimtree.ErrInvariant, "weight vector cannot be empty")
	}
	e.weights = append([]float64(nil), w...)
	return nil
}

func (e *Euclidean) Weights() []float64 { return e.weights }
