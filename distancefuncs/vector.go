// Package distancefuncs provides concrete slimtree.Object and
// slimtree.DistanceFunction implementations for fixed-dimension feature
// vectors, grounded in the reference Slim-Tree family's weighted
// Minkowski distance classes.
package distancefuncs

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/arboretum-go/slimtree"
)

// Vector is a fixed-dimension feature vector object. It implements
// slimtree.Object through pointer receivers, so trees over Vector are
// instantiated as slimtree.MetricTree[*Vector], with NewVector (or any
// func() *Vector returning a zero value) as the factory.
type Vector struct {
	Features []float64
}

// NewVector wraps an existing slice without copying it.
func NewVector(features []float64) *Vector { return &Vector{Features: features} }

func (v *Vector) SerializedSize() uint32 { return uint32(4 + 8*len(v.Features)) }

func (v *Vector) Serialize(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(v.Features)))
	for i, f := range v.Features {
		binary.LittleEndian.PutUint64(buf[4+i*8:12+i*8], math.Float64bits(f))
	}
}

func (v *Vector) Unserialize(buf []byte) error {
	if len(buf) < 4 {
		return fmt.Errorf("vector: buffer too small for length prefix")
	}
	n := int(binary.LittleEndian.Uint32(buf[0:4]))
	if len(buf) < 4+8*n {
		return fmt.Errorf("vector: buffer too small for %d features", n)
	}
	v.Features = make([]float64, n)
	for i := range v.Features {
		v.Features[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[4+i*8 : 12+i*8]))
	}
	return nil
}

func (v *Vector) Clone() slimtree.Object {
	cp := make([]float64, len(v.Features))
	copy(cp, v.Features)
	return &Vector{Features: cp}
}

func (v *Vector) Equals(other slimtree.Object) bool {
	o, ok := other.(*Vector)
	if !ok || o == nil {
		return false
	}
	if len(v.Features) != len(o.Features) {
		return false
	}
	for i := range v.Features {
		if v.Features[i] != o.Features[i] {
			return false
		}
	}
	return true
}
