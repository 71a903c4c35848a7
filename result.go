package slimtree

import "math"

// QueryKind distinguishes a range query from a k-nearest-neighbour query
// inside a Result's descriptor.
type QueryKind int

const (
	RangeQueryKind QueryKind = iota
	KNNQueryKind
)

// ResultPair owns one matched object together with its distance to the
// query sample.
type ResultPair[T Object] struct {
	Object   T
	Distance float64
}

// Result holds an ordered sequence of ResultPair sorted ascending by
// distance, together with the query descriptor that produced it.
type Result[T Object] struct {
	Kind      QueryKind
	K         int // requested result count; -1 for range queries
	Radius    float64
	AllowTies bool

	pairs []ResultPair[T]
}

// NewResult builds an empty Result for the given descriptor.
func NewResult[T Object](kind QueryKind, k int, radius float64, allowTies bool) *Result[T] {
	return &Result[T]{Kind: kind, K: k, Radius: radius, AllowTies: allowTies}
}

// Len returns the number of pairs currently held.
func (r *Result[T]) Len() int { return len(r.pairs) }

// Pairs returns the result's pairs in ascending distance order. The
// returned slice is owned by the Result; callers must not mutate it.
func (r *Result[T]) Pairs() []ResultPair[T] { return r.pairs }

// AddPair inserts (object, distance) in its sorted position (insertion
// sort -- result sets are small relative to a tree's fanout, so this
// stays cheap in practice).
func (r *Result[T]) AddPair(object T, distance float64) {
	pair := ResultPair[T]{Object: object, Distance: distance}
	idx := len(r.pairs)
	for idx > 0 && r.pairs[idx-1].Distance > distance {
		idx--
	}
	r.pairs = append(r.pairs, ResultPair[T]{})
	copy(r.pairs[idx+1:], r.pairs[idx:])
	r.pairs[idx] = pair
}

// Cut keeps only the first k pairs. If AllowTies is set, pairs beyond k
// that are distance-equal to pairs[k-1] are also kept.
func (r *Result[T]) Cut(k int) {
	if k < 0 || len(r.pairs) <= k {
		return
	}
	end := k
	if r.AllowTies && k > 0 {
		tie := r.pairs[k-1].Distance
		for end < len(r.pairs) && r.pairs[end].Distance == tie {
			end++
		}
	}
	r.pairs = r.pairs[:end]
}

// MaximumDistance returns the distance of the last kept pair, or +Inf if
// fewer than K pairs have been collected or K<0. For a range query
// (RangeQueryKind) it is always the query Radius.
func (r *Result[T]) MaximumDistance() float64 {
	if r.Kind == RangeQueryKind {
		return r.Radius
	}
	if r.K < 0 || len(r.pairs) < r.K {
		return math.Inf(1)
	}
	if len(r.pairs) == 0 {
		return math.Inf(1)
	}
	return r.pairs[len(r.pairs)-1].Distance
}
