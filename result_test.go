package slimtree

import (
	"math"
	"testing"
)

func TestResultAddPairKeepsAscendingOrder(t *testing.T) {
	r := NewResult[*intObj](KNNQueryKind, 3, 0, false)
	for _, v := range []int32{5, 1, 4, 2} {
		obj := intObj(v)
		r.AddPair(&obj, float64(v))
	}
	pairs := r.Pairs()
	if len(pairs) != 4 {
		t.Fatalf("Len = %d, want 4", len(pairs))
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i-1].Distance > pairs[i].Distance {
			t.Fatalf("pairs not ascending: %v", pairs)
		}
	}
}

func TestResultCutWithoutTies(t *testing.T) {
	r := NewResult[*intObj](KNNQueryKind, 2, 0, false)
	for _, v := range []int32{1, 2, 3, 4} {
		obj := intObj(v)
		r.AddPair(&obj, float64(v))
	}
	r.Cut(2)
	if r.Len() != 2 {
		t.Fatalf("Len() after Cut(2) = %d, want 2", r.Len())
	}
	if r.MaximumDistance() != 2 {
		t.Fatalf("MaximumDistance() = %v, want 2", r.MaximumDistance())
	}
}

func TestResultCutWithTies(t *testing.T) {
	r := NewResult[*intObj](KNNQueryKind, 2, 0, true)
	for _, v := range []int32{1, 2, 2, 2, 5} {
		obj := intObj(v)
		r.AddPair(&obj, float64(v))
	}
	r.Cut(2)
	// k=2 keeps {1,2}, but ties at distance 2 extend the cut to include
	// every other distance-2 pair.
	if r.Len() != 4 {
		t.Fatalf("Len() after tied Cut(2) = %d, want 4", r.Len())
	}
}

func TestResultMaximumDistanceRangeQuery(t *testing.T) {
	r := NewResult[*intObj](RangeQueryKind, -1, 7.5, true)
	if r.MaximumDistance() != 7.5 {
		t.Fatalf("MaximumDistance() = %v, want 7.5 (the query radius)", r.MaximumDistance())
	}
}

func TestResultMaximumDistanceUnderfilledKNN(t *testing.T) {
	r := NewResult[*intObj](KNNQueryKind, 5, 0, false)
	obj := intObj(1)
	r.AddPair(&obj, 1.0)
	if !math.IsInf(r.MaximumDistance(), 1) {
		t.Fatalf("MaximumDistance() with only 1/5 results = %v, want +Inf", r.MaximumDistance())
	}
}
