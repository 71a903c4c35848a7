package distancefuncs

import "testing"

func TestVectorSerializeRoundTrip(t *testing.T) {
	v := NewVector([]float64{1, -2.5, 3.25, 0})
	buf := make([]byte, v.SerializedSize())
	v.Serialize(buf)

	got := &Vector{}
	if err := got.Unserialize(buf); err != nil {
		t.Fatalf("Unserialize: %v", err)
	}
	if !got.Equals(v) {
		t.Fatalf("round trip mismatch: got %v, want %v", got.Features, v.Features)
	}
}

func TestVectorUnserializeRejectsTruncatedBuffer(t *testing.T) {
	v := NewVector([]float64{1, 2, 3})
	buf := make([]byte, v.SerializedSize())
	v.Serialize(buf)

	got := &Vector{}
	if err := got.Unserialize(buf[:len(buf)-1]); err == nil {
		t.Fatal("Unserialize on a truncated buffer should fail")
	}
}

func TestEuclideanDistance(t *testing.T) {
	d := &Euclidean{}
	a, b := NewVector([]float64{0, 0}), NewVector([]float64{3, 4})
	if got := d.Distance(a, b); got != 5 {
		t.Fatalf("Distance = %v, want 5", got)
	}
	if d.DistanceCount() != 1 {
		t.Fatalf("DistanceCount() = %d, want 1", d.DistanceCount())
	}
}

func TestEuclideanWeightedDistance(t *testing.T) {
	d := &Euclidean{}
	if err := d.SetWeights([]float64{1, 0}); err != nil {
		t.Fatalf("SetWeights: %v", err)
	}
	a, b := NewVector([]float64{0, 0}), NewVector([]float64{3, 4})
	if got := d.Distance(a, b); got != 3 {
		t.Fatalf("Distance under weights=[1,0] = %v, want 3 (y component masked out)", got)
	}
}

func TestEuclideanRejectsEmptyWeights(t *testing.T) {
	d := &Euclidean{}
	if err := d.SetWeights(nil); err == nil {
		t.Fatal("SetWeights(nil) should be rejected")
	}
}

func TestManhattanDistance(t *testing.T) {
	d := &Manhattan{}
	a, b := NewVector([]float64{0, 0}), NewVector([]float64{3, 4})
	if got := d.Distance(a, b); got != 7 {
		t.Fatalf("Distance = %v, want 7", got)
	}
}

func TestManhattanSatisfiesTriangleInequality(t *testing.T) {
	d := &Manhattan{}
	a := NewVector([]float64{0, 0})
	b := NewVector([]float64{3, 1})
	c := NewVector([]float64{5, 5})
	ab, bc, ac := d.Distance(a, b), d.Distance(b, c), d.Distance(a, c)
	if ac > ab+bc+1e-9 {
		t.Fatalf("triangle inequality violated: d(a,c)=%v > d(a,b)+d(b,c)=%v", ac, ab+bc)
	}
}

func TestEuclideanDistanceMismatchedLengthPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Distance over mismatched-length vectors should panic")
		}
	}()
	d := &Euclidean{}
	d.Distance(NewVector([]float64{1, 2}), NewVector([]float64{1, 2, 3}))
}

func TestEuclideanDistanceNonNegativeAndIdentity(t *testing.T) {
	d := &Euclidean{}
	a := NewVector([]float64{1.5, -2.25})
	if got := d.Distance(a, a); got != 0 {
		t.Fatalf("Distance(a,a) = %v, want 0", got)
	}
	b := NewVector([]float64{-4, 9})
	if got := d.Distance(a, b); got < 0 {
		t.Fatalf("Distance = %v, want non-negative", got)
	}
	if d.Distance(a, b) != d.Distance(b, a) {
		t.Fatal("Distance is not symmetric")
	}
}

func TestResetStatistics(t *testing.T) {
	d := &Euclidean{}
	d.Distance(NewVector([]float64{0}), NewVector([]float64{1}))
	if d.DistanceCount() == 0 {
		t.Fatal("DistanceCount should be nonzero after a call")
	}
	d.ResetStatistics()
	if d.DistanceCount() != 0 {
		t.Fatalf("DistanceCount() after reset = %d, want 0", d.DistanceCount())
	}
}

