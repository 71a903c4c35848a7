package slimtree

import "testing"

func TestMemoryLeafNodeInsertSortedOrder(t *testing.T) {
	m := NewMemoryLeafNode[*intObj](4096, 0)

	order := []int32{5, 1, 4, 2, 3}
	for _, v := range order {
		obj := intObj(v)
		if !m.Add(&obj, float64(v), nil) {
			t.Fatalf("Add(%d) failed unexpectedly", v)
		}
	}

	if m.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", m.Len())
	}
	for i := 0; i < m.Len(); i++ {
		obj, dist := m.ObjectAt(i)
		if int32(*obj) != int32(dist) {
			t.Fatalf("entry %d: object %v inconsistent with distance %v", i, *obj, dist)
		}
		if i > 0 {
			_, prevDist := m.ObjectAt(i - 1)
			if prevDist > dist {
				t.Fatalf("entries not sorted ascending: %v before %v", prevDist, dist)
			}
		}
	}
}

func TestMemoryLeafNodeRepAndLastObject(t *testing.T) {
	m := NewMemoryLeafNode[*intObj](4096, 0)
	for _, v := range []int32{9, 2, 5} {
		obj := intObj(v)
		m.Add(&obj, float64(v), nil)
	}

	rep, repDist := m.RepObject()
	if *rep != 2 || repDist != 2 {
		t.Fatalf("RepObject() = (%v, %v), want (2, 2)", *rep, repDist)
	}

	last, lastDist := m.LastObject()
	if *last != 9 || lastDist != 9 {
		t.Fatalf("LastObject() = (%v, %v), want (9, 9)", *last, lastDist)
	}
}

func TestMemoryLeafNodeCapacityRejection(t *testing.T) {
	m := NewMemoryLeafNode[*intObj](64, 0) // tiny: only a couple entries fit
	added := 0
	for i := int32(0); i < 50; i++ {
		obj := intObj(i)
		if !m.Add(&obj, float64(i), nil) {
			break
		}
		added++
	}
	if added == 0 {
		t.Fatal("expected at least one entry to fit")
	}
	obj := intObj(999)
	if m.Add(&obj, 999, nil) {
		t.Fatal("expected capacity rejection once the mirror is full")
	}
}

func TestMemoryLeafNodeRemoveAndPopLast(t *testing.T) {
	m := NewMemoryLeafNode[*intObj](4096, 0)
	for _, v := range []int32{1, 2, 3} {
		obj := intObj(v)
		m.Add(&obj, float64(v), nil)
	}

	m.Remove(1) // removes the entry at distance 2
	if m.Len() != 2 {
		t.Fatalf("Len() after Remove = %d, want 2", m.Len())
	}
	_, d := m.ObjectAt(1)
	if d != 3 {
		t.Fatalf("remaining entries = wrong shape, ObjectAt(1) distance = %v, want 3", d)
	}

	last, lastDist := m.PopLast()
	if *last != 3 || lastDist != 3 {
		t.Fatalf("PopLast() = (%v, %v), want (3, 3)", *last, lastDist)
	}
	if m.Len() != 1 {
		t.Fatalf("Len() after PopLast = %d, want 1", m.Len())
	}
}

func TestDrainLeafAndReleaseNodeRoundTrip(t *testing.T) {
	p := newTestPage(512)
	leaf := FormatNode(p, NodeLeaf, 0)

	values := []int32{7, 3, 9, 1}
	for _, v := range values {
		obj := intObj(v)
		buf := make([]byte, obj.SerializedSize())
		obj.Serialize(buf)
		leaf.AddLeafEntry(float64(v), nil, buf)
	}

	mem, err := DrainLeaf[*intObj](leaf, newIntObj)
	if err != nil {
		t.Fatalf("DrainLeaf: %v", err)
	}
	if leaf.NumEntries() != 0 {
		t.Fatal("DrainLeaf should empty the source leaf")
	}
	if mem.Len() != len(values) {
		t.Fatalf("mem.Len() = %d, want %d", mem.Len(), len(values))
	}

	target := FormatNode(newTestPage(512), NodeLeaf, 0)
	if err := mem.ReleaseNode(target); err != nil {
		t.Fatalf("ReleaseNode: %v", err)
	}
	if target.NumEntries() != len(values) {
		t.Fatalf("target.NumEntries() = %d, want %d", target.NumEntries(), len(values))
	}

	// I3: entries must come back out in ascending distance_to_rep order.
	prev := -1.0
	for i := 0; i < target.NumEntries(); i++ {
		d := target.GetLeafEntry(i).DistanceToRep
		if d < prev {
			t.Fatalf("entries not ascending at %d: %v after %v", i, d, prev)
		}
		prev = d
	}
}
