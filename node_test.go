package slimtree

import (
	"encoding/binary"
	"testing"
)

// intObj is a minimal fixed-size Object used to exercise node-level
// mechanics without pulling in a real feature-vector implementation.
type intObj int32

func (o intObj) SerializedSize() uint32 { return 4 }
func (o intObj) Serialize(buf []byte)   { binary.LittleEndian.PutUint32(buf, uint32(int32(o))) }
func (o *intObj) Unserialize(buf []byte) error {
	*o = intObj(int32(binary.LittleEndian.Uint32(buf)))
	return nil
}
func (o intObj) Clone() Object { return &o }
func (o intObj) Equals(other Object) bool {
	p, ok := other.(*intObj)
	return ok && *p == o
}

func newIntObj() *intObj { var o intObj; return &o }

func newTestPage(size int) *Page {
	return &Page{id: 1, buf: make([]byte, size)}
}

func TestNodeFormatAndType(t *testing.T) {
	p := newTestPage(256)
	n := FormatNode(p, NodeLeaf, 0)
	if n.Type() != NodeLeaf {
		t.Fatalf("Type() = %v, want NodeLeaf", n.Type())
	}
	if n.NumEntries() != 0 {
		t.Fatalf("NumEntries() = %d, want 0", n.NumEntries())
	}
	if !p.Dirty() {
		t.Fatal("FormatNode should mark the page dirty")
	}
}

func TestNodeAddAndGetLeafEntry(t *testing.T) {
	p := newTestPage(256)
	n := FormatNode(p, NodeLeaf, 0)

	obj := intObj(42)
	buf := make([]byte, obj.SerializedSize())
	obj.Serialize(buf)

	idx := n.AddLeafEntry(1.5, nil, buf)
	if idx != 0 {
		t.Fatalf("AddLeafEntry index = %d, want 0", idx)
	}
	if n.NumEntries() != 1 {
		t.Fatalf("NumEntries() = %d, want 1", n.NumEntries())
	}

	got := n.GetLeafEntry(0)
	if got.DistanceToRep != 1.5 {
		t.Fatalf("DistanceToRep = %v, want 1.5", got.DistanceToRep)
	}

	var decoded intObj
	if err := decoded.Unserialize(n.GetObject(0)); err != nil {
		t.Fatalf("Unserialize: %v", err)
	}
	if decoded != 42 {
		t.Fatalf("decoded object = %v, want 42", decoded)
	}
}

func TestNodeWithFieldDistances(t *testing.T) {
	p := newTestPage(512)
	n := FormatNode(p, NodeLeaf, 2)

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 7)
	fd := []float64{3.25, -1.5}
	idx := n.AddLeafEntry(0, fd, buf)
	if idx < 0 {
		t.Fatal("AddLeafEntry failed unexpectedly")
	}

	got := n.GetLeafEntry(0).FieldDistances
	if len(got) != 2 || got[0] != 3.25 || got[1] != -1.5 {
		t.Fatalf("FieldDistances = %v, want [3.25 -1.5]", got)
	}
}

func TestNodeAddLeafEntryCapacityRejection(t *testing.T) {
	p := newTestPage(64) // deliberately tiny
	n := FormatNode(p, NodeLeaf, 0)

	buf := make([]byte, 4)
	added := 0
	for i := 0; i < 100; i++ {
		if n.AddLeafEntry(float64(i), nil, buf) < 0 {
			break
		}
		added++
	}
	if added == 0 {
		t.Fatal("expected at least one entry to fit in a 64-byte page")
	}
	if n.AddLeafEntry(0, nil, buf) >= 0 {
		t.Fatal("expected the node to report full once its page is exhausted")
	}
}

func TestNodeIndexEntryRoundTrip(t *testing.T) {
	p := newTestPage(256)
	n := FormatNode(p, NodeIndex, 0)

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 9)
	idx := n.AddIndexEntry(77, 2.0, 5.0, 12, buf)
	if idx != 0 {
		t.Fatalf("AddIndexEntry index = %d, want 0", idx)
	}

	e := n.GetIndexEntry(0)
	if e.ChildPageID != 77 || e.DistanceToParentRep != 2.0 || e.Radius != 5.0 || e.NEntries != 12 {
		t.Fatalf("GetIndexEntry = %+v, unexpected", e)
	}

	e.Radius = 9.0
	n.SetIndexEntry(0, e)
	if n.GetIndexEntry(0).Radius != 9.0 {
		t.Fatal("SetIndexEntry did not persist")
	}
}

func TestNodeRemoveEntryShiftsDown(t *testing.T) {
	p := newTestPage(512)
	n := FormatNode(p, NodeLeaf, 0)

	for i := 0; i < 4; i++ {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(i))
		n.AddLeafEntry(float64(i), nil, buf)
	}

	n.RemoveEntry(1) // remove the entry that held value 1

	if n.NumEntries() != 3 {
		t.Fatalf("NumEntries() = %d, want 3", n.NumEntries())
	}
	var vals []uint32
	for i := 0; i < n.NumEntries(); i++ {
		vals = append(vals, binary.LittleEndian.Uint32(n.GetObject(i)))
	}
	want := []uint32{0, 2, 3}
	for i, v := range want {
		if vals[i] != v {
			t.Fatalf("vals = %v, want %v", vals, want)
		}
	}
}

func TestNodeRemoveAll(t *testing.T) {
	p := newTestPage(256)
	n := FormatNode(p, NodeLeaf, 0)
	buf := make([]byte, 4)
	n.AddLeafEntry(0, nil, buf)
	n.AddLeafEntry(1, nil, buf)

	n.RemoveAll()
	if n.NumEntries() != 0 {
		t.Fatalf("NumEntries() after RemoveAll = %d, want 0", n.NumEntries())
	}
	if n.FreeSpace() != p.Size()-nodeHeaderSize {
		t.Fatalf("FreeSpace() after RemoveAll = %d, want %d", n.FreeSpace(), p.Size()-nodeHeaderSize)
	}
}

func TestNodeMinimumRadiusLeaf(t *testing.T) {
	p := newTestPage(256)
	n := FormatNode(p, NodeLeaf, 0)
	buf := make([]byte, 4)
	n.AddLeafEntry(0, nil, buf)
	n.AddLeafEntry(3.5, nil, buf)
	n.AddLeafEntry(1.2, nil, buf)

	if got := n.MinimumRadius(); got != 3.5 {
		t.Fatalf("MinimumRadius() = %v, want 3.5", got)
	}
}

func TestNodeMinimumRadiusIndex(t *testing.T) {
	p := newTestPage(256)
	n := FormatNode(p, NodeIndex, 0)
	buf := make([]byte, 4)
	n.AddIndexEntry(1, 2.0, 1.0, 3, buf) // covers up to 3.0
	n.AddIndexEntry(2, 1.0, 0.5, 2, buf) // covers up to 1.5

	if got := n.MinimumRadius(); got != 3.0 {
		t.Fatalf("MinimumRadius() = %v, want 3.0", got)
	}
}

func TestNodeRepresentativeIndex(t *testing.T) {
	p := newTestPage(256)
	n := FormatNode(p, NodeLeaf, 0)
	buf := make([]byte, 4)
	n.AddLeafEntry(2.0, nil, buf)
	n.AddLeafEntry(0, nil, buf)
	n.AddLeafEntry(1.0, nil, buf)

	if got := n.RepresentativeIndex(); got != 1 {
		t.Fatalf("RepresentativeIndex() = %d, want 1", got)
	}
}

func TestNodeTotalObjectCount(t *testing.T) {
	p := newTestPage(256)
	n := FormatNode(p, NodeIndex, 0)
	buf := make([]byte, 4)
	n.AddIndexEntry(1, 0, 1.0, 5, buf)
	n.AddIndexEntry(2, 1.0, 1.0, 7, buf)

	if got := n.TotalObjectCount(); got != 12 {
		t.Fatalf("TotalObjectCount() = %d, want 12", got)
	}
}
