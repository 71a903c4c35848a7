package slimtree

// memoryEntry is one object held by a MemoryLeafNode, kept alongside its
// distance to the node's (soon to be chosen) representative and any
// global-pivot field distances carried over from the source leaf.
type memoryEntry[T Object] struct {
	object         T
	distance       float64
	fieldDistances []float64
}

// MemoryLeafNode is a transient, in-RAM mirror of a leaf used by split and
// reorganization routines: a source leaf's entries are drained,
// deserialized, and kept sorted ascending by distance to representative,
// so that writing them back out via ReleaseNode re-establishes the I3
// ordering invariant for free.
type MemoryLeafNode[T Object] struct {
	entries    []memoryEntry[T]
	maxSize    int
	usedSize   int
	pivotCount int
}

// NewMemoryLeafNode creates an empty mirror sized for pageSize bytes.
func NewMemoryLeafNode[T Object](pageSize, pivotCount int) *MemoryLeafNode[T] {
	return &MemoryLeafNode[T]{maxSize: pageSize, pivotCount: pivotCount}
}

// DrainLeaf builds a MemoryLeafNode from every entry currently in leaf,
// deserializing each object with newObject, and empties leaf in the
// process (RemoveAll). newObject must return a fresh zero-value T ready
// to receive Unserialize.
func DrainLeaf[T Object](leaf *Node, newObject func() T) (*MemoryLeafNode[T], error) {
	m := NewMemoryLeafNode[T](leaf.Page().Size(), leaf.pivotCount)
	n := leaf.NumEntries()
	for i := 0; i < n; i++ {
		le := leaf.GetLeafEntry(i)
		obj := newObject()
		if err := obj.Unserialize(leaf.GetObject(i)); err != nil {
			return nil, WrapError(ErrInvariant, "deserialize leaf object", err)
		}
		m.insertSorted(obj, le.DistanceToRep, le.FieldDistances)
	}
	leaf.RemoveAll()
	return m, nil
}

func (m *MemoryLeafNode[T]) footprint(obj T) int {
	return leafEntrySize(m.pivotCount) + heapPrefixSize + int(obj.SerializedSize())
}

func (m *MemoryLeafNode[T]) insertSorted(obj T, distance float64, fieldDistances []float64) {
	idx := len(m.entries)
	for idx > 0 && m.entries[idx-1].distance > distance {
		idx--
	}
	m.entries = append(m.entries, memoryEntry[T]{})
	copy(m.entries[idx+1:], m.entries[idx:])
	m.entries[idx] = memoryEntry[T]{object: obj, distance: distance, fieldDistances: fieldDistances}
	m.usedSize += m.footprint(obj)
}

// Add inserts object at the given distance-to-representative, returning
// false without modifying the node if doing so would overflow the page
// this mirror models.
func (m *MemoryLeafNode[T]) Add(object T, distance float64, fieldDistances []float64) bool {
	if m.usedSize+m.footprint(object) > m.maxSize-nodeHeaderSize {
		return false
	}
	m.insertSorted(object, distance, fieldDistances)
	return true
}

// Len returns the number of objects currently held.
func (m *MemoryLeafNode[T]) Len() int { return len(m.entries) }

// Remove deletes the entry at idx.
func (m *MemoryLeafNode[T]) Remove(idx int) {
	m.usedSize -= m.footprint(m.entries[idx].object)
	m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
}

// PopLast removes and returns the entry with the largest distance.
func (m *MemoryLeafNode[T]) PopLast() (T, float64) {
	last := m.entries[len(m.entries)-1]
	m.Remove(len(m.entries) - 1)
	return last.object, last.distance
}

// ObjectAt returns the object held at idx together with its distance.
func (m *MemoryLeafNode[T]) ObjectAt(idx int) (T, float64) {
	e := m.entries[idx]
	return e.object, e.distance
}

// FieldDistancesAt returns the global-pivot field distances recorded
// alongside the object held at idx.
func (m *MemoryLeafNode[T]) FieldDistancesAt(idx int) []float64 {
	return m.entries[idx].fieldDistances
}

// LastObject returns the object with the largest distance (the final
// entry, since entries are kept sorted ascending).
func (m *MemoryLeafNode[T]) LastObject() (T, float64) {
	return m.ObjectAt(len(m.entries) - 1)
}

// RepObject returns the object with the smallest distance.
func (m *MemoryLeafNode[T]) RepObject() (T, float64) {
	return m.ObjectAt(0)
}

// ReleaseNode writes every held object back into target, a freshly
// formatted empty leaf, in ascending distance order -- establishing I3 on
// the output regardless of what order entries were drained in.
func (m *MemoryLeafNode[T]) ReleaseNode(target *Node) error {
	for _, e := range m.entries {
		buf := make([]byte, e.object.SerializedSize())
		e.object.Serialize(buf)
		if target.AddLeafEntry(e.distance, e.fieldDistances, buf) < 0 {
			return NewError(ErrCapacity, "object does not fit while releasing memory leaf node")
		}
	}
	return nil
}
