package slimtree

import (
	"encoding/binary"
	"math"
)

// NodeType tags a page as carrying index entries or leaf entries. The
// values are the little-endian ASCII pairs "ID" and "LF", matching the
// magic the original Slim-Tree family used for the same purpose.
type NodeType uint16

const (
	NodeIndex NodeType = 0x4449
	NodeLeaf  NodeType = 0x464C
)

// nodeHeaderSize covers the node type tag, the entry count, and an
// explicit heap-usage counter. The spec's external-interface description
// places the entry table immediately after the 6-byte {type,occupation}
// prefix; this implementation extends that prefix by 4 bytes to track
// heap consumption explicitly, because RemoveEntry leaves the removed
// object's bytes in the heap, so heap usage cannot be recomputed from
// the remaining entries.
const nodeHeaderSize = 10

// indexEntrySize is the fixed on-disk size of one IndexEntry: child page
// id (4) + distance to parent representative (8) + radius (8) +
// descendant count (4) + heap offset (4).
const indexEntrySize = 28

// heapPrefixSize is the length prefix stored immediately before every
// object in the heap, letting GetObjectSize recover an object's length
// from its Offset alone (the entry structs defined by the spec carry no
// explicit size field).
const heapPrefixSize = 4

// leafEntrySize returns the fixed on-disk size of one LeafEntry for a
// tree configured with the given pivot count.
func leafEntrySize(pivotCount int) int {
	return 8 + 4 + 8*pivotCount
}

// LeafEntry is the in-memory mirror of one leaf slot.
type LeafEntry struct {
	DistanceToRep  float64
	Offset         uint32
	FieldDistances []float64 // length == the node's configured pivot count
}

// IndexEntry is the in-memory mirror of one index slot.
type IndexEntry struct {
	ChildPageID         uint32
	DistanceToParentRep float64
	Radius              float64
	NEntries            uint32
	Offset              uint32
}

// Node is a typed, non-owning view over a Page: a header plus an entry
// table growing forward from byte nodeHeaderSize, and an object heap
// growing backward from the page end. A Node borrows its Page for its
// lifetime; it never outlives the PageManager handle that produced the
// Page.
type Node struct {
	page       *Page
	pivotCount int
}

// WrapNode views an existing, already-formatted page as a Node. pivotCount
// must match the tree's configured STFOCUS pivot count (0 disables it);
// it only affects how leaf entries are sized and is ignored for index
// nodes.
func WrapNode(p *Page, pivotCount int) *Node {
	return &Node{page: p, pivotCount: pivotCount}
}

// FormatNode initializes a fresh page as an empty node of the given type.
func FormatNode(p *Page, t NodeType, pivotCount int) *Node {
	n := &Node{page: p, pivotCount: pivotCount}
	n.setType(t)
	n.setOccupation(0)
	n.setHeapUsed(0)
	p.MarkDirty()
	return n
}

func (n *Node) buf() []byte { return n.page.buf }

func (n *Node) Type() NodeType {
	return NodeType(binary.LittleEndian.Uint16(n.buf()[0:2]))
}

func (n *Node) setType(t NodeType) {
	binary.LittleEndian.PutUint16(n.buf()[0:2], uint16(t))
}

func (n *Node) NumEntries() int {
	return int(binary.LittleEndian.Uint32(n.buf()[2:6]))
}

func (n *Node) setOccupation(c int) {
	binary.LittleEndian.PutUint32(n.buf()[2:6], uint32(c))
}

func (n *Node) heapUsed() int {
	return int(binary.LittleEndian.Uint32(n.buf()[6:10]))
}

func (n *Node) setHeapUsed(v int) {
	binary.LittleEndian.PutUint32(n.buf()[6:10], uint32(v))
}

// PageID returns the identity of the underlying page.
func (n *Node) PageID() uint32 { return n.page.ID() }

// Page returns the underlying page, e.g. so a caller can release it.
func (n *Node) Page() *Page { return n.page }

func (n *Node) entrySize() int {
	if n.Type() == NodeIndex {
		return indexEntrySize
	}
	return leafEntrySize(n.pivotCount)
}

func (n *Node) entryOffset(idx int) int {
	return nodeHeaderSize + idx*n.entrySize()
}

// FreeSpace returns the number of bytes available for a new entry plus
// its object, per the §4.2 policy: page_size - header - entries - heap.
func (n *Node) FreeSpace() int {
	entriesEnd := nodeHeaderSize + n.NumEntries()*n.entrySize()
	heapStart := n.page.Size() - n.heapUsed()
	return heapStart - entriesEnd
}

// fits reports whether one more entry slot plus an object of objSize
// bytes (with its length prefix) can be added without overflow.
func (n *Node) fits(objSize int) bool {
	need := n.entrySize() + heapPrefixSize + objSize
	return need <= n.FreeSpace()
}

// allocHeap reserves room at the heap frontier for an object of the given
// size, writes its length prefix, copies the payload, and returns the
// payload's offset. Caller must have already verified fits().
func (n *Node) allocHeap(data []byte) uint32 {
	newUsed := n.heapUsed() + heapPrefixSize + len(data)
	frontier := n.page.Size() - newUsed
	binary.LittleEndian.PutUint32(n.buf()[frontier:frontier+4], uint32(len(data)))
	copy(n.buf()[frontier+4:frontier+4+len(data)], data)
	n.setHeapUsed(newUsed)
	return uint32(frontier + heapPrefixSize)
}

// GetObjectSize returns the serialized size of the object stored at idx.
func (n *Node) GetObjectSize(idx int) uint32 {
	off := n.objectOffset(idx)
	return binary.LittleEndian.Uint32(n.buf()[off-heapPrefixSize : off])
}

// GetObject returns the raw serialized bytes of the object at idx. The
// returned slice aliases the page; callers must not retain it past the
// page's release.
func (n *Node) GetObject(idx int) []byte {
	off := n.objectOffset(idx)
	size := n.GetObjectSize(idx)
	return n.buf()[off : off+size]
}

func (n *Node) objectOffset(idx int) uint32 {
	if n.Type() == NodeIndex {
		return n.GetIndexEntry(idx).Offset
	}
	return n.GetLeafEntry(idx).Offset
}

// GetLeafEntry returns a copy of the leaf entry at idx.
func (n *Node) GetLeafEntry(idx int) LeafEntry {
	off := n.entryOffset(idx)
	b := n.buf()
	e := LeafEntry{
		DistanceToRep: bytesToFloat64(b[off : off+8]),
		Offset:        binary.LittleEndian.Uint32(b[off+8 : off+12]),
	}
	if n.pivotCount > 0 {
		e.FieldDistances = make([]float64, n.pivotCount)
		base := off + 12
		for i := 0; i < n.pivotCount; i++ {
			e.FieldDistances[i] = bytesToFloat64(b[base+i*8 : base+i*8+8])
		}
	}
	return e
}

// SetLeafEntry overwrites the leaf entry at idx.
func (n *Node) SetLeafEntry(idx int, e LeafEntry) {
	off := n.entryOffset(idx)
	b := n.buf()
	float64ToBytes(b[off:off+8], e.DistanceToRep)
	binary.LittleEndian.PutUint32(b[off+8:off+12], e.Offset)
	if n.pivotCount > 0 {
		base := off + 12
		for i := 0; i < n.pivotCount; i++ {
			var v float64
			if i < len(e.FieldDistances) {
				v = e.FieldDistances[i]
			}
			float64ToBytes(b[base+i*8:base+i*8+8], v)
		}
	}
	n.page.MarkDirty()
}

// GetIndexEntry returns a copy of the index entry at idx.
func (n *Node) GetIndexEntry(idx int) IndexEntry {
	off := n.entryOffset(idx)
	b := n.buf()
	return IndexEntry{
		ChildPageID:         binary.LittleEndian.Uint32(b[off : off+4]),
		DistanceToParentRep: bytesToFloat64(b[off+4 : off+12]),
		Radius:              bytesToFloat64(b[off+12 : off+20]),
		NEntries:            binary.LittleEndian.Uint32(b[off+20 : off+24]),
		Offset:              binary.LittleEndian.Uint32(b[off+24 : off+28]),
	}
}

// SetIndexEntry overwrites the index entry at idx.
func (n *Node) SetIndexEntry(idx int, e IndexEntry) {
	off := n.entryOffset(idx)
	b := n.buf()
	binary.LittleEndian.PutUint32(b[off:off+4], e.ChildPageID)
	float64ToBytes(b[off+4:off+12], e.DistanceToParentRep)
	float64ToBytes(b[off+12:off+20], e.Radius)
	binary.LittleEndian.PutUint32(b[off+20:off+24], e.NEntries)
	binary.LittleEndian.PutUint32(b[off+24:off+28], e.Offset)
	n.page.MarkDirty()
}

// AddLeafEntry appends a new leaf entry carrying object data, returning
// its index, or -1 if it does not fit without mutating the node.
func (n *Node) AddLeafEntry(distanceToRep float64, fieldDistances []float64, data []byte) int {
	if !n.fits(len(data)) {
		return -1
	}
	off := n.allocHeap(data)
	idx := n.NumEntries()
	n.setOccupation(idx + 1)
	n.SetLeafEntry(idx, LeafEntry{DistanceToRep: distanceToRep, Offset: off, FieldDistances: fieldDistances})
	return idx
}

// AddIndexEntry appends a new index entry carrying the representative's
// object data, returning its index, or -1 if it does not fit.
func (n *Node) AddIndexEntry(childPageID uint32, distanceToParentRep, radius float64, nEntries uint32, data []byte) int {
	if !n.fits(len(data)) {
		return -1
	}
	off := n.allocHeap(data)
	idx := n.NumEntries()
	n.setOccupation(idx + 1)
	n.SetIndexEntry(idx, IndexEntry{
		ChildPageID:         childPageID,
		DistanceToParentRep: distanceToParentRep,
		Radius:              radius,
		NEntries:            nEntries,
		Offset:              off,
	})
	return idx
}

// RemoveEntry deletes the entry at idx, shifting subsequent entries down
// by one slot. The object heap is not compacted; its space is reclaimed
// only by RemoveAll or by a split's fresh target pages.
func (n *Node) RemoveEntry(idx int) {
	count := n.NumEntries()
	sz := n.entrySize()
	b := n.buf()
	dst := nodeHeaderSize + idx*sz
	for i := idx + 1; i < count; i++ {
		src := nodeHeaderSize + i*sz
		copy(b[dst:dst+sz], b[src:src+sz])
		dst += sz
	}
	n.setOccupation(count - 1)
	n.page.MarkDirty()
}

// RemoveAll resets the node to empty, reclaiming the entire heap, while
// preserving its type tag.
func (n *Node) RemoveAll() {
	n.setOccupation(0)
	n.setHeapUsed(0)
	n.page.MarkDirty()
}

// MinimumRadius returns the maximum distance_to_rep across leaf entries,
// or the maximum (distance + radius) across index entries -- the tightest
// bound covering every descendant object.
func (n *Node) MinimumRadius() float64 {
	max := 0.0
	if n.Type() == NodeLeaf {
		for i := 0; i < n.NumEntries(); i++ {
			if d := n.GetLeafEntry(i).DistanceToRep; d > max {
				max = d
			}
		}
		return max
	}
	for i := 0; i < n.NumEntries(); i++ {
		e := n.GetIndexEntry(i)
		if d := e.DistanceToParentRep + e.Radius; d > max {
			max = d
		}
	}
	return max
}

// RepresentativeIndex returns the index of the entry whose distance to
// the node's representative is zero -- i.e. the representative itself,
// by definition physically the first entry added to the node -- or -1 if
// the node is empty.
func (n *Node) RepresentativeIndex() int {
	for i := 0; i < n.NumEntries(); i++ {
		var d float64
		if n.Type() == NodeLeaf {
			d = n.GetLeafEntry(i).DistanceToRep
		} else {
			d = n.GetIndexEntry(i).DistanceToParentRep
		}
		if d == 0 {
			return i
		}
	}
	return -1
}

// TotalObjectCount returns the number of objects a leaf directly holds,
// or the sum of descendant counts recorded in an index node's entries.
func (n *Node) TotalObjectCount() uint32 {
	if n.Type() == NodeLeaf {
		return uint32(n.NumEntries())
	}
	var total uint32
	for i := 0; i < n.NumEntries(); i++ {
		total += n.GetIndexEntry(i).NEntries
	}
	return total
}

func bytesToFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func float64ToBytes(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}
