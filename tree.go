package slimtree

import (
	"math"
	"sort"
)

// TreeState reports the coarse shape of a tree, per §4.6.6.
type TreeState int

const (
	StateEmpty TreeState = iota
	StateOneLeaf
	StateMultiLevel
)

// MetricTree is the Slim-Tree index: a root pointer, header maintenance,
// and the Add/RangeQuery/NearestQuery operations. It is single-writer
// and does no locking of its own; callers needing concurrent
// readers must provide an external readers-writer lock around the whole
// tree.
type MetricTree[T Object] struct {
	pm         PageManager
	distFn     DistanceFunction[T]
	newObject  func() T
	headerPage *Page
	header     *treeHeader
	pivots     []T
	closed     bool
}

// Open opens an existing tree over pm, or creates a new one formatted
// with cfg if pm reports no user pages yet. newObject must return a
// fresh zero-value T suitable for Unserialize.
func Open[T Object](pm PageManager, distFn DistanceFunction[T], newObject func() T, cfg Config) (*MetricTree[T], error) {
	if cfg.PivotCount < 0 || cfg.PivotCount > MaxPivots {
		return nil, NewError(ErrInvariant, "pivot count out of range")
	}

	hp, err := pm.GetHeaderPage()
	if err != nil {
		return nil, err
	}

	t := &MetricTree[T]{pm: pm, distFn: distFn, newObject: newObject, headerPage: hp}

	if pm.IsEmpty() {
		t.header = initHeader(hp, cfg)
		if err := pm.WritePage(hp); err != nil {
			return nil, err
		}
		return t, nil
	}

	h, err := readHeader(hp)
	if err != nil {
		return nil, err
	}
	t.header = h
	t.pivots = t.loadPivots()
	return t, nil
}

// Close persists a dirty header and releases it, then closes the
// underlying PageManager.
func (t *MetricTree[T]) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.header.dirty {
		t.header.writeTo(t.headerPage)
	}
	if err := t.pm.ReleasePage(t.headerPage, t.header.dirty); err != nil {
		return err
	}
	return t.pm.Close()
}

// State reports the tree's current coarse shape.
func (t *MetricTree[T]) State() TreeState {
	switch {
	case t.header.RootPageID == 0:
		return StateEmpty
	case t.header.Height <= 1:
		return StateOneLeaf
	default:
		return StateMultiLevel
	}
}

// ObjectCount returns the number of objects currently indexed.
func (t *MetricTree[T]) ObjectCount() uint64 { return t.header.ObjectCount }

// Height returns the tree's current height (0 when empty).
func (t *MetricTree[T]) Height() uint32 { return t.header.Height }

// DistanceFunction returns the tree's configured distance function, e.g.
// so a caller can mutate its weights between queries.
func (t *MetricTree[T]) DistanceFunction() DistanceFunction[T] { return t.distFn }

func serializeObject[T Object](o T) []byte {
	buf := make([]byte, o.SerializedSize())
	o.Serialize(buf)
	return buf
}

// --- STFOCUS global pivots -------------------------------------------------

const pivotsOffset = 32

func (t *MetricTree[T]) pivotSlotSize() int {
	if t.header.Config.PivotCount == 0 {
		return 0
	}
	return (t.headerPage.Size() - pivotsOffset) / MaxPivots
}

func (t *MetricTree[T]) loadPivots() []T {
	n := t.header.Config.PivotCount
	if n == 0 {
		return nil
	}
	slot := t.pivotSlotSize()
	b := t.headerPage.Data()
	pivots := make([]T, 0, n)
	for i := 0; i < n; i++ {
		base := pivotsOffset + i*slot
		size := beUint32(b[base : base+4])
		if size == 0 {
			break // not all pivots captured yet
		}
		obj := t.newObject()
		if err := obj.Unserialize(b[base+4 : base+4+int(size)]); err != nil {
			break
		}
		pivots = append(pivots, obj)
	}
	return pivots
}

func (t *MetricTree[T]) capturePivotIfNeeded(obj T) {
	n := t.header.Config.PivotCount
	if n == 0 || len(t.pivots) >= n {
		return
	}
	slot := t.pivotSlotSize()
	data := serializeObject(obj)
	if len(data)+4 > slot {
		return // object too large to serve as an inline pivot; skip silently
	}
	base := pivotsOffset + len(t.pivots)*slot
	b := t.headerPage.Data()
	putUint32(b[base:base+4], uint32(len(data)))
	copy(b[base+4:base+4+len(data)], data)
	t.headerPage.MarkDirty()
	t.pivots = append(t.pivots, obj.Clone().(T))
}

func (t *MetricTree[T]) computeFieldDistances(obj T) []float64 {
	n := t.header.Config.PivotCount
	if n == 0 {
		return nil
	}
	fd := make([]float64, n)
	for i := range fd {
		// Pivots not captured yet get NaN, which fieldDistancesExclude
		// never treats as grounds for exclusion.
		fd[i] = math.NaN()
	}
	for i, pivot := range t.pivots {
		fd[i] = t.distFn.Distance(pivot, obj)
	}
	return fd
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

// --- Add --------------------------------------------------------------

// Add inserts object into the tree.
func (t *MetricTree[T]) Add(object T) error {
	if t.closed {
		return ErrTreeClosed
	}

	entryOverhead := leafEntrySize(t.header.Config.PivotCount) + heapPrefixSize
	if int(object.SerializedSize())+entryOverhead > t.pm.PageSize()-nodeHeaderSize {
		return NewError(ErrCapacity, "object too large for this tree's page size")
	}

	t.capturePivotIfNeeded(object)
	fieldDistances := t.computeFieldDistances(object)

	if t.header.RootPageID == 0 {
		if err := t.addFirstObject(object, fieldDistances); err != nil {
			return err
		}
		t.finishAdd()
		return nil
	}

	promoted, _, err := t.addRecursive(t.header.RootPageID, object, fieldDistances)
	if err != nil {
		return err
	}
	if promoted != nil {
		if err := t.newRoot(promoted); err != nil {
			return err
		}
	}
	t.finishAdd()
	return nil
}

func (t *MetricTree[T]) finishAdd() {
	t.header.ObjectCount++
	t.header.markDirty()
}

func (t *MetricTree[T]) addFirstObject(object T, fieldDistances []float64) error {
	page, err := t.pm.NewPage()
	if err != nil {
		return err
	}
	leaf := FormatNode(page, NodeLeaf, t.header.Config.PivotCount)
	if leaf.AddLeafEntry(0, fieldDistances, serializeObject(object)) < 0 {
		t.pm.ReleasePage(page, false)
		return NewError(ErrInvariant, "first object failed to fit an empty leaf")
	}
	if err := t.pm.ReleasePage(page, true); err != nil {
		return err
	}
	t.header.RootPageID = page.ID()
	t.header.Height = 1
	t.header.NodeCount = 1
	return nil
}

// promotedSplit describes the two children produced when a node the
// caller just inserted into had to split.
type promotedSplit[T Object] struct {
	child1PageID, child2PageID uint32
	rep1, rep2                 T
	radius1, radius2           float64
	nEntries1, nEntries2       uint32
}

// repChange signals that a node's own representative -- the object its
// own parent caches as rep(ie) for the entry pointing at it, per I5 --
// was replaced while handling an insertion somewhere below it. The
// caller (one level up) must refresh its cached copy (object and
// radius) for that child, and keep propagating if the entry it just
// refreshed was itself its own zero-distance anchor entry.
type repChange[T Object] struct {
	rep    T
	radius float64
}

// addRecursive inserts object into the subtree rooted at pageID,
// returning a non-nil promotedSplit if that node had to split, and a
// non-nil repChange if the node's own representative identity changed
// without splitting (see repChange).
func (t *MetricTree[T]) addRecursive(pageID uint32, object T, fieldDistances []float64) (*promotedSplit[T], *repChange[T], error) {
	page, err := t.pm.GetPage(pageID)
	if err != nil {
		return nil, nil, err
	}
	node := WrapNode(page, t.header.Config.PivotCount)

	if node.Type() == NodeLeaf {
		split, err := t.addToLeaf(node, object, fieldDistances)
		return split, nil, err
	}
	return t.addToIndex(node, object, fieldDistances)
}

func (t *MetricTree[T]) repObjectOf(node *Node) (T, error) {
	ridx := node.RepresentativeIndex()
	if ridx < 0 {
		var zero T
		return zero, NewError(ErrInvariant, "node has no representative")
	}
	obj := t.newObject()
	if err := obj.Unserialize(node.GetObject(ridx)); err != nil {
		var zero T
		return zero, WrapError(ErrInvariant, "deserialize representative", err)
	}
	return obj, nil
}

func (t *MetricTree[T]) addToLeaf(leaf *Node, object T, fieldDistances []float64) (*promotedSplit[T], error) {
	var dRep float64
	if leaf.NumEntries() > 0 {
		rep, err := t.repObjectOf(leaf)
		if err != nil {
			t.pm.ReleasePage(leaf.Page(), false)
			return nil, err
		}
		dRep = t.distFn.Distance(rep, object)
	}

	if leaf.AddLeafEntry(dRep, fieldDistances, serializeObject(object)) >= 0 {
		// Keep I3: rebuild the leaf in ascending order if the appended
		// entry landed out of place.
		if n := leaf.NumEntries(); n >= 2 && leaf.GetLeafEntry(n-2).DistanceToRep > dRep {
			mem, err := DrainLeaf(leaf, t.newObject)
			if err == nil {
				err = mem.ReleaseNode(leaf)
			}
			if err != nil {
				t.pm.ReleasePage(leaf.Page(), false)
				return nil, err
			}
		}
		return nil, t.pm.ReleasePage(leaf.Page(), true)
	}

	// Overflow: split.
	split, err := t.splitLeaf(leaf, object, fieldDistances)
	if err != nil {
		t.pm.ReleasePage(leaf.Page(), false)
		return nil, err
	}
	return split, nil
}

func (t *MetricTree[T]) splitLeaf(leaf *Node, newObject T, newFieldDistances []float64) (*promotedSplit[T], error) {
	type held struct {
		obj T
		fd  []float64
	}
	mem, err := DrainLeaf(leaf, t.newObject)
	if err != nil {
		return nil, err
	}
	n := mem.Len()
	all := make([]held, 0, n+1)
	for i := 0; i < n; i++ {
		obj, _ := mem.ObjectAt(i)
		all = append(all, held{obj: obj, fd: mem.FieldDistancesAt(i)})
	}
	all = append(all, held{obj: newObject, fd: newFieldDistances})

	objs := make([]T, len(all))
	for i, h := range all {
		objs[i] = h.obj
	}
	g1, g2, rep1, rep2 := splitGroups(objs, t.distFn, t.header.Config.Split)

	pageSize := leaf.Page().Size()
	pivotCount := t.header.Config.PivotCount

	buildLeaf := func(page *Page, group []int, repIdx int) (T, float64, error) {
		mem := NewMemoryLeafNode[T](pageSize, pivotCount)
		repObj := objs[repIdx]
		var radius float64
		for _, idx := range group {
			d := t.distFn.Distance(repObj, all[idx].obj)
			if d > radius {
				radius = d
			}
			if !mem.Add(all[idx].obj, d, all[idx].fd) {
				return repObj, 0, NewError(ErrInvariant, "split group does not fit its target leaf")
			}
		}
		node := FormatNode(page, NodeLeaf, pivotCount)
		if err := mem.ReleaseNode(node); err != nil {
			return repObj, 0, err
		}
		return repObj, radius, nil
	}

	page1 := leaf.Page()
	rep1Obj, radius1, err := buildLeaf(page1, g1, rep1)
	if err != nil {
		return nil, err
	}
	if err := t.pm.ReleasePage(page1, true); err != nil {
		return nil, err
	}

	page2, err := t.pm.NewPage()
	if err != nil {
		return nil, err
	}
	rep2Obj, radius2, err := buildLeaf(page2, g2, rep2)
	if err != nil {
		t.pm.ReleasePage(page2, false)
		return nil, err
	}
	if err := t.pm.ReleasePage(page2, true); err != nil {
		return nil, err
	}

	t.header.NodeCount++
	t.header.markDirty()

	return &promotedSplit[T]{
		child1PageID: page1.ID(), child2PageID: page2.ID(),
		rep1: rep1Obj, rep2: rep2Obj,
		radius1: radius1, radius2: radius2,
		nEntries1: uint32(len(g1)), nEntries2: uint32(len(g2)),
	}, nil
}

// chooseSubtree implements §4.6.2's subtree selection policies. It
// returns the chosen entry index and its (already-computed) distance to
// object, reusing I5 -- the chosen entry's representative is physically
// the child's own representative -- so callers can pass that distance
// straight down as the child's distance-to-its-own-representative.
func (t *MetricTree[T]) chooseSubtree(node *Node, object T) (int, float64, error) {
	n := node.NumEntries()
	type candidate struct {
		idx      int
		d        float64
		covering bool
		entry    IndexEntry
	}
	cands := make([]candidate, n)
	for i := 0; i < n; i++ {
		rep := t.newObject()
		if err := rep.Unserialize(node.GetObject(i)); err != nil {
			return 0, 0, WrapError(ErrInvariant, "deserialize index representative", err)
		}
		e := node.GetIndexEntry(i)
		d := t.distFn.Distance(rep, object)
		cands[i] = candidate{idx: i, d: d, covering: d <= e.Radius, entry: e}
	}

	// minGrowth picks the entry whose radius would grow the least if object
	// had to be covered by it -- the fallback when nothing already covers.
	minGrowth := func() int {
		best := 0
		bestGrowth := -1.0
		for i, c := range cands {
			g := c.d - c.entry.Radius
			if g < 0 {
				g = 0
			}
			if bestGrowth < 0 || g < bestGrowth {
				best, bestGrowth = i, g
			}
		}
		return best
	}

	best := 0
	switch t.header.Config.ChooseSubtree {
	case ChooseMinOccupation:
		haveCovering := false
		for i, c := range cands {
			if !c.covering {
				continue
			}
			if !haveCovering || c.entry.NEntries < cands[best].entry.NEntries ||
				(c.entry.NEntries == cands[best].entry.NEntries && c.d < cands[best].d) {
				best, haveCovering = i, true
			}
		}
		if !haveCovering {
			best = minGrowth()
		}
	default: // ChooseMinDist, ChooseMinGDist
		haveCovering := false
		for i, c := range cands {
			if !c.covering {
				continue
			}
			if !haveCovering || c.d < cands[best].d {
				best, haveCovering = i, true
			}
		}
		if !haveCovering {
			best = minGrowth()
		}
	}

	return cands[best].idx, cands[best].d, nil
}

func (t *MetricTree[T]) addToIndex(node *Node, object T, fieldDistances []float64) (*promotedSplit[T], *repChange[T], error) {
	best, d, err := t.chooseSubtree(node, object)
	if err != nil {
		t.pm.ReleasePage(node.Page(), false)
		return nil, nil, err
	}

	entry := node.GetIndexEntry(best)
	if d > entry.Radius {
		entry.Radius = d
		node.SetIndexEntry(best, entry)
	}
	childID := entry.ChildPageID
	// entry.DistanceToParentRep isn't touched by the radius bump above, so
	// this still reflects whether best was this node's own anchor entry
	// (I5's zero-distance representative) before we recurse into it.
	wasSelfRep := entry.DistanceToParentRep == 0

	childSplit, childRepChange, err := t.addRecursive(childID, object, fieldDistances)
	if err != nil {
		t.pm.ReleasePage(node.Page(), false)
		return nil, nil, err
	}

	if childSplit == nil {
		if childRepChange == nil {
			return nil, nil, t.pm.ReleasePage(node.Page(), true)
		}
		// The child didn't split, but its own representative changed
		// identity below us: refresh our cached copy of it.
		propagate, err := t.applyRepChange(node, best, wasSelfRep, childRepChange)
		if err != nil {
			t.pm.ReleasePage(node.Page(), false)
			return nil, nil, err
		}
		return nil, propagate, t.pm.ReleasePage(node.Page(), true)
	}

	// The child split: replace its entry with one for child1, and try to
	// add one for child2. If best was this node's own anchor entry,
	// neither child1 nor child2 generally keeps that identity -- this
	// node adopts a fresh anchor the same way a brand new root does,
	// making child1 entry zero, and reports the change upward so this
	// node's own parent can refresh its cached copy too.
	var dThisRep1, dThisRep2 float64
	if !wasSelfRep {
		rep, err := t.repObjectOf(node)
		if err != nil {
			t.pm.ReleasePage(node.Page(), false)
			return nil, nil, err
		}
		dThisRep1 = t.distFn.Distance(rep, childSplit.rep1)
		dThisRep2 = t.distFn.Distance(rep, childSplit.rep2)
	}

	node.RemoveEntry(best)
	if wasSelfRep {
		dThisRep1, dThisRep2 = 0, t.distFn.Distance(childSplit.rep1, childSplit.rep2)
	}

	idx1 := node.AddIndexEntry(childSplit.child1PageID, dThisRep1, childSplit.radius1, childSplit.nEntries1, serializeObject(childSplit.rep1))
	if idx1 < 0 {
		t.pm.ReleasePage(node.Page(), false)
		return nil, nil, NewError(ErrInvariant, "index entry for first split child does not fit after removal")
	}

	idx2 := node.AddIndexEntry(childSplit.child2PageID, dThisRep2, childSplit.radius2, childSplit.nEntries2, serializeObject(childSplit.rep2))
	if idx2 >= 0 {
		if err := t.reorderIndexEntries(node); err != nil {
			t.pm.ReleasePage(node.Page(), false)
			return nil, nil, err
		}
		var propagate *repChange[T]
		if wasSelfRep {
			propagate = &repChange[T]{rep: childSplit.rep1, radius: node.MinimumRadius()}
		}
		return nil, propagate, t.pm.ReleasePage(node.Page(), true)
	}

	// This index node overflows: split it too. Its own caller applies the
	// same wasSelfRep check to the entry that used to point at this node.
	split, err := t.splitIndex(node, childSplit, dThisRep1, dThisRep2)
	if err != nil {
		t.pm.ReleasePage(node.Page(), false)
		return nil, nil, err
	}
	return split, nil, nil
}

// applyRepChange refreshes node's entry at idx after the child it points
// to reported that its own representative changed without splitting.
// wasSelfRep reports whether that entry was node's own zero-distance
// anchor; if so, node's own identity changes too and the update must
// keep propagating to node's own caller.
func (t *MetricTree[T]) applyRepChange(node *Node, idx int, wasSelfRep bool, change *repChange[T]) (*repChange[T], error) {
	old := node.GetIndexEntry(idx)
	node.RemoveEntry(idx)

	var dist float64
	if !wasSelfRep {
		rep, err := t.repObjectOf(node)
		if err != nil {
			return nil, err
		}
		dist = t.distFn.Distance(rep, change.rep)
	}

	if node.AddIndexEntry(old.ChildPageID, dist, change.radius, old.NEntries, serializeObject(change.rep)) < 0 {
		return nil, NewError(ErrInvariant, "index entry update does not fit after removal")
	}
	if err := t.reorderIndexEntries(node); err != nil {
		return nil, err
	}

	if wasSelfRep {
		return &repChange[T]{rep: change.rep, radius: node.MinimumRadius()}, nil
	}
	return nil, nil
}

// reorderIndexEntries re-sorts a node's index entries by ascending
// distance-to-parent-representative, honoring I3. If removing the split
// child's old entry happened to discard the node's own representative
// (the lone zero-distance entry), it first re-anchors every remaining
// entry's distance to whichever entry currently sits at index 0.
func (t *MetricTree[T]) reorderIndexEntries(node *Node) error {
	n := node.NumEntries()
	entries := make([]IndexEntry, n)
	objs := make([][]byte, n)
	for i := 0; i < n; i++ {
		entries[i] = node.GetIndexEntry(i)
		objs[i] = append([]byte(nil), node.GetObject(i)...)
	}

	hasRep := false
	for _, e := range entries {
		if e.DistanceToParentRep == 0 {
			hasRep = true
			break
		}
	}
	if !hasRep {
		rep := t.newObject()
		if err := rep.Unserialize(objs[0]); err != nil {
			return WrapError(ErrInvariant, "deserialize re-anchored representative", err)
		}
		for i := range entries {
			other := t.newObject()
			if err := other.Unserialize(objs[i]); err != nil {
				return WrapError(ErrInvariant, "deserialize index object during re-anchor", err)
			}
			entries[i].DistanceToParentRep = t.distFn.Distance(rep, other)
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return entries[order[a]].DistanceToParentRep < entries[order[b]].DistanceToParentRep
	})
	node.RemoveAll()
	for _, i := range order {
		node.AddIndexEntry(entries[i].ChildPageID, entries[i].DistanceToParentRep, entries[i].Radius, entries[i].NEntries, objs[i])
	}
	return nil
}

func (t *MetricTree[T]) splitIndex(node *Node, childSplit *promotedSplit[T], dThisRep1, dThisRep2 float64) (*promotedSplit[T], error) {
	n := node.NumEntries()
	type held struct {
		rep      T
		radius   float64
		childID  uint32
		nEntries uint32
	}
	all := make([]held, n)
	for i := 0; i < n; i++ {
		rep := t.newObject()
		if err := rep.Unserialize(node.GetObject(i)); err != nil {
			return nil, WrapError(ErrInvariant, "deserialize index representative during split", err)
		}
		e := node.GetIndexEntry(i)
		all[i] = held{rep: rep, radius: e.Radius, childID: e.ChildPageID, nEntries: e.NEntries}
	}
	// The second split child's entry did not fit on node; it joins the split.
	all = append(all, held{rep: childSplit.rep2, radius: childSplit.radius2, childID: childSplit.child2PageID, nEntries: childSplit.nEntries2})

	objs := make([]T, len(all))
	for i, h := range all {
		objs[i] = h.rep
	}
	g1, g2, rep1, rep2 := splitGroups(objs, t.distFn, t.header.Config.Split)

	pivotCount := t.header.Config.PivotCount

	build := func(page *Page, group []int, repIdx int) (T, float64, uint32, error) {
		repObj := objs[repIdx]
		node := FormatNode(page, NodeIndex, pivotCount)
		var radius float64
		var total uint32
		type row struct {
			d float64
			h held
		}
		rows := make([]row, len(group))
		for i, idx := range group {
			d := t.distFn.Distance(repObj, all[idx].rep)
			rows[i] = row{d: d, h: all[idx]}
		}
		sort.Slice(rows, func(a, b int) bool { return rows[a].d < rows[b].d })
		for _, r := range rows {
			childRadius := r.d + r.h.radius
			if childRadius > radius {
				radius = childRadius
			}
			total += r.h.nEntries
			if node.AddIndexEntry(r.h.childID, r.d, r.h.radius, r.h.nEntries, serializeObject(r.h.rep)) < 0 {
				return repObj, 0, 0, NewError(ErrInvariant, "split group does not fit its target index node")
			}
		}
		return repObj, radius, total, nil
	}

	page1 := node.Page()
	rep1Obj, radius1, n1, err := build(page1, g1, rep1)
	if err != nil {
		return nil, err
	}
	if err := t.pm.ReleasePage(page1, true); err != nil {
		return nil, err
	}

	page2, err := t.pm.NewPage()
	if err != nil {
		return nil, err
	}
	rep2Obj, radius2, n2, err := build(page2, g2, rep2)
	if err != nil {
		t.pm.ReleasePage(page2, false)
		return nil, err
	}
	if err := t.pm.ReleasePage(page2, true); err != nil {
		return nil, err
	}

	t.header.NodeCount++
	t.header.markDirty()

	return &promotedSplit[T]{
		child1PageID: page1.ID(), child2PageID: page2.ID(),
		rep1: rep1Obj, rep2: rep2Obj,
		radius1: radius1, radius2: radius2,
		nEntries1: n1, nEntries2: n2,
	}, nil
}

func (t *MetricTree[T]) newRoot(split *promotedSplit[T]) error {
	page, err := t.pm.NewPage()
	if err != nil {
		return err
	}
	node := FormatNode(page, NodeIndex, t.header.Config.PivotCount)

	d2 := t.distFn.Distance(split.rep1, split.rep2)
	if node.AddIndexEntry(split.child1PageID, 0, split.radius1, split.nEntries1, serializeObject(split.rep1)) < 0 {
		t.pm.ReleasePage(page, false)
		return NewError(ErrInvariant, "new root cannot hold first child")
	}
	if node.AddIndexEntry(split.child2PageID, d2, split.radius2, split.nEntries2, serializeObject(split.rep2)) < 0 {
		t.pm.ReleasePage(page, false)
		return NewError(ErrInvariant, "new root cannot hold second child")
	}

	if err := t.pm.ReleasePage(page, true); err != nil {
		return err
	}

	t.header.RootPageID = page.ID()
	t.header.Height++
	t.header.NodeCount++
	t.header.markDirty()
	return nil
}
