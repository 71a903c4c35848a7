package slimtree

import "container/heap"

// RangeQuery returns every indexed object within radius of sample,
// ordered ascending by distance. It descends only into subtrees whose
// covering radius cannot be excluded by the triangle inequality (I1/I2),
// and additionally prunes leaf entries using precomputed STFOCUS field
// distances when the tree was configured with PivotCount > 0.
func (t *MetricTree[T]) RangeQuery(sample T, radius float64) (*Result[T], error) {
	if t.closed {
		return nil, ErrTreeClosed
	}
	result := NewResult[T](RangeQueryKind, -1, radius, true)
	if t.header.RootPageID == 0 {
		return result, nil
	}
	sampleFieldDist := t.sampleFieldDistances(sample)
	if err := t.rangeVisit(t.header.RootPageID, sample, radius, sampleFieldDist, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (t *MetricTree[T]) sampleFieldDistances(sample T) []float64 {
	n := t.header.Config.PivotCount
	if n == 0 || len(t.pivots) < n {
		return nil
	}
	fd := make([]float64, n)
	for i, pivot := range t.pivots {
		fd[i] = t.distFn.Distance(pivot, sample)
	}
	return fd
}

// fieldDistancesExclude reports whether, for some captured pivot, the
// triangle inequality already proves the candidate lies outside radius
// of sample: |d(pivot,obj) - d(pivot,sample)| > radius. A NaN field
// distance (recorded before that pivot was captured) never excludes.
func fieldDistancesExclude(objFD, sampleFD []float64, radius float64) bool {
	if sampleFD == nil {
		return false
	}
	for i := range sampleFD {
		diff := objFD[i] - sampleFD[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > radius {
			return true
		}
	}
	return false
}

func (t *MetricTree[T]) rangeVisit(pageID uint32, sample T, radius float64, sampleFD []float64, result *Result[T]) error {
	page, err := t.pm.GetPage(pageID)
	if err != nil {
		return err
	}
	node := WrapNode(page, t.header.Config.PivotCount)
	defer t.pm.ReleasePage(page, false)

	n := node.NumEntries()
	if node.Type() == NodeLeaf {
		for i := 0; i < n; i++ {
			le := node.GetLeafEntry(i)
			if sampleFD != nil && fieldDistancesExclude(le.FieldDistances, sampleFD, radius) {
				continue
			}
			obj := t.newObject()
			if err := obj.Unserialize(node.GetObject(i)); err != nil {
				return WrapError(ErrInvariant, "deserialize leaf object during range query", err)
			}
			d := t.distFn.Distance(sample, obj)
			if d <= radius {
				result.AddPair(obj, d)
			}
		}
		return nil
	}

	for i := 0; i < n; i++ {
		rep := t.newObject()
		if err := rep.Unserialize(node.GetObject(i)); err != nil {
			return WrapError(ErrInvariant, "deserialize index representative during range query", err)
		}
		e := node.GetIndexEntry(i)
		dRep := t.distFn.Distance(rep, sample)
		// Prune per I2: a subtree cannot contain a match if
		// |d(rep,sample)| - radius exceeds its covering radius.
		if dRep-e.Radius > radius {
			continue
		}
		if err := t.rangeVisit(e.ChildPageID, sample, radius, sampleFD, result); err != nil {
			return err
		}
	}
	return nil
}

// NearestQuery returns the k objects nearest to sample, ordered
// ascending by distance, using a best-first branch-and-bound traversal
// (§4.6.5): subtrees are visited in order of their optimistic lower
// bound on containing a closer match, and the search stops once the
// frontier's minimum bound exceeds the current k-th best distance.
func (t *MetricTree[T]) NearestQuery(sample T, k int, allowTies bool) (*Result[T], error) {
	if t.closed {
		return nil, ErrTreeClosed
	}
	if k <= 0 {
		return nil, NewError(ErrInvariant, "k must be positive")
	}
	result := NewResult[T](KNNQueryKind, k, 0, allowTies)
	if t.header.RootPageID == 0 {
		return result, nil
	}

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, pqItem{pageID: t.header.RootPageID, bound: 0})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(pqItem)
		if result.Len() >= k && item.bound > result.MaximumDistance() {
			break
		}

		page, err := t.pm.GetPage(item.pageID)
		if err != nil {
			return nil, err
		}
		node := WrapNode(page, t.header.Config.PivotCount)
		n := node.NumEntries()

		if node.Type() == NodeLeaf {
			for i := 0; i < n; i++ {
				obj := t.newObject()
				if err := obj.Unserialize(node.GetObject(i)); err != nil {
					t.pm.ReleasePage(page, false)
					return nil, WrapError(ErrInvariant, "deserialize leaf object during nearest query", err)
				}
				d := t.distFn.Distance(sample, obj)
				result.AddPair(obj, d)
			}
			result.Cut(k)
		} else {
			for i := 0; i < n; i++ {
				rep := t.newObject()
				if err := rep.Unserialize(node.GetObject(i)); err != nil {
					t.pm.ReleasePage(page, false)
					return nil, WrapError(ErrInvariant, "deserialize index representative during nearest query", err)
				}
				e := node.GetIndexEntry(i)
				dRep := t.distFn.Distance(rep, sample)
				bound := dRep - e.Radius
				if bound < 0 {
					bound = 0
				}
				if result.Len() >= k {
					cur := result.MaximumDistance()
					if bound > cur {
						continue
					}
				}
				heap.Push(pq, pqItem{pageID: e.ChildPageID, bound: bound})
			}
		}
		t.pm.ReleasePage(page, false)
	}

	return result, nil
}

// pqItem is one pending subtree in NearestQuery's best-first frontier.
type pqItem struct {
	pageID uint32
	bound  float64
}

// priorityQueue is a container/heap min-heap over pqItem.bound.
type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].bound < pq[j].bound }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
