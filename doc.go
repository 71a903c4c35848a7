// Package slimtree is a disk-backed dynamic metric index (a Slim-Tree) that
// answers similarity queries -- k-nearest-neighbour and range queries -- over
// collections of objects compared through a user-supplied distance function.
//
// The index is paginated: every internal and leaf node lives in a fixed-size
// page managed by a pluggable PageManager, so the tree scales beyond memory.
// Unlike a key-value B-tree, there is no total order over objects; subtree
// selection and pruning rely entirely on the triangle inequality of the
// distance function.
//
// Key features:
//   - Node layout is a tagged variant over a single Page view (Index or Leaf)
//   - Insertion descends via a configurable ChooseSubtree policy and splits
//     overflowing nodes using MST, MinMax or random representative selection
//   - Range and k-nearest-neighbour queries prune subtrees using stored
//     representative/radius pairs, without calling the distance function
//     on any object inside a pruned subtree
//   - Distance functions may carry runtime-mutable per-dimension weights
//   - Multiple PageManager backends: a native mmap-backed file, and adapters
//     over bbolt, RocksDB and libmdbx for durable page storage
//
// Basic usage:
//
//	pm, err := slimtree.OpenFile("/path/to/tree.db", slimtree.DefaultPageSize)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pm.Close()
//
//	newVector := func() *distancefuncs.Vector { return &distancefuncs.Vector{} }
//	tree, err := slimtree.Open(pm, &distancefuncs.Euclidean{}, newVector, slimtree.Config{
//	    ChooseSubtree: slimtree.ChooseMinDist,
//	    Split:         slimtree.SplitMST,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tree.Close()
//
//	if err := tree.Add(point); err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := tree.NearestQuery(sample, 10, false)
package slimtree
