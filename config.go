package slimtree

// ChooseSubtreePolicy selects which child entry an Add descends into when
// more than one index entry is a candidate.
type ChooseSubtreePolicy int

const (
	// ChooseMinDist picks the entry minimizing max(0, d(rep,obj)-radius);
	// among entries that already cover the object it picks the smallest
	// distance.
	ChooseMinDist ChooseSubtreePolicy = iota

	// ChooseMinOccupation picks, among covering entries, the one with
	// the fewest descendant entries, tie-breaking on distance.
	ChooseMinOccupation

	// ChooseMinGDist is accepted and persisted, and selects exactly as
	// ChooseMinDist does: the covering entry with the smallest distance,
	// else the entry whose radius would grow the least. It has no
	// selection rule of its own.
	ChooseMinGDist
)

// SplitPolicy selects how a full node's entries are partitioned into two
// groups on overflow.
type SplitPolicy int

const (
	// SplitMST builds the minimum spanning tree over the node's entries
	// and removes its heaviest edge; the two resulting components
	// become the split groups. This is the tree's default.
	SplitMST SplitPolicy = iota

	// SplitMinMax tries every representative pair and keeps the one
	// minimizing the larger of the two resulting radii. O(n^3) in the
	// node's entry count, acceptable since that count is bounded by
	// page capacity.
	SplitMinMax

	// SplitRandom picks two distinct entries at random as
	// representatives.
	SplitRandom
)

// MaxPivots bounds the STFOCUS global-pivot mechanism: each leaf entry may
// carry up to this many precomputed distances to fixed reference objects,
// stored inline (never as a pointer) so the layout stays byte-exact on
// disk. A tree configured with PivotCount==0 disables the mechanism and
// leaf entries carry no field distances at all.
const MaxPivots = 3

// Config configures a MetricTree's algorithmic policies. It is persisted
// in the header page so a reopened tree keeps using the policies it was
// built with.
type Config struct {
	ChooseSubtree ChooseSubtreePolicy
	Split         SplitPolicy

	// PivotCount is the number of global reference objects (0..MaxPivots)
	// against which every leaf entry's distance is precomputed for
	// additional range-query pruning. Zero disables the mechanism.
	PivotCount int
}

// DefaultConfig matches the spec's stated default split policy (MST) and
// leaves the STFOCUS pivot mechanism disabled.
var DefaultConfig = Config{
	ChooseSubtree: ChooseMinDist,
	Split:         SplitMST,
	PivotCount:    0,
}
