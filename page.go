package slimtree

// HeaderPageID is the distinguished, always-resident page id that carries
// tree-level metadata. Page id 0 otherwise means "no page".
const HeaderPageID uint32 = 0

// MinPageSize is the smallest page size a PageManager may report via
// MinPageSize. Below this a node cannot hold even a single entry plus its
// header and representative object.
const MinPageSize = 512

// DefaultPageSize is used by OpenFile and the CLI harness when the caller
// does not otherwise configure one.
const DefaultPageSize = 4096

// Page is a fixed-size byte buffer with identity. It is always obtained
// from, and returned to, a PageManager; a Page never outlives the handle
// that produced it once Release has been called.
type Page struct {
	id   uint32
	buf  []byte
	dirt bool
}

// ID returns the page's identity. Zero denotes the header page.
func (p *Page) ID() uint32 { return p.id }

// Size returns the page's fixed byte length.
func (p *Page) Size() int { return len(p.buf) }

// Data returns the page's mutable backing buffer. Callers that mutate it
// must mark the page dirty via MarkDirty (or release it with dirty=true)
// so the PageManager persists the change.
func (p *Page) Data() []byte { return p.buf }

// Clear zeroes the page's entire buffer.
func (p *Page) Clear() {
	for i := range p.buf {
		p.buf[i] = 0
	}
}

// MarkDirty flags the page for write-back on release.
func (p *Page) MarkDirty() { p.dirt = true }

// Dirty reports whether the page has been marked for write-back.
func (p *Page) Dirty() bool { return p.dirt }

// PageManager allocates, reads, writes and releases pages. Implementations
// are free to cache pages in memory, but every get must be matched with
// exactly one release; a dirty page must be durable before release
// returns to honor the write-before-release-returns contract in the
// concurrency model.
type PageManager interface {
	// GetPage fetches the page with the given id, reading it from disk
	// if it is not already resident.
	GetPage(id uint32) (*Page, error)

	// GetHeaderPage fetches the distinguished header page.
	GetHeaderPage() (*Page, error)

	// NewPage allocates a fresh page with a non-zero, previously-unused
	// id.
	NewPage() (*Page, error)

	// ReleasePage returns a checked-out page to the manager. If dirty is
	// true (or the page was marked dirty), it is persisted before this
	// call returns.
	ReleasePage(p *Page, dirty bool) error

	// WritePage forces a write-through of the given page regardless of
	// its dirty flag.
	WritePage(p *Page) error

	// DisposePage returns a page id to the manager's freelist. The
	// caller must not use the page again.
	DisposePage(id uint32) error

	// MinPageSize is the smallest page size usable by a tree over this
	// manager.
	MinPageSize() int

	// PageSize is the fixed page size this manager was configured with.
	PageSize() int

	// IsEmpty reports whether no user (non-header) pages have been
	// allocated yet.
	IsEmpty() bool

	// ResetStatistics zeroes the read/write counters.
	ResetStatistics()

	// ReadCount returns the number of page reads since the last reset.
	ReadCount() uint64

	// WriteCount returns the number of page writes since the last reset.
	WriteCount() uint64

	// Close flushes and releases any resources held by the manager.
	Close() error
}
