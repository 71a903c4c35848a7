package slimtree

import (
	"os"
	"sync"
	"unsafe"

	"github.com/arboretum-go/slimtree/internal/fastmap"
	"github.com/arboretum-go/slimtree/mmap"
)

// growPages is the number of pages the backing file is extended by each
// time the mapping must grow, amortizing the cost of remapping.
const growPages = 64

// filePageManager is the native PageManager: a single mmap'd file with the
// header at page id 0 and user pages addressed by id*pageSize. Because the
// returned Page's Data() slice aliases the mapping directly, writes are
// visible to the file as soon as the kernel flushes dirty pages; release
// and WritePage additionally msync the affected range so the
// write-before-release contract holds without relying on OS timing.
type filePageManager struct {
	mu       sync.Mutex
	f        *os.File
	path     string
	pageSize int
	m        *mmap.Map
	fileSize int64
	nextID   uint32
	free     []uint32
	checked  fastmap.Uint32Map // page ids currently checked out
	reads    uint64
	writes   uint64
	closed   bool
}

// OpenFile opens or creates a native mmap-backed PageManager at path. The
// page size is not recorded in the file: an existing file is reopened
// with the given pageSize, which must be the one it was created with
// (only a file length that is not a multiple of it is rejected). On
// reopen every page slot of the file counts as allocated and the free
// list starts empty, so IsEmpty reports false for any reopened file.
func OpenFile(path string, pageSize int) (PageManager, error) {
	if pageSize < MinPageSize {
		return nil, NewError(ErrFormat, "page size below minimum")
	}

	creating := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		creating = true
	}

	flag := os.O_RDWR | os.O_CREATE
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, WrapError(ErrIO, "open page file", err)
	}

	pm := &filePageManager{
		f:        f,
		path:     path,
		pageSize: pageSize,
		nextID:   1,
	}

	if creating {
		initial := int64(pageSize) * (growPages + 1)
		if err := f.Truncate(initial); err != nil {
			f.Close()
			return nil, WrapError(ErrIO, "allocate page file", err)
		}
		pm.fileSize = initial
	} else {
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, WrapError(ErrIO, "stat page file", err)
		}
		pm.fileSize = fi.Size()
		if pm.fileSize == 0 || pm.fileSize%int64(pageSize) != 0 {
			f.Close()
			return nil, NewError(ErrFormat, "page file size is not a multiple of the page size")
		}
		pm.nextID = uint32(pm.fileSize / int64(pageSize))
	}

	m, err := mmap.New(int(f.Fd()), 0, int(pm.fileSize), true)
	if err != nil {
		f.Close()
		return nil, WrapError(ErrIO, "mmap page file", err)
	}
	pm.m = m

	return pm, nil
}

func (pm *filePageManager) pageOffset(id uint32) int64 {
	return int64(id) * int64(pm.pageSize)
}

func (pm *filePageManager) growTo(minID uint32) error {
	if int64(minID+1)*int64(pm.pageSize) <= pm.fileSize {
		return nil
	}
	newPages := int64(minID) + growPages
	newSize := newPages * int64(pm.pageSize)

	if err := pm.f.Truncate(newSize); err != nil {
		return WrapError(ErrIO, "grow page file", err)
	}
	if err := pm.m.Remap(newSize); err != nil {
		return WrapError(ErrIO, "remap page file", err)
	}
	pm.fileSize = newSize
	return nil
}

func (pm *filePageManager) checkout(id uint32) error {
	if pm.checked.Get(id) != nil {
		return NewError(ErrInvariant, "page already checked out")
	}
	pm.checked.Set(id, unsafe.Pointer(&struct{}{}))
	return nil
}

func (pm *filePageManager) view(id uint32) *Page {
	off := pm.pageOffset(id)
	buf := pm.m.Data()[off : off+int64(pm.pageSize)]
	return &Page{id: id, buf: buf}
}

func (pm *filePageManager) GetPage(id uint32) (*Page, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil, ErrTreeClosed
	}
	if id == 0 || id >= pm.nextID {
		return nil, WrapError(ErrNotFound, "no such page", nil)
	}
	if err := pm.checkout(id); err != nil {
		return nil, err
	}
	pm.reads++
	return pm.view(id), nil
}

func (pm *filePageManager) GetHeaderPage() (*Page, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil, ErrTreeClosed
	}
	if err := pm.checkout(HeaderPageID); err != nil {
		return nil, err
	}
	return pm.view(HeaderPageID), nil
}

func (pm *filePageManager) NewPage() (*Page, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil, ErrTreeClosed
	}

	var id uint32
	if n := len(pm.free); n > 0 {
		id = pm.free[n-1]
		pm.free = pm.free[:n-1]
	} else {
		id = pm.nextID
		pm.nextID++
	}

	if err := pm.growTo(id); err != nil {
		return nil, err
	}
	if err := pm.checkout(id); err != nil {
		return nil, err
	}

	p := pm.view(id)
	p.Clear()
	p.dirt = true
	return p, nil
}

func (pm *filePageManager) ReleasePage(p *Page, dirty bool) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return ErrTreeClosed
	}
	pm.checked.Delete(p.id)
	if dirty || p.dirt {
		if err := pm.syncRangeLocked(p.id); err != nil {
			return err
		}
	}
	p.dirt = false
	return nil
}

func (pm *filePageManager) syncRangeLocked(id uint32) error {
	off := pm.pageOffset(id)
	if err := pm.m.SyncRange(off, int64(pm.pageSize)); err != nil {
		return WrapError(ErrIO, "sync page", err)
	}
	pm.writes++
	return nil
}

func (pm *filePageManager) WritePage(p *Page) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return ErrTreeClosed
	}
	return pm.syncRangeLocked(p.id)
}

func (pm *filePageManager) DisposePage(id uint32) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return ErrTreeClosed
	}
	pm.free = append(pm.free, id)
	return nil
}

func (pm *filePageManager) MinPageSize() int { return MinPageSize }
func (pm *filePageManager) PageSize() int    { return pm.pageSize }

func (pm *filePageManager) IsEmpty() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.nextID == 1
}

func (pm *filePageManager) ResetStatistics() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.reads, pm.writes = 0, 0
}

func (pm *filePageManager) ReadCount() uint64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.reads
}

func (pm *filePageManager) WriteCount() uint64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.writes
}

func (pm *filePageManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil
	}
	pm.closed = true
	if err := pm.m.Sync(); err != nil {
		pm.f.Close()
		return WrapError(ErrIO, "final sync", err)
	}
	if err := pm.m.Close(); err != nil {
		pm.f.Close()
		return WrapError(ErrIO, "unmap page file", err)
	}
	return pm.f.Close()
}
