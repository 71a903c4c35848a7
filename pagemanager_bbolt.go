package slimtree

import (
	"encoding/binary"
	"errors"
	"sync"

	"go.etcd.io/bbolt"
)

var pagesBucket = []byte("pages")

// errPageMissing is an internal sentinel distinguishing "key absent" from
// a genuine bbolt I/O failure inside a View transaction.
var errPageMissing = errors.New("page missing")

// bboltPageManager is a durable PageManager backed by a bbolt key/value
// file. Each page is stored as one key (a big-endian uint32 page id) in a
// single bucket. Unlike the mmap-backed manager, pages returned here are
// private copies -- bbolt only guarantees a Get()'d slice is valid for the
// life of its transaction -- so GetPage/ReleasePage round-trip through
// short-lived transactions instead of aliasing a shared mapping.
//
// This backend suits deployments that already operate a bbolt-based
// store and want the metric index to live alongside other bbolt buckets
// in the same file, trading the mmap backend's zero-copy reads for
// bbolt's own crash-safe B+tree page format underneath.
type bboltPageManager struct {
	mu       sync.Mutex
	db       *bbolt.DB
	pageSize int
	nextID   uint32
	free     []uint32
	reads    uint64
	writes   uint64
	closed   bool
}

// OpenBbolt opens or creates a bbolt-backed PageManager at path.
func OpenBbolt(path string, pageSize int) (PageManager, error) {
	if pageSize < MinPageSize {
		return nil, NewError(ErrFormat, "page size below minimum")
	}

	db, err := bbolt.Open(path, 0644, bbolt.DefaultOptions)
	if err != nil {
		return nil, WrapError(ErrIO, "open bbolt store", err)
	}

	pm := &bboltPageManager{db: db, pageSize: pageSize, nextID: 1}

	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(pagesBucket)
		if err != nil {
			return err
		}
		if b.Get(idKey(HeaderPageID)) == nil {
			if err := b.Put(idKey(HeaderPageID), make([]byte, pageSize)); err != nil {
				return err
			}
		}
		// Recover nextID from the highest key already present.
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			id := binary.BigEndian.Uint32(k)
			if id >= pm.nextID {
				pm.nextID = id + 1
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, WrapError(ErrIO, "initialize bbolt store", err)
	}

	return pm, nil
}

func idKey(id uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, id)
	return k
}

func (pm *bboltPageManager) fetch(id uint32) (*Page, error) {
	p := &Page{id: id, buf: make([]byte, pm.pageSize)}
	err := pm.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(pagesBucket)
		v := b.Get(idKey(id))
		if v == nil {
			return errPageMissing
		}
		copy(p.buf, v)
		return nil
	})
	if err == errPageMissing {
		return nil, WrapError(ErrNotFound, "no such page", nil)
	}
	if err != nil {
		return nil, WrapError(ErrIO, "read page", err)
	}
	pm.reads++
	return p, nil
}

func (pm *bboltPageManager) GetPage(id uint32) (*Page, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil, ErrTreeClosed
	}
	if id == 0 || id >= pm.nextID {
		return nil, WrapError(ErrNotFound, "no such page", nil)
	}
	return pm.fetch(id)
}

func (pm *bboltPageManager) GetHeaderPage() (*Page, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil, ErrTreeClosed
	}
	return pm.fetch(HeaderPageID)
}

func (pm *bboltPageManager) NewPage() (*Page, error) {
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

	buf := make([]byte, pm.pageSize)
	err := pm.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(pagesBucket).Put(idKey(id), buf)
	})
	if err != nil {
		return nil, WrapError(ErrIO, "allocate page", err)
	}
	pm.writes++

	return &Page{id: id, buf: buf, dirt: true}, nil
}

func (pm *bboltPageManager) ReleasePage(p *Page, dirty bool) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return ErrTreeClosed
	}
	if dirty || p.dirt {
		if err := pm.writeLocked(p); err != nil {
			return err
		}
	}
	p.dirt = false
	return nil
}

func (pm *bboltPageManager) writeLocked(p *Page) error {
	err := pm.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(pagesBucket).Put(idKey(p.id), p.buf)
	})
	if err != nil {
		return WrapError(ErrIO, "write page", err)
	}
	pm.writes++
	return nil
}

func (pm *bboltPageManager) WritePage(p *Page) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return ErrTreeClosed
	}
	return pm.writeLocked(p)
}

func (pm *bboltPageManager) DisposePage(id uint32) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return ErrTreeClosed
	}
	err := pm.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(pagesBucket).Delete(idKey(id))
	})
	if err != nil {
		return WrapError(ErrIO, "dispose page", err)
	}
	pm.free = append(pm.free, id)
	return nil
}

func (pm *bboltPageManager) MinPageSize() int { return MinPageSize }
func (pm *bboltPageManager) PageSize() int    { return pm.pageSize }

func (pm *bboltPageManager) IsEmpty() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.nextID == 1
}

func (pm *bboltPageManager) ResetStatistics() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.reads, pm.writes = 0, 0
}

func (pm *bboltPageManager) ReadCount() uint64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.reads
}

func (pm *bboltPageManager) WriteCount() uint64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.writes
}

func (pm *bboltPageManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil
	}
	pm.closed = true
	return pm.db.Close()
}
