package slimtree

import (
	"encoding/binary"
	"sync"

	"github.com/tecbot/gorocksdb"
)

// rocksPageManager is a durable PageManager backed by RocksDB, suited to
// deployments that already run a RocksDB instance and want the metric
// index's pages to benefit from its compaction and block-cache tuning
// instead of managing a dedicated page file. Pages are stored as plain
// key/value records keyed by a big-endian uint32 page id, mirroring the
// bbolt backend's layout so the two are interchangeable on the wire.
type rocksPageManager struct {
	mu       sync.Mutex
	db       *gorocksdb.DB
	ro       *gorocksdb.ReadOptions
	wo       *gorocksdb.WriteOptions
	pageSize int
	nextID   uint32
	free     []uint32
	reads    uint64
	writes   uint64
	closed   bool
}

// OpenRocksDB opens or creates a RocksDB-backed PageManager at path.
func OpenRocksDB(path string, pageSize int) (PageManager, error) {
	if pageSize < MinPageSize {
		return nil, NewError(ErrFormat, "page size below minimum")
	}

	opts := gorocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)

	db, err := gorocksdb.OpenDb(opts, path)
	if err != nil {
		return nil, WrapError(ErrIO, "open rocksdb store", err)
	}

	pm := &rocksPageManager{
		db:       db,
		ro:       gorocksdb.NewDefaultReadOptions(),
		wo:       gorocksdb.NewDefaultWriteOptions(),
		pageSize: pageSize,
		nextID:   1,
	}

	existing, err := db.GetBytes(pm.ro, idKey(HeaderPageID))
	if err != nil {
		db.Close()
		return nil, WrapError(ErrIO, "read header page", err)
	}
	if existing == nil {
		if err := db.Put(pm.wo, idKey(HeaderPageID), make([]byte, pageSize)); err != nil {
			db.Close()
			return nil, WrapError(ErrIO, "initialize header page", err)
		}
	}

	it := db.NewIterator(pm.ro)
	for it.SeekToFirst(); it.Valid(); it.Next() {
		k := it.Key()
		if k.Size() == 4 {
			id := binary.BigEndian.Uint32(k.Data())
			if id >= pm.nextID {
				pm.nextID = id + 1
			}
		}
		k.Free()
	}
	it.Close()
	if err := it.Err(); err != nil {
		db.Close()
		return nil, WrapError(ErrIO, "scan page store", err)
	}

	return pm, nil
}

func (pm *rocksPageManager) fetch(id uint32) (*Page, error) {
	v, err := pm.db.GetBytes(pm.ro, idKey(id))
	if err != nil {
		return nil, WrapError(ErrIO, "read page", err)
	}
	if v == nil {
		return nil, WrapError(ErrNotFound, "no such page", nil)
	}
	buf := make([]byte, pm.pageSize)
	copy(buf, v)
	pm.reads++
	return &Page{id: id, buf: buf}, nil
}

func (pm *rocksPageManager) GetPage(id uint32) (*Page, error) {
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

func (pm *rocksPageManager) GetHeaderPage() (*Page, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil, ErrTreeClosed
	}
	return pm.fetch(HeaderPageID)
}

func (pm *rocksPageManager) NewPage() (*Page, error) {
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
	if err := pm.db.Put(pm.wo, idKey(id), buf); err != nil {
		return nil, WrapError(ErrIO, "allocate page", err)
	}
	pm.writes++

	return &Page{id: id, buf: buf, dirt: true}, nil
}

func (pm *rocksPageManager) ReleasePage(p *Page, dirty bool) error {
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

func (pm *rocksPageManager) writeLocked(p *Page) error {
	if err := pm.db.Put(pm.wo, idKey(p.id), p.buf); err != nil {
		return WrapError(ErrIO, "write page", err)
	}
	pm.writes++
	return nil
}

func (pm *rocksPageManager) WritePage(p *Page) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return ErrTreeClosed
	}
	return pm.writeLocked(p)
}

func (pm *rocksPageManager) DisposePage(id uint32) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return ErrTreeClosed
	}
	if err := pm.db.Delete(pm.wo, idKey(id)); err != nil {
		return WrapError(ErrIO, "dispose page", err)
	}
	pm.free = append(pm.free, id)
	return nil
}

func (pm *rocksPageManager) MinPageSize() int { return MinPageSize }
func (pm *rocksPageManager) PageSize() int    { return pm.pageSize }

func (pm *rocksPageManager) IsEmpty() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.nextID == 1
}

func (pm *rocksPageManager) ResetStatistics() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.reads, pm.writes = 0, 0
}

func (pm *rocksPageManager) ReadCount() uint64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.reads
}

func (pm *rocksPageManager) WriteCount() uint64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.writes
}

func (pm *rocksPageManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil
	}
	pm.closed = true
	pm.ro.Destroy()
	pm.wo.Destroy()
	pm.db.Close()
	return nil
}
