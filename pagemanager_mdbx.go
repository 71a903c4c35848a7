package slimtree

import (
	"errors"
	"os"
	"sync"

	"github.com/erigontech/mdbx-go/mdbx"
)

// mdbxPageManager is a durable PageManager backed by libmdbx through
// erigontech/mdbx-go. One write transaction per mutating call keeps the
// manager compatible with mdbx's single-writer model, which is also the
// tree's own single-writer concurrency assumption -- there is no lock
// contention to paper over.
type mdbxPageManager struct {
	mu       sync.Mutex
	env      *mdbx.Env
	dbi      mdbx.DBI
	pageSize int
	nextID   uint32
	free     []uint32
	reads    uint64
	writes   uint64
	closed   bool
}

// OpenMDBX opens or creates an mdbx-backed PageManager at path.
func OpenMDBX(path string, pageSize int) (PageManager, error) {
	if pageSize < MinPageSize {
		return nil, NewError(ErrFormat, "page size below minimum")
	}

	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, WrapError(ErrIO, "create mdbx env", err)
	}
	if err := env.SetGeometry(-1, -1, -1, -1, -1, pageSize); err != nil {
		env.Close()
		return nil, WrapError(ErrIO, "set mdbx geometry", err)
	}
	if err := env.Open(path, mdbx.NoSubdir, os.FileMode(0644)); err != nil {
		env.Close()
		return nil, WrapError(ErrIO, "open mdbx env", err)
	}

	pm := &mdbxPageManager{env: env, pageSize: pageSize, nextID: 1}

	err = env.Update(func(txn *mdbx.Txn) error {
		dbi, err := txn.OpenDBI("pages", mdbx.Create, nil, nil)
		if err != nil {
			return err
		}
		pm.dbi = dbi

		if _, err := txn.Get(dbi, idKey(HeaderPageID)); err != nil {
			if !mdbx.IsNotFound(err) {
				return err
			}
			if err := txn.Put(dbi, idKey(HeaderPageID), make([]byte, pageSize), 0); err != nil {
				return err
			}
		}

		cur, err := txn.OpenCursor(dbi)
		if err != nil {
			return err
		}
		defer cur.Close()
		for {
			k, _, err := cur.Get(nil, nil, mdbx.Next)
			if err != nil {
				if mdbx.IsNotFound(err) {
					break
				}
				return err
			}
			if len(k) == 4 {
				id := beUint32(k)
				if id >= pm.nextID {
					pm.nextID = id + 1
				}
			}
		}
		return nil
	})
	if err != nil {
		env.Close()
		return nil, WrapError(ErrIO, "initialize mdbx store", err)
	}

	return pm, nil
}

func (pm *mdbxPageManager) fetch(id uint32) (*Page, error) {
	buf := make([]byte, pm.pageSize)
	err := pm.env.View(func(txn *mdbx.Txn) error {
		v, err := txn.Get(pm.dbi, idKey(id))
		if err != nil {
			return err
		}
		copy(buf, v)
		return nil
	})
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, WrapError(ErrNotFound, "no such page", nil)
		}
		return nil, WrapError(ErrIO, "read page", err)
	}
	pm.reads++
	return &Page{id: id, buf: buf}, nil
}

func (pm *mdbxPageManager) GetPage(id uint32) (*Page, error) {
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

func (pm *mdbxPageManager) GetHeaderPage() (*Page, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil, ErrTreeClosed
	}
	return pm.fetch(HeaderPageID)
}

func (pm *mdbxPageManager) NewPage() (*Page, error) {
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
	err := pm.env.Update(func(txn *mdbx.Txn) error {
		return txn.Put(pm.dbi, idKey(id), buf, 0)
	})
	if err != nil {
		return nil, WrapError(ErrIO, "allocate page", err)
	}
	pm.writes++

	return &Page{id: id, buf: buf, dirt: true}, nil
}

func (pm *mdbxPageManager) ReleasePage(p *Page, dirty bool) error {
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

func (pm *mdbxPageManager) writeLocked(p *Page) error {
	err := pm.env.Update(func(txn *mdbx.Txn) error {
		return txn.Put(pm.dbi, idKey(p.id), p.buf, 0)
	})
	if err != nil {
		return WrapError(ErrIO, "write page", err)
	}
	pm.writes++
	return nil
}

func (pm *mdbxPageManager) WritePage(p *Page) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return ErrTreeClosed
	}
	return pm.writeLocked(p)
}

func (pm *mdbxPageManager) DisposePage(id uint32) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return ErrTreeClosed
	}
	err := pm.env.Update(func(txn *mdbx.Txn) error {
		return txn.Del(pm.dbi, idKey(id), nil)
	})
	if err != nil && !errors.Is(err, mdbx.ErrNotFound) {
		return WrapError(ErrIO, "dispose page", err)
	}
	pm.free = append(pm.free, id)
	return nil
}

func (pm *mdbxPageManager) MinPageSize() int { return MinPageSize }
func (pm *mdbxPageManager) PageSize() int    { return pm.pageSize }

func (pm *mdbxPageManager) IsEmpty() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.nextID == 1
}

func (pm *mdbxPageManager) ResetStatistics() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.reads, pm.writes = 0, 0
}

func (pm *mdbxPageManager) ReadCount() uint64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.reads
}

func (pm *mdbxPageManager) WriteCount() uint64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.writes
}

func (pm *mdbxPageManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil
	}
	pm.closed = true
	pm.env.Close()
	return nil
}
