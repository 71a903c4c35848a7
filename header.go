package slimtree

import "encoding/binary"

// treeMagic identifies the Slim-Tree family in the header page, the way
// "SL-7" identified the original family's on-disk format.
var treeMagic = [4]byte{'S', 'L', '-', '7'}

const headerLayoutSize = 27

// treeHeader mirrors the header page's persisted fields: family magic,
// height, object and node counts, the root page id, and the
// family-specific policy configuration the tree was built with.
type treeHeader struct {
	Height       uint32
	ObjectCount  uint64
	NodeCount    uint32
	RootPageID   uint32
	Config       Config
	dirty        bool
}

func readHeader(p *Page) (*treeHeader, error) {
	b := p.Data()
	if len(b) < headerLayoutSize {
		return nil, NewError(ErrFormat, "header page too small")
	}
	var magic [4]byte
	copy(magic[:], b[0:4])
	if magic != treeMagic {
		return nil, ErrBadMagic
	}
	h := &treeHeader{
		Height:      binary.LittleEndian.Uint32(b[4:8]),
		ObjectCount: binary.LittleEndian.Uint64(b[8:16]),
		NodeCount:   binary.LittleEndian.Uint32(b[16:20]),
		RootPageID:  binary.LittleEndian.Uint32(b[20:24]),
		Config: Config{
			ChooseSubtree: ChooseSubtreePolicy(b[24]),
			Split:         SplitPolicy(b[25]),
			PivotCount:    int(b[26]),
		},
	}
	return h, nil
}

// initHeader formats a never-before-used header page for a brand new,
// empty tree built with cfg.
func initHeader(p *Page, cfg Config) *treeHeader {
	h := &treeHeader{Config: cfg, dirty: true}
	h.writeTo(p)
	return h
}

func (h *treeHeader) writeTo(p *Page) {
	b := p.Data()
	copy(b[0:4], treeMagic[:])
	binary.LittleEndian.PutUint32(b[4:8], h.Height)
	binary.LittleEndian.PutUint64(b[8:16], h.ObjectCount)
	binary.LittleEndian.PutUint32(b[16:20], h.NodeCount)
	binary.LittleEndian.PutUint32(b[20:24], h.RootPageID)
	b[24] = byte(h.Config.ChooseSubtree)
	b[25] = byte(h.Config.Split)
	b[26] = byte(h.Config.PivotCount)
	p.MarkDirty()
	h.dirty = false
}

func (h *treeHeader) markDirty() { h.dirty = true }
