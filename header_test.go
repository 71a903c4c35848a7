package slimtree

import "testing"

func TestHeaderInitAndReadRoundTrip(t *testing.T) {
	p := newTestPage(DefaultPageSize)
	cfg := Config{ChooseSubtree: ChooseMinOccupation, Split: SplitMinMax, PivotCount: 2}
	h := initHeader(p, cfg)
	h.RootPageID = 5
	h.Height = 3
	h.ObjectCount = 1000
	h.NodeCount = 9
	h.writeTo(p)

	read, err := readHeader(p)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if read.RootPageID != 5 || read.Height != 3 || read.ObjectCount != 1000 || read.NodeCount != 9 {
		t.Fatalf("readHeader round-trip mismatch: %+v", read)
	}
	if read.Config != cfg {
		t.Fatalf("Config round-trip mismatch: got %+v, want %+v", read.Config, cfg)
	}
}

func TestHeaderRejectsBadMagic(t *testing.T) {
	p := newTestPage(DefaultPageSize)
	// Never initialized: all zero bytes, which is not the tree magic.
	if _, err := readHeader(p); Code(err) != ErrFormat {
		t.Fatalf("readHeader on an uninitialized page: err = %v, want ErrFormat", err)
	}
}
