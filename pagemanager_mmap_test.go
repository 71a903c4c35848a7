package slimtree

import (
	"path/filepath"
	"testing"
)

func TestOpenFileCreatesAndReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.db")

	pm, err := OpenFile(path, DefaultPageSize)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if !pm.IsEmpty() {
		t.Fatal("a freshly created file should report IsEmpty")
	}

	hp, err := pm.GetHeaderPage()
	if err != nil {
		t.Fatalf("GetHeaderPage: %v", err)
	}
	copy(hp.Data(), []byte("SL-7"))
	if err := pm.ReleasePage(hp, true); err != nil {
		t.Fatalf("ReleasePage: %v", err)
	}

	page, err := pm.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	id := page.ID()
	copy(page.Data(), []byte("hello page"))
	if err := pm.ReleasePage(page, true); err != nil {
		t.Fatalf("ReleasePage: %v", err)
	}
	if err := pm.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	pm2, err := OpenFile(path, DefaultPageSize)
	if err != nil {
		t.Fatalf("reopen OpenFile: %v", err)
	}
	defer pm2.Close()
	if pm2.IsEmpty() {
		t.Fatal("reopened file with allocated pages should not report IsEmpty")
	}

	got, err := pm2.GetPage(id)
	if err != nil {
		t.Fatalf("GetPage after reopen: %v", err)
	}
	if string(got.Data()[:10]) != "hello page" {
		t.Fatalf("page contents did not survive reopen: %q", got.Data()[:10])
	}
	pm2.ReleasePage(got, false)
}

func TestFilePageManagerFreeListReuse(t *testing.T) {
	dir := t.TempDir()
	pm, err := OpenFile(filepath.Join(dir, "tree.db"), DefaultPageSize)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer pm.Close()

	p1, _ := pm.NewPage()
	id1 := p1.ID()
	pm.ReleasePage(p1, false)
	if err := pm.DisposePage(id1); err != nil {
		t.Fatalf("DisposePage: %v", err)
	}

	p2, err := pm.NewPage()
	if err != nil {
		t.Fatalf("NewPage after dispose: %v", err)
	}
	if p2.ID() != id1 {
		t.Fatalf("NewPage() = %d, want reused id %d", p2.ID(), id1)
	}
	pm.ReleasePage(p2, false)
}

func TestFilePageManagerRejectsDoubleCheckout(t *testing.T) {
	dir := t.TempDir()
	pm, err := OpenFile(filepath.Join(dir, "tree.db"), DefaultPageSize)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer pm.Close()

	p, _ := pm.NewPage()
	id := p.ID()
	if _, err := pm.GetPage(id); Code(err) != ErrInvariant {
		t.Fatalf("GetPage on a checked-out page: err = %v, want ErrInvariant", err)
	}
	pm.ReleasePage(p, false)
}

func TestOpenFileRejectsUndersizedPages(t *testing.T) {
	dir := t.TempDir()
	if _, err := OpenFile(filepath.Join(dir, "tree.db"), 64); Code(err) != ErrFormat {
		t.Fatalf("OpenFile with page size below the minimum: err = %v, want ErrFormat", err)
	}
}
