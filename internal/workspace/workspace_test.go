package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"mediagrab/internal/media"
)

func write(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestScanFiltersAndOrders(t *testing.T) {
	ws, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	defer ws.Remove()

	write(t, ws.Dir(), "abc.mp4", 500)
	write(t, ws.Dir(), "abc.m4a", 100)
	write(t, ws.Dir(), "nested/thumb.jpg", 50)
	write(t, ws.Dir(), "abc.description", 9000) // unrecognized, excluded
	write(t, ws.Dir(), "cookies.txt", 40)

	got := ws.Scan()
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d: %#v", len(got), got)
	}
	if got[0].Size != 500 || got[0].Class != media.ClassVideo {
		t.Fatalf("expected largest video first, got %#v", got[0])
	}
	if got[2].Class != media.ClassPhoto {
		t.Fatalf("expected nested photo last, got %#v", got[2])
	}
}

func TestSelectEmpty(t *testing.T) {
	ws, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	defer ws.Remove()
	if _, ok := ws.Select(); ok {
		t.Fatalf("expected no selection from empty workspace")
	}
}

func TestSelectLargest(t *testing.T) {
	ws, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	defer ws.Remove()
	write(t, ws.Dir(), "full.png", 4000)
	write(t, ws.Dir(), "thumb.png", 10)

	sel, ok := ws.Select()
	if !ok {
		t.Fatalf("expected a selection")
	}
	if filepath.Base(sel.Path) != "full.png" || sel.Size != 4000 || sel.Class != media.ClassPhoto {
		t.Fatalf("unexpected selection %#v", sel)
	}
}

func TestRemoveLeavesNothing(t *testing.T) {
	parent := t.TempDir()
	ws, err := New(parent)
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	write(t, ws.Dir(), "clip.mp4", 10)
	ws.Remove()
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Fatalf("expected workspace to be gone, stat err = %v", err)
	}
	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatalf("read parent: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected parent to be empty, found %d entries", len(entries))
	}
}

func TestWriteCookieFile(t *testing.T) {
	ws, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	defer ws.Remove()
	path, err := ws.WriteCookieFile("# Netscape HTTP Cookie File\n")
	if err != nil {
		t.Fatalf("write cookie file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "# Netscape HTTP Cookie File\n" {
		t.Fatalf("unexpected cookie content %q", data)
	}
}
