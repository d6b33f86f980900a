// Package workspace manages the transient per-request directory that every
// acquisition stage downloads into. A workspace belongs to exactly one
// request and is removed when that request's handling returns.
package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"mediagrab/internal/media"
)

// Workspace is a uniquely named scratch directory.
type Workspace struct {
	dir string
}

// New creates a fresh workspace under parent. An empty parent falls back to
// the system temp directory.
func New(parent string) (*Workspace, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	dir := filepath.Join(parent, "mediagrab-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace root path.
func (w *Workspace) Dir() string { return w.dir }

// Remove deletes the workspace tree. Errors are ignored so Remove is safe in
// defers on every exit path.
func (w *Workspace) Remove() {
	_ = os.RemoveAll(w.dir)
}

// WriteCookieFile materializes cookie text into the workspace and returns its
// path, so the material never outlives the request.
func (w *Workspace) WriteCookieFile(text string) (string, error) {
	path := filepath.Join(w.dir, "cookies.txt")
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// Scan walks the workspace and returns every recognized media file, largest
// first. The candidate set is rebuilt on each call; it is a derived view of
// the directory, not tracked state.
func (w *Workspace) Scan() []media.Candidate {
	var out []media.Candidate
	_ = filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		class, ok := media.ClassOf(path)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, media.Candidate{Path: path, Size: info.Size(), Class: class})
		return nil
	})
	// Stable keeps filesystem enumeration order for equal sizes.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Size > out[j].Size })
	return out
}

// Select picks the largest recognized media file. For mixed downloads (a
// merged video next to a leftover audio temp file, a full image next to its
// thumbnail) the largest file is the primary asset.
func (w *Workspace) Select() (media.Selected, bool) {
	candidates := w.Scan()
	if len(candidates) == 0 {
		return media.Selected{}, false
	}
	best := candidates[0]
	return media.Selected{Path: best.Path, Class: best.Class, Size: best.Size}, true
}
