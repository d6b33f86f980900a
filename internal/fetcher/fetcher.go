// Package fetcher downloads still-image candidates named by engine metadata.
// It is the fallback path for image requests and for extractions that
// resolved metadata without producing files.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediagrab/internal/extractor"
	"mediagrab/internal/media"
)

// CandidateURLs flattens metadata into an ordered, deduplicated list of image
// URLs worth fetching. Priority: carousel entry media URLs that are plainly
// images, entry thumbnails, the top-level media URL when plainly an image,
// the top-level thumbnail, then everything in the thumbnails list. The first
// occurrence of a URL wins.
func CandidateURLs(meta *extractor.Metadata) []string {
	if meta == nil {
		return nil
	}
	var raw []string
	for _, e := range meta.Entries {
		if e.URL != "" && media.IsImageURL(e.URL) {
			raw = append(raw, e.URL)
		}
		if e.Thumbnail != "" {
			raw = append(raw, e.Thumbnail)
		}
	}
	if meta.URL != "" && media.IsImageURL(meta.URL) {
		raw = append(raw, meta.URL)
	}
	if meta.Thumbnail != "" {
		raw = append(raw, meta.Thumbnail)
	}
	for _, t := range meta.Thumbnails {
		if t.URL != "" {
			raw = append(raw, t.URL)
		}
	}
	seen := make(map[string]bool, len(raw))
	out := raw[:0]
	for _, u := range raw {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// Fetcher streams candidate URLs to disk over plain HTTP.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// New builds a Fetcher with the given per-request timeout.
func New(timeout time.Duration, log *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: log.With(slog.String("component", "fetcher")),
	}
}

// FetchAll downloads each URL into dir, naming files img_<n> with the URL's
// extension. One failed candidate does not stop the rest; failures are logged
// and skipped. Returns the paths that were written.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string, dir string) []string {
	var paths []string
	for i, u := range urls {
		ext := urlExt(u)
		path := filepath.Join(dir, fmt.Sprintf("img_%d%s", i, ext))
		if err := f.fetch(ctx, u, path); err != nil {
			f.logger.Warn("candidate fetch failed", slog.String("url", u), slog.Any("error", err))
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

func (f *Fetcher) fetch(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %s", resp.Status)
	}
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, resp.Body); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

func urlExt(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	ext := filepath.Ext(u)
	if _, ok := media.ClassOf("x" + ext); !ok {
		return ".jpg"
	}
	return ext
}
