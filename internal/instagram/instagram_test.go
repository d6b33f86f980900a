package instagram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestShortcode(t *testing.T) {
	cases := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://www.instagram.com/p/Cxyz123/", "Cxyz123", true},
		{"https://instagram.com/reel/AbC-9_x/?igsh=aaa", "AbC-9_x", true},
		{"https://www.instagram.com/tv/QQQ111", "QQQ111", true},
		{"https://www.instagram.com/someuser/", "", false},
		{"https://youtube.com/watch?v=abc", "", false},
	}
	for _, c := range cases {
		got, ok := Shortcode(c.url)
		if ok != c.ok || got != c.want {
			t.Fatalf("Shortcode(%q) = %q, %v; want %q, %v", c.url, got, ok, c.want, c.ok)
		}
	}
}

func TestFetchPostCarousel(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/p/SHORT/":
			gotCookie = r.Header.Get("Cookie")
			resp := map[string]any{
				"graphql": map[string]any{
					"shortcode_media": map[string]any{
						"edge_sidecar_to_children": map[string]any{
							"edges": []any{
								map[string]any{"node": map[string]any{"display_url": "http://" + r.Host + "/img1"}},
								map[string]any{"node": map[string]any{"is_video": true, "video_url": "http://" + r.Host + "/vid1"}},
							},
						},
					},
				},
			}
			json.NewEncoder(w).Encode(resp)
		case "/img1":
			w.Write([]byte("image-bytes"))
		case "/vid1":
			w.Write([]byte("video-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(5*time.Second, "sessionid=abc", discardLogger())
	c.baseURL = srv.URL
	dir := t.TempDir()
	paths, err := c.FetchPost(context.Background(), "SHORT", dir)
	if err != nil {
		t.Fatalf("fetch post: %v", err)
	}
	if gotCookie != "sessionid=abc" {
		t.Fatalf("cookie header not forwarded, got %q", gotCookie)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 files, got %v", paths)
	}
	if filepath.Ext(paths[0]) != ".jpg" || filepath.Ext(paths[1]) != ".mp4" {
		t.Fatalf("unexpected extensions %v", paths)
	}
	data, err := os.ReadFile(paths[1])
	if err != nil || string(data) != "video-bytes" {
		t.Fatalf("unexpected video content %q err %v", data, err)
	}
}

func TestFetchPostSingleImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/p/ONE/" {
			json.NewEncoder(w).Encode(map[string]any{
				"graphql": map[string]any{
					"shortcode_media": map[string]any{"display_url": "http://" + r.Host + "/pic"},
				},
			})
			return
		}
		w.Write([]byte("pic"))
	}))
	defer srv.Close()

	c := New(5*time.Second, "", discardLogger())
	c.baseURL = srv.URL
	paths, err := c.FetchPost(context.Background(), "ONE", t.TempDir())
	if err != nil || len(paths) != 1 {
		t.Fatalf("expected single file, got %v err %v", paths, err)
	}
}

func TestDownloadOutlastsLookupTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("video-bytes"))
	}))
	defer srv.Close()

	// A lookup timeout far below the server delay must not cut the media
	// transfer short; downloads carry their own, larger bound.
	c := New(20*time.Millisecond, "", discardLogger())
	c.baseURL = srv.URL
	path := filepath.Join(t.TempDir(), "SHORT_0.mp4")
	if err := c.download(context.Background(), srv.URL+"/media", path); err != nil {
		t.Fatalf("download bounded by lookup timeout: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "video-bytes" {
		t.Fatalf("unexpected content %q err %v", data, err)
	}
}

func TestDownloadIsBounded(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := New(time.Second, "", discardLogger())
	c.dlTimeout = 30 * time.Millisecond
	path := filepath.Join(t.TempDir(), "x.mp4")
	if err := c.download(context.Background(), srv.URL+"/media", path); err == nil {
		t.Fatalf("expected stalled download to fail on its own deadline")
	}
}

func TestFetchPostNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	c := New(5*time.Second, "", discardLogger())
	c.baseURL = srv.URL
	if _, err := c.FetchPost(context.Background(), "GONE", t.TempDir()); err == nil {
		t.Fatalf("expected error for missing post")
	}
}

func TestFetchPostNoMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"graphql": map[string]any{}})
	}))
	defer srv.Close()

	c := New(5*time.Second, "", discardLogger())
	c.baseURL = srv.URL
	if _, err := c.FetchPost(context.Background(), "EMPTY", t.TempDir()); err == nil {
		t.Fatalf("expected error when post has no media")
	}
}
