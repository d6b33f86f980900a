package extractor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"mediagrab/internal/media"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRunner struct {
	out  []byte
	err  error
	args []string
}

func (f *fakeRunner) Run(_ context.Context, args []string) ([]byte, error) {
	f.args = args
	return f.out, f.err
}

func TestBuildArgsVideo(t *testing.T) {
	args := BuildArgs("https://example.com/v", media.KindVideo, "/tmp/ws", "")
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"--no-simulate",
		"-f bestvideo+bestaudio/best",
		"--merge-output-format mp4",
		"--no-playlist",
		"--dump-single-json",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %q", want, joined)
		}
	}
	if strings.Contains(joined, "--cookies") {
		t.Fatalf("unexpected cookies flag in %q", joined)
	}
	if args[len(args)-1] != "https://example.com/v" {
		t.Fatalf("url must be the final argument, got %q", args[len(args)-1])
	}
}

func TestBuildArgsAudio(t *testing.T) {
	args := BuildArgs("u", media.KindAudio, "/tmp/ws", "/tmp/ws/cookies.txt")
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-f bestaudio/best",
		"-x",
		"--audio-format mp3",
		"--audio-quality 192K",
		"--cookies /tmp/ws/cookies.txt",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %q", want, joined)
		}
	}
}

func TestBuildArgsImageSkipsDownload(t *testing.T) {
	joined := strings.Join(BuildArgs("u", media.KindImage, "/tmp/ws", ""), " ")
	if !strings.Contains(joined, "--skip-download") {
		t.Fatalf("image intent must skip download: %q", joined)
	}
	if strings.Contains(joined, "--no-simulate") {
		t.Fatalf("image intent must not force download: %q", joined)
	}
}

func TestExtractDecodesCarousel(t *testing.T) {
	doc := `{
		"id": "post1",
		"title": "carousel",
		"thumbnail": "https://cdn.example.com/top.jpg",
		"entries": [
			{"url": "https://cdn.example.com/a.jpg", "thumbnail": "https://cdn.example.com/at.jpg"},
			{"url": "https://cdn.example.com/b.mp4"}
		],
		"thumbnails": [{"url": "https://cdn.example.com/t0.jpg"}]
	}`
	r := &fakeRunner{out: []byte(doc)}
	a := NewWithRunner(r, time.Minute, discardLogger())
	res := a.Extract(context.Background(), "https://example.com/p", media.KindImage, "/tmp/ws", "")
	if res.Meta == nil {
		t.Fatalf("expected metadata")
	}
	if len(res.Meta.Entries) != 2 || res.Meta.Entries[0].Thumbnail != "https://cdn.example.com/at.jpg" {
		t.Fatalf("unexpected entries %#v", res.Meta.Entries)
	}
	if len(res.Meta.Thumbnails) != 1 || res.Meta.Thumbnails[0].URL != "https://cdn.example.com/t0.jpg" {
		t.Fatalf("unexpected thumbnails %#v", res.Meta.Thumbnails)
	}
}

func TestExtractSwallowsEngineFailure(t *testing.T) {
	r := &fakeRunner{err: errors.New("exit status 1")}
	a := NewWithRunner(r, time.Minute, discardLogger())
	res := a.Extract(context.Background(), "not a url", media.KindVideo, "/tmp/ws", "")
	if res.Meta != nil {
		t.Fatalf("expected empty result, got %#v", res.Meta)
	}
}

func TestExtractToleratesGarbageOutput(t *testing.T) {
	r := &fakeRunner{out: []byte("WARNING: something awful")}
	a := NewWithRunner(r, time.Minute, discardLogger())
	res := a.Extract(context.Background(), "u", media.KindVideo, "/tmp/ws", "")
	if res.Meta != nil {
		t.Fatalf("expected undecodable output to yield no metadata")
	}
}

func TestExtractKeepsPartialMetadataOnFailure(t *testing.T) {
	// yt-dlp with --ignore-errors can exit non-zero after printing a usable
	// document; the metadata must survive.
	r := &fakeRunner{out: []byte(`{"id":"x","thumbnail":"https://cdn.example.com/t.jpg"}`), err: errors.New("exit status 101")}
	a := NewWithRunner(r, time.Minute, discardLogger())
	res := a.Extract(context.Background(), "u", media.KindImage, "/tmp/ws", "")
	if res.Meta == nil || res.Meta.Thumbnail != "https://cdn.example.com/t.jpg" {
		t.Fatalf("expected partial metadata, got %#v", res.Meta)
	}
}
