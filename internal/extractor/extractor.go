// Package extractor wraps the yt-dlp executable behind a small capability
// interface. The engine understands per-site scraping; this package only
// decides what to ask for and what to make of the answer.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"mediagrab/internal/media"
)

// Result is what one extraction attempt produced: files written into the
// workspace and, when the engine printed an info document, decoded metadata.
type Result struct {
	Meta *Metadata
}

// Runner executes the engine binary. The default runs yt-dlp via exec; tests
// substitute a fake.
type Runner interface {
	Run(ctx context.Context, args []string) ([]byte, error)
}

type execRunner struct {
	binary string
}

func (r execRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	err := cmd.Run()
	return stdout.Bytes(), err
}

// Adapter invokes the engine with a format intent and collects its output.
type Adapter struct {
	runner  Runner
	timeout time.Duration
	logger  *slog.Logger
}

// New builds an Adapter around the yt-dlp binary at path. An empty path means
// "yt-dlp" resolved from PATH.
func New(binary string, timeout time.Duration, log *slog.Logger) *Adapter {
	if binary == "" {
		binary = "yt-dlp"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		runner:  execRunner{binary: binary},
		timeout: timeout,
		logger:  log.With(slog.String("component", "extractor")),
	}
}

// NewWithRunner builds an Adapter with a custom Runner, for tests.
func NewWithRunner(r Runner, timeout time.Duration, log *slog.Logger) *Adapter {
	a := New("", timeout, log)
	a.runner = r
	return a
}

// Extract runs the engine against url with the format intent for kind.
// For video and audio the engine downloads into dir; for image it only
// resolves metadata and the caller fetches image bytes itself.
//
// Every engine failure degrades to an empty Result: a broken extractor run
// must not stop the pipeline from trying its fallback stages.
func (a *Adapter) Extract(ctx context.Context, url string, kind media.Kind, dir, cookieFile string) Result {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	args := BuildArgs(url, kind, dir, cookieFile)
	out, err := a.runner.Run(ctx, args)
	if err != nil {
		a.logger.Warn("engine run failed", slog.String("url", url), slog.Any("error", err))
		// yt-dlp can leave partial output and files behind; keep decoding.
	}
	meta := decodeMetadata(out)
	if meta == nil && err == nil {
		a.logger.Warn("engine produced no metadata", slog.String("url", url))
	}
	return Result{Meta: meta}
}

// BuildArgs assembles the engine command line for one format intent.
func BuildArgs(url string, kind media.Kind, dir, cookieFile string) []string {
	args := []string{
		"--dump-single-json",
		"--no-playlist",
		"--ignore-errors",
		"--no-warnings",
		"--restrict-filenames",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
	}
	switch kind {
	case media.KindVideo:
		args = append(args,
			"--no-simulate",
			"-f", "bestvideo+bestaudio/best",
			"--merge-output-format", "mp4",
		)
	case media.KindAudio:
		args = append(args,
			"--no-simulate",
			"-f", "bestaudio/best",
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", "192K",
		)
	case media.KindImage:
		// Metadata only; image bytes are fetched over plain HTTP afterwards.
		args = append(args, "--skip-download")
	}
	if cookieFile != "" {
		args = append(args, "--cookies", cookieFile)
	}
	return append(args, url)
}

func decodeMetadata(out []byte) *Metadata {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil
	}
	var meta Metadata
	if err := json.Unmarshal(out, &meta); err != nil {
		return nil
	}
	return &meta
}
