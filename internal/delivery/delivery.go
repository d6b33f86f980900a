// Package delivery decides how a selected media file reaches the user: sent
// inline through the chat transport, uploaded to an object store for a public
// link, or moved under the bot's own static file server. The strategy is
// picked by file size and degrades left to right.
package delivery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"mediagrab/internal/media"
)

// Status names the terminal state a delivery reached.
type Status string

const (
	StatusInline     Status = "inline"
	StatusRemoteLink Status = "remote_link"
	StatusLocalLink  Status = "local_link"
	StatusTooLarge   Status = "too_large"
	StatusFailure    Status = "failure"
)

// Outcome is the tagged result of one delivery. URL is set for the link
// states, Size for TooLarge, Reason for Failure.
type Outcome struct {
	Status Status
	URL    string
	Size   string
	Reason string
}

// Transport sends media bytes directly through the conversational front end.
type Transport interface {
	SendPhoto(ctx context.Context, chatID int64, path string) error
	SendAudio(ctx context.Context, chatID int64, path string) error
	SendVideo(ctx context.Context, chatID int64, path string) error
}

// Uploader pushes a local file somewhere public and returns a retrievable
// URL. Failures are soft; the router falls through to the next strategy.
type Uploader interface {
	Upload(ctx context.Context, path string, size int64) (string, error)
}

// Router executes the size-based delivery decision.
type Router struct {
	transport    Transport
	uploaders    []Uploader
	inlineLimit  int64
	protocolMax  int64
	downloadsDir string
	publicBase   string
	logger       *slog.Logger
}

// Config holds the router's knobs.
type Config struct {
	// InlineLimit is the operator-chosen inline threshold; it is clamped to
	// ProtocolMax so a misconfigured limit can never push an oversized file
	// through the chat protocol.
	InlineLimit  int64
	ProtocolMax  int64
	DownloadsDir string
	PublicBase   string
}

// NewRouter builds a Router. uploaders are tried in order; an empty slice
// skips straight to the local fallback.
func NewRouter(transport Transport, uploaders []Uploader, cfg Config, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		transport:    transport,
		uploaders:    uploaders,
		inlineLimit:  cfg.InlineLimit,
		protocolMax:  cfg.ProtocolMax,
		downloadsDir: cfg.DownloadsDir,
		publicBase:   strings.TrimRight(cfg.PublicBase, "/"),
		logger:       log.With(slog.String("component", "delivery")),
	}
}

// Deliver routes sel to the user in chatID and disposes of the file: it is
// sent and deleted, uploaded and deleted, moved into the downloads directory,
// or deleted on terminal failure. Exactly one terminal Outcome is returned.
func (r *Router) Deliver(ctx context.Context, chatID int64, sel media.Selected) Outcome {
	limit := r.inlineLimit
	if limit > r.protocolMax {
		limit = r.protocolMax
	}

	if sel.Size <= limit {
		if err := r.sendInline(ctx, chatID, sel); err != nil {
			r.logger.Error("inline send failed", slog.Any("error", err))
			_ = os.Remove(sel.Path)
			return Outcome{Status: StatusFailure, Reason: "sending the file failed"}
		}
		_ = os.Remove(sel.Path)
		return Outcome{Status: StatusInline}
	}

	for _, up := range r.uploaders {
		link, err := up.Upload(ctx, sel.Path, sel.Size)
		if err != nil {
			r.logger.Warn("upload attempt failed", slog.Any("error", err))
			continue
		}
		_ = os.Remove(sel.Path)
		return Outcome{Status: StatusRemoteLink, URL: link}
	}

	if r.publicBase == "" {
		_ = os.Remove(sel.Path)
		if sel.Size > r.protocolMax {
			return Outcome{Status: StatusTooLarge, Size: humanize.IBytes(uint64(sel.Size))}
		}
		return Outcome{Status: StatusFailure, Reason: "no delivery path configured"}
	}

	name := filepath.Base(sel.Path)
	dst := filepath.Join(r.downloadsDir, name)
	if err := moveFile(sel.Path, dst); err != nil {
		r.logger.Error("local fallback move failed", slog.Any("error", err))
		_ = os.Remove(sel.Path)
		return Outcome{Status: StatusFailure, Reason: "storing the file failed"}
	}
	return Outcome{Status: StatusLocalLink, URL: r.publicBase + "/downloads/" + url.PathEscape(name)}
}

func (r *Router) sendInline(ctx context.Context, chatID int64, sel media.Selected) error {
	switch sel.Class {
	case media.ClassPhoto:
		return r.transport.SendPhoto(ctx, chatID, sel.Path)
	case media.ClassAudio:
		return r.transport.SendAudio(ctx, chatID, sel.Path)
	default:
		return r.transport.SendVideo(ctx, chatID, sel.Path)
	}
}

// moveFile renames src to dst, copying when the rename crosses filesystems
// (workspaces live in tmp, the downloads dir may not).
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
