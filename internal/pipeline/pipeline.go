// Package pipeline runs the acquisition stages for one request: engine
// extraction, the image-URL fallback, the native Instagram fallback, then
// selection of the best file. Stages run strictly in order and each failed
// stage simply hands over to the next; only the final "nothing found" is an
// error.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"mediagrab/internal/extractor"
	"mediagrab/internal/fetcher"
	"mediagrab/internal/instagram"
	"mediagrab/internal/media"
	"mediagrab/internal/workspace"
)

// ErrNoMedia is returned when every acquisition stage came up empty. It covers
// private, removed, and unsupported content alike.
var ErrNoMedia = errors.New("no media found")

// Engine is the extraction capability (yt-dlp behind extractor.Adapter).
type Engine interface {
	Extract(ctx context.Context, url string, kind media.Kind, dir, cookieFile string) extractor.Result
}

// ImageFetcher downloads candidate image URLs into a directory.
type ImageFetcher interface {
	FetchAll(ctx context.Context, urls []string, dir string) []string
}

// PostFetcher performs the platform-native Instagram post fetch.
type PostFetcher interface {
	FetchPost(ctx context.Context, shortcode, dir string) ([]string, error)
}

// Request is one acquisition order: a source URL and the format the user
// picked for it.
type Request struct {
	URL  string
	Kind media.Kind
}

// Pipeline wires the acquisition stages together.
type Pipeline struct {
	engine     Engine
	images     ImageFetcher
	posts      PostFetcher
	scratchDir string
	cookieText string
	cookiePath string
	logger     *slog.Logger
}

// Options carries the optional knobs for New.
type Options struct {
	// ScratchDir hosts per-request workspaces; empty means the system temp dir.
	ScratchDir string
	// CookieText, when set, is written into each workspace and handed to the
	// engine. CookiePath points at an existing cookie file instead.
	CookieText string
	CookiePath string
	Logger     *slog.Logger
}

// New constructs a Pipeline. posts may be nil when no Instagram fallback is
// wanted.
func New(engine Engine, images ImageFetcher, posts PostFetcher, opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		engine:     engine,
		images:     images,
		posts:      posts,
		scratchDir: opts.ScratchDir,
		cookieText: opts.CookieText,
		cookiePath: opts.CookiePath,
		logger:     log.With(slog.String("component", "pipeline")),
	}
}

// Fetch acquires the best media file for req. On success the returned cleanup
// function removes the request's workspace and must be deferred by the caller
// once the file has been delivered or disposed of; on error cleanup has
// already run. The selected file lives inside the workspace until delivery
// moves or deletes it.
func (p *Pipeline) Fetch(ctx context.Context, req Request) (media.Selected, func(), error) {
	ws, err := workspace.New(p.scratchDir)
	if err != nil {
		return media.Selected{}, nil, fmt.Errorf("create workspace: %w", err)
	}
	cleanup := ws.Remove

	cookieFile := p.resolveCookieFile(ws)

	res := p.engine.Extract(ctx, req.URL, req.Kind, ws.Dir(), cookieFile)

	// Image requests defer byte transfer to the plain fetcher; other kinds
	// reach it only when the engine downloaded nothing.
	if req.Kind == media.KindImage || len(ws.Scan()) == 0 {
		if urls := fetcher.CandidateURLs(res.Meta); len(urls) > 0 {
			fetched := p.images.FetchAll(ctx, urls, ws.Dir())
			p.logger.Info("image fallback", slog.Int("candidates", len(urls)), slog.Int("fetched", len(fetched)))
		}
	}

	if len(ws.Scan()) == 0 && p.posts != nil {
		if shortcode, ok := instagram.Shortcode(req.URL); ok {
			paths, err := p.posts.FetchPost(ctx, shortcode, ws.Dir())
			if err != nil {
				// Terminal for this stage only; the overall outcome stays
				// "no media found" unless files actually appeared.
				p.logger.Warn("instagram fallback failed", slog.String("shortcode", shortcode), slog.Any("error", err))
			} else {
				p.logger.Info("instagram fallback", slog.Int("files", len(paths)))
			}
		}
	}

	sel, ok := ws.Select()
	if !ok {
		cleanup()
		return media.Selected{}, nil, ErrNoMedia
	}
	p.logger.Info("selected",
		slog.String("path", sel.Path),
		slog.String("class", string(sel.Class)),
		slog.Int64("size", sel.Size),
	)
	return sel, cleanup, nil
}

func (p *Pipeline) resolveCookieFile(ws *workspace.Workspace) string {
	if p.cookieText != "" {
		path, err := ws.WriteCookieFile(p.cookieText)
		if err == nil {
			return path
		}
		p.logger.Warn("write cookie file failed", slog.Any("error", err))
	}
	if p.cookiePath != "" {
		if _, err := os.Stat(p.cookiePath); err == nil {
			return p.cookiePath
		}
	}
	return ""
}
