// Package instagram fetches a single Instagram post natively, bypassing the
// generic extraction engine. It is the last acquisition stage, used only when
// everything else produced no media and the URL carries a post shortcode.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// userAgent mirrors a desktop browser; the web endpoints reject unknown agents.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const defaultBaseURL = "https://www.instagram.com"

// downloadTimeout bounds one media download. It is deliberately much larger
// than the lookup timeout: a carousel video is megabytes, the JSON document
// is not.
const downloadTimeout = 5 * time.Minute

var shortcodePattern = regexp.MustCompile(`(?:/p/|/reel/|/tv/)([^/?#&]+)`)

// Shortcode extracts the post identifier from an Instagram URL. The second
// return value is false when the URL does not name a post, reel, or tv item.
func Shortcode(url string) (string, bool) {
	m := shortcodePattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Client performs native post fetches against the Instagram web API. The
// lookup client carries a short total timeout; downloads run on a client of
// their own, bounded per request by dlTimeout.
type Client struct {
	httpClient *http.Client
	dlClient   *http.Client
	dlTimeout  time.Duration
	baseURL    string
	cookie     string
	logger     *slog.Logger
}

// New builds a Client. cookie is raw Cookie-header material for private or
// rate-limited content; empty is fine for public posts.
func New(timeout time.Duration, cookie string, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		dlClient:   &http.Client{},
		dlTimeout:  downloadTimeout,
		baseURL:    defaultBaseURL,
		cookie:     cookie,
		logger:     log.With(slog.String("component", "instagram")),
	}
}

// post mirrors the slice of the web API response we care about: the media
// URLs of a single post or of every child of a carousel.
type post struct {
	GraphQL struct {
		ShortcodeMedia node `json:"shortcode_media"`
	} `json:"graphql"`
	Items []item `json:"items"`
}

type node struct {
	IsVideo    bool   `json:"is_video"`
	VideoURL   string `json:"video_url"`
	DisplayURL string `json:"display_url"`
	Sidecar    struct {
		Edges []struct {
			Node node `json:"node"`
		} `json:"edges"`
	} `json:"edge_sidecar_to_children"`
}

type item struct {
	ImageVersions struct {
		Candidates []struct {
			URL string `json:"url"`
		} `json:"candidates"`
	} `json:"image_versions2"`
	VideoVersions []struct {
		URL string `json:"url"`
	} `json:"video_versions"`
	CarouselMedia []item `json:"carousel_media"`
}

// FetchPost downloads every media item of the post identified by shortcode
// into dir and returns the written paths. Any failure is terminal for this
// stage and reported as an error; callers swallow it.
func (c *Client) FetchPost(ctx context.Context, shortcode, dir string) ([]string, error) {
	p, err := c.lookup(ctx, shortcode)
	if err != nil {
		return nil, err
	}
	urls := mediaURLs(p)
	if len(urls) == 0 {
		return nil, fmt.Errorf("post %s: no media urls", shortcode)
	}
	var paths []string
	for i, u := range urls {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d%s", shortcode, i, extFor(u.video)))
		if err := c.download(ctx, u.url, path); err != nil {
			c.logger.Warn("post item download failed", slog.String("shortcode", shortcode), slog.Any("error", err))
			continue
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("post %s: all downloads failed", shortcode)
	}
	return paths, nil
}

func (c *Client) lookup(ctx context.Context, shortcode string) (*post, error) {
	url := fmt.Sprintf("%s/p/%s/?__a=1&__d=dis", c.baseURL, shortcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("post %s not found", shortcode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup %s: status %s", shortcode, resp.Status)
	}
	var p post
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode post %s: %w", shortcode, err)
	}
	return &p, nil
}

type mediaURL struct {
	url   string
	video bool
}

func mediaURLs(p *post) []mediaURL {
	var out []mediaURL
	root := p.GraphQL.ShortcodeMedia
	if edges := root.Sidecar.Edges; len(edges) > 0 {
		for _, e := range edges {
			out = appendNode(out, e.Node)
		}
	} else {
		out = appendNode(out, root)
	}
	for _, it := range p.Items {
		children := it.CarouselMedia
		if len(children) == 0 {
			children = []item{it}
		}
		for _, child := range children {
			if len(child.VideoVersions) > 0 {
				out = append(out, mediaURL{url: child.VideoVersions[0].URL, video: true})
			} else if len(child.ImageVersions.Candidates) > 0 {
				out = append(out, mediaURL{url: child.ImageVersions.Candidates[0].URL})
			}
		}
	}
	return out
}

func appendNode(out []mediaURL, n node) []mediaURL {
	switch {
	case n.IsVideo && n.VideoURL != "":
		return append(out, mediaURL{url: n.VideoURL, video: true})
	case n.DisplayURL != "":
		return append(out, mediaURL{url: n.DisplayURL})
	}
	return out
}

func extFor(video bool) string {
	if video {
		return ".mp4"
	}
	return ".jpg"
}

func (c *Client) download(ctx context.Context, url, path string) error {
	ctx, cancel := context.WithTimeout(ctx, c.dlTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.dlClient.Do(req)
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
