// Package config reads the bot's runtime configuration from environment
// variables and exposes it as typed values with sane defaults.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is the full configuration surface.
type Config struct {
	// BotToken authorizes the Telegram session. Read from TELEGRAM_TOKEN,
	// BOT_TOKEN, or MEDIAGRAB_TOKEN, in that order.
	BotToken string

	// InlineLimit is the size up to which files are sent inline through the
	// chat. ProtocolMax is the hard limit the chat protocol imposes on
	// uploads; the router clamps InlineLimit to it.
	InlineLimit int64
	ProtocolMax int64

	// Timeout bounds the plain HTTP operations (image fetches, post lookups,
	// upload attempts). ExtractTimeout bounds one engine run, which can
	// legitimately take minutes for a large video.
	Timeout        time.Duration
	ExtractTimeout time.Duration

	// CookieText is raw cookie-file content supplied inline; CookiePath
	// points at a cookie file on disk. Either unlocks private content.
	// InstagramCookie is Cookie-header material for the native post fetch.
	CookieText      string
	CookiePath      string
	InstagramCookie string

	// UploadEndpoint is a transfer.sh-style anonymous PUT endpoint. Empty
	// disables that delivery strategy.
	UploadEndpoint string

	// S3 settings for the object-store delivery strategy. An empty endpoint
	// disables it. S3UploadTimeout zero leaves the uploader's own default.
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3Region        string
	S3UseSSL        bool
	S3UploadTimeout time.Duration

	// PublicBase is the externally reachable base URL of the static file
	// server; empty disables the local-fallback delivery strategy.
	PublicBase   string
	DownloadsDir string
	Listen       string

	Workers   int
	TokenTTL  time.Duration
	YtdlpPath string
}

const (
	defaultInlineLimit = 50 << 20 // Telegram bot uploads cap at 50 MiB
	defaultProtocolMax = 50 << 20
	defaultTimeout     = 30 * time.Second
	defaultExtract     = 10 * time.Minute
	defaultListen      = ":8080"
	defaultWorkers     = 2
)

// ErrMissingToken is returned when no bot token variable is set.
var ErrMissingToken = errors.New("missing bot token: set TELEGRAM_TOKEN")

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:        firstEnv("TELEGRAM_TOKEN", "BOT_TOKEN", "MEDIAGRAB_TOKEN"),
		InlineLimit:     parseInt64("MEDIAGRAB_INLINE_LIMIT_BYTES", defaultInlineLimit),
		ProtocolMax:     parseInt64("MEDIAGRAB_PROTOCOL_MAX_BYTES", defaultProtocolMax),
		Timeout:         parseDuration("MEDIAGRAB_TIMEOUT", defaultTimeout),
		ExtractTimeout:  parseDuration("MEDIAGRAB_EXTRACT_TIMEOUT", defaultExtract),
		CookieText:      os.Getenv("COOKIES_TXT"),
		CookiePath:      os.Getenv("COOKIE_FILE_PATH"),
		InstagramCookie: os.Getenv("MEDIAGRAB_INSTAGRAM_COOKIE"),
		UploadEndpoint:  readEnv("MEDIAGRAB_UPLOAD_ENDPOINT", ""),
		S3Endpoint:      readEnv("MEDIAGRAB_S3_ENDPOINT", ""),
		S3AccessKey:     readEnv("MEDIAGRAB_S3_ACCESS_KEY", ""),
		S3SecretKey:     readEnv("MEDIAGRAB_S3_SECRET_KEY", ""),
		S3Bucket:        readEnv("MEDIAGRAB_S3_BUCKET", "mediagrab"),
		S3Region:        readEnv("MEDIAGRAB_S3_REGION", "us-east-1"),
		S3UseSSL:        parseBool("MEDIAGRAB_S3_USE_SSL", true),
		S3UploadTimeout: parseDuration("MEDIAGRAB_S3_UPLOAD_TIMEOUT", 0),
		PublicBase:      strings.TrimRight(readEnv("MEDIAGRAB_PUBLIC_BASE_URL", ""), "/"),
		DownloadsDir:    readEnv("MEDIAGRAB_DOWNLOADS_DIR", filepath.Join(os.TempDir(), "mediagrab-downloads")),
		Listen:          readEnv("MEDIAGRAB_LISTEN", defaultListen),
		Workers:         parseInt("MEDIAGRAB_WORKERS", defaultWorkers),
		TokenTTL:        parseDuration("MEDIAGRAB_TOKEN_TTL", 0),
		YtdlpPath:       readEnv("MEDIAGRAB_YTDLP_PATH", "yt-dlp"),
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.InlineLimit <= 0 {
		cfg.InlineLimit = defaultInlineLimit
	}
	if cfg.ProtocolMax <= 0 {
		cfg.ProtocolMax = defaultProtocolMax
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = defaultExtract
	}
	return cfg, nil
}

// RequireToken validates that a bot token is present; the fetch CLI runs
// without one, the bot does not.
func (c *Config) RequireToken() error {
	if c.BotToken == "" {
		return ErrMissingToken
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
		// Bare integers are treated as seconds for deployment convenience.
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
