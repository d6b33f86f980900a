// Package media contains the shared data model: what the user asked for, what
// a downloaded file turned out to be, and the extension table used to tell
// media files apart from extractor leftovers.
package media

import (
	"path/filepath"
	"strings"
)

// Kind is the format the user requested for a link.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

// ParseKind validates a kind string coming from a callback payload.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindVideo, KindAudio, KindImage:
		return Kind(s), true
	}
	return "", false
}

// Class is what a downloaded file actually is, inferred from its extension.
type Class string

const (
	ClassPhoto Class = "photo"
	ClassAudio Class = "audio"
	ClassVideo Class = "video"
)

var classByExt = map[string]Class{
	".jpg":  ClassPhoto,
	".jpeg": ClassPhoto,
	".png":  ClassPhoto,
	".webp": ClassPhoto,
	".mp3":  ClassAudio,
	".m4a":  ClassAudio,
	".aac":  ClassAudio,
	".ogg":  ClassAudio,
	".mp4":  ClassVideo,
	".mkv":  ClassVideo,
	".mov":  ClassVideo,
	".webm": ClassVideo,
}

// ClassOf maps a file path to its media class. The second return value is
// false for unrecognized extensions, which excludes the file from candidacy.
func ClassOf(path string) (Class, bool) {
	c, ok := classByExt[strings.ToLower(filepath.Ext(path))]
	return c, ok
}

// IsImageURL reports whether a remote URL plainly points at an image file.
func IsImageURL(u string) bool {
	ext := strings.ToLower(filepath.Ext(stripQuery(u)))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// Candidate is one recognized media file found in a workspace.
type Candidate struct {
	Path  string
	Size  int64
	Class Class
}

// Selected is the single candidate chosen for delivery. The holder owns the
// file on disk and is responsible for its final removal.
type Selected struct {
	Path  string
	Class Class
	Size  int64
}
