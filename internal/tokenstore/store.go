// Package tokenstore correlates the short opaque token embedded in an inline
// keyboard callback with the full source URL of the original message. Telegram
// callback data is limited to 64 bytes, so the URL itself can never ride along.
package tokenstore

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	url      string
	deadline time.Time
}

// Store is an in-memory single-use token map, safe for concurrent use. It is
// the only state shared across request handlers; contents are intentionally
// lost on restart.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New constructs a Store. A ttl of zero disables expiry; entries then live
// until consumed.
func New(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores the URL under a fresh random 128-bit token and returns the token.
func (s *Store) Put(url string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry{url: url}
	if s.ttl > 0 {
		e.deadline = s.now().Add(s.ttl)
	}
	s.entries[token] = e
	return token
}

// Restore reinstates a URL under a previously issued token, with a fresh
// deadline when expiry is enabled. It undoes a TakeOnce whose work was never
// started, so the button that carries the token stays usable.
func (s *Store) Restore(token, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry{url: url}
	if s.ttl > 0 {
		e.deadline = s.now().Add(s.ttl)
	}
	s.entries[token] = e
}

// TakeOnce removes and returns the URL for token. A second call with the same
// token reports false, so a stale button press cannot replay a superseded
// request.
func (s *Store) TakeOnce(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	if !ok {
		return "", false
	}
	delete(s.entries, token)
	if !e.deadline.IsZero() && s.now().After(e.deadline) {
		return "", false
	}
	return e.url, true
}

// Sweep drops entries whose deadline passed. It is a no-op when expiry is
// disabled; the bot calls it on a ticker so abandoned tokens do not pile up.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ttl <= 0 {
		return 0
	}
	now := s.now()
	removed := 0
	for token, e := range s.entries {
		if now.After(e.deadline) {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
