package tokenstore

import (
	"sync"
	"testing"
	"time"
)

func TestTakeOnce(t *testing.T) {
	s := New(0)
	token := s.Put("https://example.com/watch?v=abc")
	if len(token) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", token)
	}
	url, ok := s.TakeOnce(token)
	if !ok || url != "https://example.com/watch?v=abc" {
		t.Fatalf("first take: got %q, %v", url, ok)
	}
	if _, ok := s.TakeOnce(token); ok {
		t.Fatalf("second take should report not found")
	}
}

func TestRestoreReinstatesToken(t *testing.T) {
	s := New(0)
	token := s.Put("https://example.com/v")
	url, ok := s.TakeOnce(token)
	if !ok {
		t.Fatalf("first take failed")
	}
	s.Restore(token, url)
	if got, ok := s.TakeOnce(token); !ok || got != "https://example.com/v" {
		t.Fatalf("restored token should resolve again, got %q %v", got, ok)
	}
}

func TestRestoreRefreshesDeadline(t *testing.T) {
	s := New(time.Minute)
	current := time.Unix(1700000000, 0)
	s.now = func() time.Time { return current }

	token := s.Put("u")
	url, _ := s.TakeOnce(token)
	current = current.Add(50 * time.Second)
	s.Restore(token, url)
	current = current.Add(30 * time.Second) // past the original deadline
	if _, ok := s.TakeOnce(token); !ok {
		t.Fatalf("restore must start a fresh ttl window")
	}
}

func TestTakeOnceUnknownToken(t *testing.T) {
	s := New(0)
	if _, ok := s.TakeOnce("deadbeef"); ok {
		t.Fatalf("expected unknown token to report not found")
	}
}

func TestTokensAreUnique(t *testing.T) {
	s := New(0)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := s.Put("u")
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}

func TestExpiry(t *testing.T) {
	s := New(time.Minute)
	current := time.Unix(1700000000, 0)
	s.now = func() time.Time { return current }

	token := s.Put("https://example.com/a")
	current = current.Add(2 * time.Minute)
	if _, ok := s.TakeOnce(token); ok {
		t.Fatalf("expected expired token to report not found")
	}

	token = s.Put("https://example.com/b")
	current = current.Add(30 * time.Second)
	if url, ok := s.TakeOnce(token); !ok || url != "https://example.com/b" {
		t.Fatalf("expected live token to resolve, got %q %v", url, ok)
	}
}

func TestSweep(t *testing.T) {
	s := New(time.Minute)
	current := time.Unix(1700000000, 0)
	s.now = func() time.Time { return current }

	s.Put("a")
	s.Put("b")
	current = current.Add(time.Hour)
	s.Put("c")

	if removed := s.Sweep(); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", s.Len())
	}
}

func TestSweepDisabled(t *testing.T) {
	s := New(0)
	s.Put("a")
	if removed := s.Sweep(); removed != 0 {
		t.Fatalf("sweep with expiry disabled removed %d", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("expected entry to survive, got %d", s.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				token := s.Put("url")
				if _, ok := s.TakeOnce(token); !ok {
					t.Errorf("lost own token")
					return
				}
			}
		}()
	}
	wg.Wait()
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d entries", s.Len())
	}
}
