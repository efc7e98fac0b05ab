package session

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/tiledgallery/pkg/errors"
	"github.com/matzehuels/tiledgallery/pkg/loader"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time         { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func newSession(t *testing.T, c *clock) *Session {
	t.Helper()
	s, err := New("summer", loader.DefaultOptions(), Config{TTL: time.Minute, Now: c.now})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s
}

func TestNewSession(t *testing.T) {
	c := newClock()
	s := newSession(t, c)
	if s.ID == "" {
		t.Error("session id is empty")
	}
	if !s.ExpiresAt.Equal(c.t.Add(time.Minute)) {
		t.Errorf("ExpiresAt = %v, want %v", s.ExpiresAt, c.t.Add(time.Minute))
	}

	s.Loader.Observe("a", nil)
	s.Observer.Report("a")
	if got := s.Loader.Loading(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Loading() = %v, want [a]", got)
	}
}

func TestNewSessionRejects(t *testing.T) {
	if _, err := New("a/b", loader.DefaultOptions(), Config{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad gallery id error = %v, want INVALID_INPUT", err)
	}
	opts := loader.DefaultOptions()
	opts.MaxConcurrentLoads = 0
	if _, err := New("", opts, Config{}); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("bad options error = %v, want INVALID_CONFIG", err)
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	store := NewMemoryStore(0)
	store.now = c.now

	s := newSession(t, c)
	if err := store.Set(ctx, s); err != nil {
		t.Fatal(err)
	}

	c.advance(50 * time.Second)
	if _, err := store.Get(ctx, s.ID); err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	// Get extended the lifetime.
	c.advance(50 * time.Second)
	if _, err := store.Get(ctx, s.ID); err != nil {
		t.Fatalf("Get() after touch error: %v", err)
	}

	c.advance(2 * time.Minute)
	if _, err := store.Get(ctx, s.ID); !errors.Is(err, errors.ErrCodeSessionNotFound) {
		t.Errorf("expired Get() error = %v, want SESSION_NOT_FOUND", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	s := newSession(t, newClock())
	store.now = func() time.Time { return s.CreatedAt }
	store.Set(ctx, s)

	if err := store.Delete(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, s.ID); !errors.Is(err, errors.ErrCodeSessionNotFound) {
		t.Errorf("Get() after Delete error = %v", err)
	}

	// A closed loader ignores new work.
	s.Loader.Observe("a", nil)
	if got := s.Loader.Status().Tracked; len(got) != 0 {
		t.Errorf("closed loader tracked %v", got)
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete(missing) = %v, want nil", err)
	}
}

func TestMemoryStoreCleanupAndLimit(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	store := NewMemoryStore(2)
	store.now = c.now

	old := newSession(t, c)
	store.Set(ctx, old)
	c.advance(45 * time.Second)
	fresh := newSession(t, c)
	store.Set(ctx, fresh)

	third := newSession(t, c)
	if err := store.Set(ctx, third); !errors.Is(err, errors.ErrCodeLimitExceeded) {
		t.Fatalf("Set() on full store = %v, want LIMIT_EXCEEDED", err)
	}

	c.advance(30 * time.Second) // old expired, fresh alive
	if err := store.Set(ctx, third); err != nil {
		t.Fatalf("Set() after expiry freed a slot: %v", err)
	}

	c.advance(2 * time.Minute)
	n, err := store.Cleanup(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || store.Len() != 0 {
		t.Errorf("Cleanup() = %d (len %d), want 2 (len 0)", n, store.Len())
	}
}
