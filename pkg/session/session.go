// Package session keeps progressive loaders alive between API calls.
//
// A browser client cannot hold a [loader.Loader] itself, so the API server
// creates one per gallery view and hands the client a session id. Each
// session owns a push-style [capability.Manual] observer: the client
// reports intersections, load completions and failures, and reads back
// which tiles it should fetch next.
//
// Sessions expire after a TTL that is extended on every access. Expired
// sessions are closed by [Store.Cleanup], which the server runs
// periodically.
//
//	sess, err := session.New("summer", loader.DefaultOptions(), session.Config{})
//	if err != nil {
//	    return err
//	}
//	store.Set(ctx, sess)
//	sess.Observer.Report("img-1")
//	fmt.Println(sess.Loader.Loading())
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/tiledgallery/pkg/capability"
	"github.com/matzehuels/tiledgallery/pkg/errors"
	"github.com/matzehuels/tiledgallery/pkg/loader"
)

// Default limits.
const (
	// DefaultTTL is how long an idle session survives.
	DefaultTTL = 30 * time.Minute

	// DefaultMaxSessions caps concurrent sessions per store.
	DefaultMaxSessions = 1024
)

// Session is one gallery view's loader.
type Session struct {
	ID        string    `json:"id"`
	GalleryID string    `json:"gallery_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	Loader   *loader.Loader     `json:"-"`
	Observer *capability.Manual `json:"-"`

	ttl time.Duration
}

// Config carries the collaborators of a new session. Zero values are
// replaced with defaults.
type Config struct {
	TTL     time.Duration
	Memory  capability.MemorySampler
	Options []loader.Option
	Now     func() time.Time
}

// New creates a session with a fresh loader bound to a manual observer.
// galleryID is informational and may be empty.
func New(galleryID string, opts loader.Options, cfg Config) (*Session, error) {
	if galleryID != "" {
		if err := errors.ValidateID("gallery", galleryID); err != nil {
			return nil, err
		}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	observer := capability.NewManual()
	l, err := loader.New(opts, loader.Capabilities{
		Intersection: observer.Factory,
		Memory:       cfg.Memory,
	}, cfg.Options...)
	if err != nil {
		return nil, err
	}

	now := cfg.Now()
	return &Session{
		ID:        uuid.NewString(),
		GalleryID: galleryID,
		CreatedAt: now,
		ExpiresAt: now.Add(cfg.TTL),
		Loader:    l,
		Observer:  observer,
		ttl:       cfg.TTL,
	}, nil
}

// IsExpired reports whether the session has expired at now.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// touch extends the session's lifetime from now.
func (s *Session) touch(now time.Time) {
	s.ExpiresAt = now.Add(s.ttl)
}

// Close stops the session's loader.
func (s *Session) Close() {
	s.Loader.Close()
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID and extends its lifetime.
	// Returns a SESSION_NOT_FOUND error for unknown or expired ids.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, s *Session) error

	// Delete closes and removes a session.
	Delete(ctx context.Context, id string) error

	// Cleanup closes and removes expired sessions and reports how many.
	Cleanup(ctx context.Context) (int, error)
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeSessionNotFound, "session %q not found", id)
}
