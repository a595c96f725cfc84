package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/vera-store/internal/domain/catalog"
)

var (
	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = errors.New("session not found")
	// ErrCapacity is returned when the store already holds MaxActive sessions.
	ErrCapacity = errors.New("too many active sessions")
)

// StoreConfig controls session lifetime.
type StoreConfig struct {
	// TTL is how long a session may stay idle before eviction.
	TTL time.Duration
	// Sweep is the eviction interval.
	Sweep time.Duration
	// MaxActive caps concurrent sessions. Zero means unlimited.
	MaxActive int
}

// Store holds live sessions keyed by id.
type Store struct {
	catalog *catalog.Catalog
	cfg     StoreConfig
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a Store whose sessions browse c.
func NewStore(c *catalog.Catalog, cfg StoreConfig) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.Sweep <= 0 {
		cfg.Sweep = time.Minute
	}
	return &Store{
		catalog:  c,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with an empty cart and default filter.
func (s *Store) Create() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.MaxActive > 0 && len(s.sessions) >= s.cfg.MaxActive {
		return nil, ErrCapacity
	}
	sess := newSession(uuid.New().String(), s.catalog, s.now())
	s.sessions[sess.id] = sess
	return sess, nil
}

// Get returns the session with the given id and marks it as active.
func (s *Store) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

// Delete ends a session. Deleting an unknown id is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Capacity returns the configured session cap, or zero when unlimited.
func (s *Store) Capacity() int {
	return s.cfg.MaxActive
}

// evict removes sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Store) evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.idleSince()) >= s.cfg.TTL {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Run evicts idle sessions every Sweep interval until ctx is done.
func (s *Store) Run(ctx context.Context) error {
	lg := zctx.From(ctx)
	ticker := time.NewTicker(s.cfg.Sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.evict(s.now()); n > 0 {
				lg.Info("Evicted idle sessions",
					zap.Int("evicted", n),
					zap.Int("active", s.Len()),
				)
			}
		}
	}
}
