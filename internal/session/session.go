// Package session owns per-shopper state: the cart and the filter selection,
// bound to the shared read-only catalogue. Each session applies transitions
// one at a time, so concurrent requests for the same shopper never
// interleave.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xenking/vera-store/internal/domain/cart"
	"github.com/xenking/vera-store/internal/domain/catalog"
	"github.com/xenking/vera-store/internal/domain/checkout"
)

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	ID     string
	Cart   cart.Cart
	Filter catalog.Filter
}

// Session is one shopper's storefront state.
type Session struct {
	id      string
	catalog *catalog.Catalog

	mu     sync.Mutex
	cart   cart.Cart
	filter catalog.Filter

	// lastSeen is read by the janitor without taking mu.
	lastSeen atomic.Int64 // unix nanoseconds
}

func newSession(id string, c *catalog.Catalog, now time.Time) *Session {
	s := &Session{
		id:      id,
		catalog: c,
		cart:    cart.New(),
		filter:  catalog.DefaultFilter(),
	}
	s.touch(now)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Catalog returns the catalogue the session browses.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{ID: s.id, Cart: s.cart, Filter: s.filter}
}

// Dispatch applies a cart action and returns the resulting cart.
func (s *Session) Dispatch(a cart.Action) cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = cart.Reduce(s.cart, a)
	return s.cart
}

// SetFilter replaces the filter state.
func (s *Session) SetFilter(f catalog.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// View applies the session's filter to the catalogue and pages the result.
func (s *Session) View(limit int) (catalog.Filter, catalog.View) {
	s.mu.Lock()
	f := s.filter
	s.mu.Unlock()
	return f, catalog.Page(s.catalog.Filter(f), limit)
}

// Checkout runs svc over the current cart and clears it on success. The
// session stays locked for the duration so no action slips in between the
// charge and the clear.
func (s *Session) Checkout(ctx context.Context, svc *checkout.Service) (*checkout.Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conf, err := svc.Checkout(ctx, s.cart)
	if err != nil {
		return nil, err
	}
	s.cart = cart.Reduce(s.cart, cart.Clear{})
	return conf, nil
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}
