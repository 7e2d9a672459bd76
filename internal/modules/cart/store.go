package cart

import (
	"sync"

	"github.com/google/uuid"
)

// Store holds one transient cart per identity. Access is serialized per
// cart, so concurrent scans against the same cart cannot interleave a check
// and a mutation while other identities proceed unblocked.
type Store struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*Cart
}

// NewStore creates an empty cart store.
func NewStore() *Store {
	return &Store{carts: map[uuid.UUID]*Cart{}}
}

// With runs fn against userID's cart (created lazily) under that cart's own
// lock. The store lock covers only the map lookup: a slow fn, a checkout
// transaction in particular, holds up its own identity and nobody else.
func (s *Store) With(userID uuid.UUID, fn func(c *Cart) error) error {
	s.mu.Lock()
	c, ok := s.carts[userID]
	if !ok {
		c = newCart()
		s.carts[userID] = c
	}
	s.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c)
}
