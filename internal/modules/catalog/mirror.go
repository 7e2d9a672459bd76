package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukasoft/duka-pos/internal/obs"
	"github.com/dukasoft/duka-pos/internal/realtime"
)

const reloadRetryInterval = 5 * time.Second

// Mirror is the in-memory snapshot of the product collection. The snapshot is
// replaced wholesale on every change signal, never patched in place.
type Mirror struct {
	repo Repository
	hub  *realtime.Hub

	mu   sync.RWMutex
	list []*Product
	byID map[uuid.UUID]*Product
}

// NewMirror creates an empty mirror over repo.
func NewMirror(repo Repository, hub *realtime.Hub) *Mirror {
	return &Mirror{repo: repo, hub: hub, byID: map[uuid.UUID]*Product{}}
}

// Run loads the initial snapshot, then reloads on every catalog change signal
// until ctx is done. Any failed load, the initial one included, keeps the
// previous snapshot and retries on the next signal or after a short delay;
// Run only returns when ctx ends.
func (m *Mirror) Run(ctx context.Context) error {
	// Subscribe before the initial load so a change landing mid-load is
	// buffered rather than dropped.
	ch, cancel := m.hub.Subscribe(realtime.TopicCatalog)
	defer cancel()

	var retry <-chan time.Time
	if err := m.reload(ctx); err != nil {
		obs.Logger.Error("catalog mirror load failed", "error", err)
		retry = time.After(reloadRetryInterval)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		case <-retry:
		}
		if err := m.reload(ctx); err != nil {
			obs.Logger.Error("catalog mirror reload failed", "error", err)
			retry = time.After(reloadRetryInterval)
		} else {
			retry = nil
		}
	}
}

func (m *Mirror) reload(ctx context.Context) error {
	list, err := m.repo.List(ctx)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*Product, len(list))
	for _, p := range list {
		byID[p.ID] = p
	}
	m.mu.Lock()
	m.list = list
	m.byID = byID
	m.mu.Unlock()
	return nil
}

// Snapshot returns the current product list, newest first.
func (m *Mirror) Snapshot() []*Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.list
}

// Get looks a product up by id in the current snapshot.
func (m *Mirror) Get(id uuid.UUID) (*Product, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	return p, ok
}
