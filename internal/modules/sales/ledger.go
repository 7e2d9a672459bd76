package sales

import (
	"context"
	"sync"
	"time"

	"github.com/dukasoft/duka-pos/internal/obs"
	"github.com/dukasoft/duka-pos/internal/realtime"
)

const reloadRetryInterval = 5 * time.Second

// Ledger is the in-memory mirror of all recorded sales, newest first. Like
// the catalog mirror, the snapshot is replaced wholesale on every change
// signal, never patched.
type Ledger struct {
	repo Repository
	hub  *realtime.Hub

	mu   sync.RWMutex
	list []*Sale
}

// NewLedger creates an empty ledger over repo.
func NewLedger(repo Repository, hub *realtime.Hub) *Ledger {
	return &Ledger{repo: repo, hub: hub}
}

// Run loads the initial snapshot, then reloads on every sales change signal
// until ctx is done. A failed load, the initial one included, keeps the
// previous snapshot and retries on the next signal or after a short delay.
func (l *Ledger) Run(ctx context.Context) error {
	// Subscribe before the initial load so a change landing mid-load is
	// buffered rather than dropped.
	ch, cancel := l.hub.Subscribe(realtime.TopicSales)
	defer cancel()

	var retry <-chan time.Time
	if err := l.reload(ctx); err != nil {
		obs.Logger.Error("sales ledger load failed", "error", err)
		retry = time.After(reloadRetryInterval)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		case <-retry:
		}
		if err := l.reload(ctx); err != nil {
			obs.Logger.Error("sales ledger reload failed", "error", err)
			retry = time.After(reloadRetryInterval)
		} else {
			retry = nil
		}
	}
}

func (l *Ledger) reload(ctx context.Context) error {
	list, err := l.repo.List(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.list = list
	l.mu.Unlock()
	return nil
}

// Snapshot returns the current sales list, newest first.
func (l *Ledger) Snapshot() []*Sale {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.list
}
