package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukasoft/duka-pos/internal/obs"
	"github.com/dukasoft/duka-pos/internal/realtime"
)

func init() { obs.InitLogger() }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestMirrorReplacesSnapshotOnSignal(t *testing.T) {
	repo := newMemRepo()
	hub := realtime.NewHub()
	svc := NewService(repo, hub)
	mirror := NewMirror(repo, hub)

	first, err := svc.CreateProduct(context.Background(), validCreate())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mirror.Run(ctx)

	waitFor(t, func() bool { return len(mirror.Snapshot()) == 1 })
	got, ok := mirror.Get(first.ID)
	require.True(t, ok)
	assert.Equal(t, "Rice 5kg", got.Name)

	// A second create signals the hub; the mirror swaps in the new snapshot
	// wholesale rather than patching.
	before := mirror.Snapshot()
	req := validCreate()
	req.Name = "Beans 1kg"
	second, err := svc.CreateProduct(context.Background(), req)
	require.NoError(t, err)

	waitFor(t, func() bool { return len(mirror.Snapshot()) == 2 })
	assert.Len(t, before, 1, "old snapshot must be untouched")
	_, ok = mirror.Get(second.ID)
	assert.True(t, ok)
}

func TestMirrorReflectsDeletes(t *testing.T) {
	repo := newMemRepo()
	hub := realtime.NewHub()
	svc := NewService(repo, hub)
	mirror := NewMirror(repo, hub)

	p, err := svc.CreateProduct(context.Background(), validCreate())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mirror.Run(ctx)
	waitFor(t, func() bool { return len(mirror.Snapshot()) == 1 })

	require.NoError(t, svc.DeleteProduct(context.Background(), p.ID.String(), true))
	waitFor(t, func() bool { return len(mirror.Snapshot()) == 0 })
	_, ok := mirror.Get(p.ID)
	assert.False(t, ok)
}

// flakyListRepo fails the first N List calls, then delegates.
type flakyListRepo struct {
	Repository
	mu       sync.Mutex
	failures int
}

func (r *flakyListRepo) List(ctx context.Context) ([]*Product, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return nil, errors.New("connection refused")
	}
	r.mu.Unlock()
	return r.Repository.List(ctx)
}

func TestMirrorRetriesAfterFailedInitialLoad(t *testing.T) {
	repo := newMemRepo()
	hub := realtime.NewHub()
	svc := NewService(repo, hub)
	_, err := svc.CreateProduct(context.Background(), validCreate())
	require.NoError(t, err)

	mirror := NewMirror(&flakyListRepo{Repository: repo, failures: 1}, hub)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mirror.Run(ctx)

	// The first load fails; the loop must stay alive and pick the data up on
	// a later change signal.
	waitFor(t, func() bool {
		hub.Notify(realtime.TopicCatalog)
		return len(mirror.Snapshot()) == 1
	})
}

func TestMirrorCoercedNumbersSurvive(t *testing.T) {
	repo := newMemRepo()
	hub := realtime.NewHub()
	svc := NewService(repo, hub)
	mirror := NewMirror(repo, hub)

	req := validCreate()
	req.Price = json.Number("99.99")
	p, err := svc.CreateProduct(context.Background(), req)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mirror.Run(ctx)
	waitFor(t, func() bool { return len(mirror.Snapshot()) == 1 })

	got, ok := mirror.Get(p.ID)
	require.True(t, ok)
	assert.Equal(t, 99.99, got.Price)
}
