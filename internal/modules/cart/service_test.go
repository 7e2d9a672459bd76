package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukasoft/duka-pos/internal/modules/catalog"
	"github.com/dukasoft/duka-pos/internal/modules/sales"
	"github.com/dukasoft/duka-pos/internal/obs"
	"github.com/dukasoft/duka-pos/internal/realtime"
)

func init() { obs.InitLogger() }

// ── fakes ─────────────────────────────────────────────────────────────────────

// memCatalog is a mutex-guarded, clone-on-access catalog.Repository: the
// mirror goroutine lists it concurrently with test mutations.
type memCatalog struct {
	mu       sync.Mutex
	products map[string]*catalog.Product
}

func newMemCatalog() *memCatalog { return &memCatalog{products: map[string]*catalog.Product{}} }

func (r *memCatalog) Create(_ context.Context, p *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *p
	r.products[p.ID.String()] = &clone
	return nil
}

func (r *memCatalog) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (r *memCatalog) List(_ context.Context) ([]*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*catalog.Product
	for _, p := range r.products {
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memCatalog) Update(_ context.Context, id string, patch catalog.ProductPatch) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Cost != nil {
		p.Cost = *patch.Cost
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.MinStock != nil {
		p.MinStock = *patch.MinStock
	}
	clone := *p
	return &clone, nil
}

func (r *memCatalog) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
	return nil
}

func (r *memCatalog) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.products)
}

func (r *memCatalog) stockOf(id string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return 0, false
	}
	return p.Stock, true
}

// fakeCheckoutRepo mimics the all-or-nothing transaction: it validates every
// conditional decrement before applying any of them. A non-nil gate makes
// CreateSale block until the gate closes, standing in for a slow transaction.
type fakeCheckoutRepo struct {
	products *memCatalog
	created  []*sales.Sale
	failWith error
	gate     chan struct{}
}

func (r *fakeCheckoutRepo) CreateSale(ctx context.Context, s *sales.Sale) error {
	if r.gate != nil {
		<-r.gate
	}
	if r.failWith != nil {
		return r.failWith
	}
	for _, item := range s.Items {
		p, err := r.products.GetByID(ctx, item.ProductID.String())
		if err != nil || p.Stock < item.Qty {
			return fmt.Errorf("%w: %s", ErrInsufficientStock, item.Name)
		}
	}
	for _, item := range s.Items {
		p, _ := r.products.GetByID(ctx, item.ProductID.String())
		left := p.Stock - item.Qty
		if _, err := r.products.Update(ctx, item.ProductID.String(), catalog.ProductPatch{Stock: &left}); err != nil {
			return err
		}
	}
	r.created = append(r.created, s)
	return nil
}

// ── harness ───────────────────────────────────────────────────────────────────

type env struct {
	t        *testing.T
	repo     *memCatalog
	hub      *realtime.Hub
	mirror   *catalog.Mirror
	checkout *fakeCheckoutRepo
	svc      Service
	userID   uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repo := newMemCatalog()
	hub := realtime.NewHub()
	mirror := catalog.NewMirror(repo, hub)
	checkout := &fakeCheckoutRepo{products: repo}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go mirror.Run(ctx)

	return &env{
		t:        t,
		repo:     repo,
		hub:      hub,
		mirror:   mirror,
		checkout: checkout,
		svc:      NewService(NewStore(), mirror, checkout, hub),
		userID:   uuid.New(),
	}
}

func (e *env) addProduct(name string, price, cost float64, stock int) *catalog.Product {
	e.t.Helper()
	p := &catalog.Product{
		ID: uuid.New(), Name: name, Price: price, Cost: cost,
		Stock: stock, MinStock: 1, CreatedAt: time.Now(),
	}
	require.NoError(e.t, e.repo.Create(context.Background(), p))
	e.sync()
	return p
}

// setStock simulates a remote stock change: the store moves first, then the
// mirror catches up via the feed only when notify is set.
func (e *env) setStock(p *catalog.Product, stock int, notify bool) {
	e.t.Helper()
	_, err := e.repo.Update(context.Background(), p.ID.String(), catalog.ProductPatch{Stock: &stock})
	require.NoError(e.t, err)
	if notify {
		e.sync()
	}
}

func (e *env) sync() {
	e.t.Helper()
	// The mirror reload is asynchronous; re-notify while polling in case the
	// mirror goroutine had not subscribed yet.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		e.hub.Notify(realtime.TopicCatalog)
		if e.mirrorMatchesRepo() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	e.t.Fatal("mirror did not converge with the repo")
}

func (e *env) mirrorMatchesRepo() bool {
	snap := e.mirror.Snapshot()
	if len(snap) != e.repo.count() {
		return false
	}
	for _, p := range snap {
		stock, ok := e.repo.stockOf(p.ID.String())
		if !ok || stock != p.Stock {
			return false
		}
	}
	return true
}

// ── cart mutation properties ──────────────────────────────────────────────────

func TestRepeatedAddCapsAtStock(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Rice 5kg", 2500, 1800, 3)

	var view *View
	for i := 0; i < 3; i++ {
		var err error
		view, err = e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
		require.NoError(t, err)
	}
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Qty)

	// The (k+1)-th add with k == stock is rejected and mutates nothing.
	_, err := e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 3, e.svc.View(e.userID).Lines[0].Qty)
}

func TestAddWithStockOneRejectsSecondAdd(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Salt 1kg", 300, 200, 1)

	_, err := e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)

	_, err = e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 1, e.svc.View(e.userID).Lines[0].Qty)
}

func TestScanAndAddResolvesByExactID(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Sugar 2kg", 900, 650, 5)

	view, err := e.svc.ScanAndAdd(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, p.Name, view.Lines[0].Name)

	// Repeated scans increment the same line.
	view, err = e.svc.ScanAndAdd(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, view.Lines[0].Qty)
}

func TestScanUnknownCodeNeverMutatesCart(t *testing.T) {
	e := newEnv(t)
	e.addProduct("Rice 5kg", 2500, 1800, 3)

	_, err := e.svc.ScanAndAdd(context.Background(), e.userID, "not-a-product-code")
	require.ErrorIs(t, err, ErrUnknownProduct)

	_, err = e.svc.ScanAndAdd(context.Background(), e.userID, uuid.NewString())
	require.ErrorIs(t, err, ErrUnknownProduct)

	assert.Empty(t, e.svc.View(e.userID).Lines)
}

func TestScanDepletedProductNeverMutatesCart(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Flour 10kg", 4800, 3900, 0)

	_, err := e.svc.ScanAndAdd(context.Background(), e.userID, p.ID.String())
	require.ErrorIs(t, err, ErrOutOfStock)
	assert.Empty(t, e.svc.View(e.userID).Lines)
}

func TestDecrementToZeroRemovesLine(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Rice 5kg", 2500, 1800, 5)

	_, err := e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)
	view, err := e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)
	require.Equal(t, 2, view.Lines[0].Qty)

	view, err = e.svc.DecrementLine(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, view.Lines[0].Qty)

	view, err = e.svc.DecrementLine(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)
	assert.Empty(t, view.Lines, "cart must never contain a zero-qty line")

	// Decrementing an absent line stays a no-op.
	view, err = e.svc.DecrementLine(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

func TestCartsAreIsolatedPerIdentity(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Rice 5kg", 2500, 1800, 5)

	_, err := e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)

	other := uuid.New()
	assert.Empty(t, e.svc.View(other).Lines)
}

// ── checkout properties ───────────────────────────────────────────────────────

func TestCheckoutEmptyCartIsNoOp(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Rice 5kg", 2500, 1800, 3)

	_, err := e.svc.Checkout(context.Background(), e.userID, CheckoutRequest{})
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, e.checkout.created, "no sale may be created")
	stored, _ := e.repo.GetByID(context.Background(), p.ID.String())
	assert.Equal(t, 3, stored.Stock, "no stock may be decremented")
}

func TestCheckoutTotalsProfitAndDecrements(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Rice 5kg", 2500, 1800, 10)

	for i := 0; i < 2; i++ {
		_, err := e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
		require.NoError(t, err)
	}

	sale, err := e.svc.Checkout(context.Background(), e.userID, CheckoutRequest{})
	require.NoError(t, err)
	require.NotNil(t, sale)
	assert.NotEqual(t, uuid.Nil, sale.ID)
	assert.Equal(t, 5000.0, sale.Total)
	assert.Equal(t, 1400.0, sale.Profit)
	assert.Equal(t, e.userID, sale.UserID)
	assert.Equal(t, sales.PaymentCash, sale.PaymentMethod, "payment method defaults to cash")
	require.Len(t, sale.Items, 1)
	assert.Equal(t, 2, sale.Items[0].Qty)

	stored, _ := e.repo.GetByID(context.Background(), p.ID.String())
	assert.Equal(t, 8, stored.Stock, "stock decremented by exactly the line qty")
	assert.Empty(t, e.svc.View(e.userID).Lines, "cart cleared after checkout")
}

func TestCheckoutSnapshotSurvivesProductEdit(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Rice 5kg", 2500, 1800, 10)

	_, err := e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)

	sale, err := e.svc.Checkout(context.Background(), e.userID, CheckoutRequest{})
	require.NoError(t, err)

	// Rename and reprice the product after the sale; the snapshot is frozen.
	name, price := "Rice 5kg (new)", 9999.0
	_, err = e.repo.Update(context.Background(), p.ID.String(), catalog.ProductPatch{Name: &name, Price: &price})
	require.NoError(t, err)
	e.sync()

	assert.Equal(t, "Rice 5kg", sale.Items[0].Name)
	assert.Equal(t, 2500.0, sale.Items[0].Price)
}

func TestCheckoutNotifiesBothFeeds(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Rice 5kg", 2500, 1800, 10)

	salesCh, cancelSales := e.hub.Subscribe(realtime.TopicSales)
	defer cancelSales()

	_, err := e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)
	_, err = e.svc.Checkout(context.Background(), e.userID, CheckoutRequest{})
	require.NoError(t, err)

	select {
	case <-salesCh:
	default:
		t.Fatal("expected a sales change signal after checkout")
	}
}

func TestCheckoutSaleWriteFailureLeavesCartIntact(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Rice 5kg", 2500, 1800, 10)

	_, err := e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)

	e.checkout.failWith = errors.New("connection reset")
	_, err = e.svc.Checkout(context.Background(), e.userID, CheckoutRequest{})
	require.Error(t, err)

	assert.Len(t, e.svc.View(e.userID).Lines, 1, "cart stays intact for retry")
	stored, _ := e.repo.GetByID(context.Background(), p.ID.String())
	assert.Equal(t, 10, stored.Stock)

	// Retry after the backend recovers.
	e.checkout.failWith = nil
	sale, err := e.svc.Checkout(context.Background(), e.userID, CheckoutRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2500.0, sale.Total)
}

func TestCheckoutDoesNotBlockOtherIdentities(t *testing.T) {
	e := newEnv(t)
	rice := e.addProduct("Rice 5kg", 2500, 1800, 10)
	salt := e.addProduct("Salt 1kg", 300, 200, 10)

	_, err := e.svc.AddToCart(context.Background(), e.userID, rice.ID.String())
	require.NoError(t, err)

	// Hold this identity's checkout open mid-transaction.
	e.checkout.gate = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := e.svc.Checkout(context.Background(), e.userID, CheckoutRequest{})
		done <- err
	}()

	other := uuid.New()
	added := make(chan error, 1)
	go func() {
		_, err := e.svc.AddToCart(context.Background(), other, salt.ID.String())
		added <- err
	}()

	select {
	case err := <-added:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("another identity's add waited behind an in-flight checkout")
	}

	close(e.checkout.gate)
	require.NoError(t, <-done)
	assert.Len(t, e.svc.View(other).Lines, 1)
}

func TestCheckoutRejectsStaleCartAgainstFreshMirror(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Rice 5kg", 2500, 1800, 2)

	for i := 0; i < 2; i++ {
		_, err := e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
		require.NoError(t, err)
	}

	// Another session sells a unit; the mirror observes it before we commit.
	e.setStock(p, 1, true)

	_, err := e.svc.Checkout(context.Background(), e.userID, CheckoutRequest{})
	require.ErrorIs(t, err, ErrStockChanged)
	assert.Empty(t, e.checkout.created)
	assert.Len(t, e.svc.View(e.userID).Lines, 1, "cart intact after rejection")
}

func TestCheckoutRejectedByConditionalDecrementWhenMirrorIsStale(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Rice 5kg", 2500, 1800, 2)

	for i := 0; i < 2; i++ {
		_, err := e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
		require.NoError(t, err)
	}

	// The store moves but the mirror has not caught up: the transaction's
	// conditional decrement is the backstop.
	e.setStock(p, 1, false)

	_, err := e.svc.Checkout(context.Background(), e.userID, CheckoutRequest{})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Empty(t, e.checkout.created, "no sale survives a failed decrement")
	assert.Len(t, e.svc.View(e.userID).Lines, 1, "cart intact for retry")
}

func TestCheckoutRemovedProductRejectsCart(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Rice 5kg", 2500, 1800, 2)

	_, err := e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)

	require.NoError(t, e.repo.Delete(context.Background(), p.ID.String()))
	e.sync()

	_, err = e.svc.Checkout(context.Background(), e.userID, CheckoutRequest{})
	require.ErrorIs(t, err, ErrStockChanged)
}

func TestCheckoutPaymentMethods(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Rice 5kg", 2500, 1800, 10)

	_, err := e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)

	_, err = e.svc.Checkout(context.Background(), e.userID, CheckoutRequest{PaymentMethod: "BARTER"})
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)
	assert.Len(t, e.svc.View(e.userID).Lines, 1)

	sale, err := e.svc.Checkout(context.Background(), e.userID, CheckoutRequest{PaymentMethod: "MOBILE_MONEY"})
	require.NoError(t, err)
	assert.Equal(t, sales.PaymentMobileMoney, sale.PaymentMethod)
}

func TestClearDiscardsCart(t *testing.T) {
	e := newEnv(t)
	p := e.addProduct("Rice 5kg", 2500, 1800, 10)

	_, err := e.svc.AddToCart(context.Background(), e.userID, p.ID.String())
	require.NoError(t, err)

	e.svc.Clear(e.userID)
	assert.Empty(t, e.svc.View(e.userID).Lines)

	stored, _ := e.repo.GetByID(context.Background(), p.ID.String())
	assert.Equal(t, 10, stored.Stock, "clearing a cart releases nothing; adds never reserved stock")
}

func TestViewTotalTracksLines(t *testing.T) {
	e := newEnv(t)
	rice := e.addProduct("Rice 5kg", 2500, 1800, 10)
	salt := e.addProduct("Salt 1kg", 300, 200, 10)

	_, err := e.svc.AddToCart(context.Background(), e.userID, rice.ID.String())
	require.NoError(t, err)
	_, err = e.svc.AddToCart(context.Background(), e.userID, rice.ID.String())
	require.NoError(t, err)
	view, err := e.svc.AddToCart(context.Background(), e.userID, salt.ID.String())
	require.NoError(t, err)

	assert.Equal(t, 5300.0, view.Total)
	require.Len(t, view.Lines, 2)
}
