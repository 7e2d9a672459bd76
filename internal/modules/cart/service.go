package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukasoft/duka-pos/internal/modules/catalog"
	"github.com/dukasoft/duka-pos/internal/modules/sales"
	"github.com/dukasoft/duka-pos/internal/obs"
	"github.com/dukasoft/duka-pos/internal/realtime"
)

// Service is the cart and sale engine: it mutates transient carts against the
// catalog mirror's last-known stock and converts them into persisted sales.
type Service interface {
	// ScanAndAdd resolves a decoded QR payload to a product by exact id match
	// and adds one unit to the identity's cart.
	ScanAndAdd(ctx context.Context, userID uuid.UUID, code string) (*View, error)

	// AddToCart adds one unit of the product, refusing to grow a line past
	// the last-known stock. The check is point-in-time, not a reservation.
	AddToCart(ctx context.Context, userID uuid.UUID, productID string) (*View, error)

	// DecrementLine lowers a line by one unit, removing it at zero.
	DecrementLine(ctx context.Context, userID uuid.UUID, productID string) (*View, error)

	// View returns the identity's current cart.
	View(userID uuid.UUID) *View

	// Clear discards the identity's cart.
	Clear(userID uuid.UUID)

	// Checkout converts the cart into a Sale plus stock decrements, applied
	// as one unit. On any failure the cart is left intact for retry.
	Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*sales.Sale, error)
}

// CheckoutRequest is the payload for completing a sale.
type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method,omitempty"`
}

type service struct {
	store    *Store
	products *catalog.Mirror
	repo     CheckoutRepository
	hub      *realtime.Hub
	now      func() time.Time
}

// NewService creates a new cart service.
func NewService(store *Store, products *catalog.Mirror, repo CheckoutRepository, hub *realtime.Hub) Service {
	return &service{store: store, products: products, repo: repo, hub: hub, now: time.Now}
}

func (s *service) ScanAndAdd(ctx context.Context, userID uuid.UUID, code string) (*View, error) {
	pid, err := uuid.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProduct, code)
	}
	p, ok := s.products.Get(pid)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProduct, code)
	}
	if p.Stock <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrOutOfStock, p.Name)
	}
	return s.add(userID, p)
}

func (s *service) AddToCart(ctx context.Context, userID uuid.UUID, productID string) (*View, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProduct, productID)
	}
	p, ok := s.products.Get(pid)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProduct, productID)
	}
	return s.add(userID, p)
}

func (s *service) add(userID uuid.UUID, p *catalog.Product) (*View, error) {
	var view *View
	err := s.store.With(userID, func(c *Cart) error {
		qty := 0
		if l, ok := c.line(p.ID); ok {
			qty = l.Qty
		}
		if qty+1 > p.Stock {
			return fmt.Errorf("%w: %s has %d in stock", ErrInsufficientStock, p.Name, p.Stock)
		}
		c.add(Line{ProductID: p.ID, Name: p.Name, Price: p.Price, Cost: p.Cost})
		view = viewOf(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) DecrementLine(ctx context.Context, userID uuid.UUID, productID string) (*View, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProduct, productID)
	}
	var view *View
	s.store.With(userID, func(c *Cart) error {
		c.decrement(pid)
		view = viewOf(c)
		return nil
	})
	return view, nil
}

func (s *service) View(userID uuid.UUID) *View {
	var view *View
	s.store.With(userID, func(c *Cart) error {
		view = viewOf(c)
		return nil
	})
	return view
}

func (s *service) Clear(userID uuid.UUID) {
	s.store.With(userID, func(c *Cart) error {
		c.clear()
		return nil
	})
}

func (s *service) Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*sales.Sale, error) {
	method, err := paymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	var sale *sales.Sale
	err = s.store.With(userID, func(c *Cart) error {
		if c.isEmpty() {
			return ErrEmptyCart
		}

		// Re-validate every line against the latest mirrored stock before
		// committing, so a sale observed from another session rejects the
		// stale cart here instead of deep in the transaction.
		lines := c.snapshot()
		for _, l := range lines {
			p, ok := s.products.Get(l.ProductID)
			if !ok {
				return fmt.Errorf("%w: %s was removed from the catalog", ErrStockChanged, l.Name)
			}
			if l.Qty > p.Stock {
				return fmt.Errorf("%w: only %d of %s left", ErrStockChanged, p.Stock, l.Name)
			}
		}

		sale = buildSale(lines, userID, method, s.now())
		if err := s.repo.CreateSale(ctx, sale); err != nil {
			// Nothing was persisted; the cart stays intact for retry.
			return err
		}
		// Clear only after the transaction committed.
		c.clear()
		return nil
	})
	if err != nil {
		return nil, err
	}

	obs.Logger.Info("sale recorded",
		"sale_id", sale.ID, "user_id", userID,
		"total", sale.Total, "profit", sale.Profit, "items", len(sale.Items))
	s.hub.Notify(realtime.TopicSales)
	s.hub.Notify(realtime.TopicCatalog)
	return sale, nil
}

func buildSale(lines []Line, userID uuid.UUID, method sales.PaymentMethod, date time.Time) *sales.Sale {
	s := &sales.Sale{
		ID:            uuid.New(),
		Date:          date,
		UserID:        userID,
		PaymentMethod: method,
	}
	for _, l := range lines {
		s.Items = append(s.Items, &sales.SaleItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price,
			Cost:      l.Cost,
			Qty:       l.Qty,
		})
		s.Total += l.Price * float64(l.Qty)
		s.Profit += (l.Price - l.Cost) * float64(l.Qty)
	}
	return s
}

func paymentMethod(raw string) (sales.PaymentMethod, error) {
	if raw == "" {
		return sales.PaymentCash, nil
	}
	method := sales.PaymentMethod(raw)
	switch method {
	case sales.PaymentCash, sales.PaymentCard, sales.PaymentMobileMoney:
		return method, nil
	default:
		return "", fmt.Errorf("%w: %s (allowed: CASH, CARD, MOBILE_MONEY)", ErrInvalidPaymentMethod, raw)
	}
}
