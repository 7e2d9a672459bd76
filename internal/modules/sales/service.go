package sales

import (
	"context"
	"time"

	"github.com/dukasoft/duka-pos/internal/modules/catalog"
)

// Service defines sales ledger business logic.
type Service interface {
	GetSale(ctx context.Context, id string) (*Sale, error)
	ListSales(ctx context.Context) ([]*Sale, error)

	// Stats derives the dashboard figures from the ledger and catalog mirrors.
	Stats() Stats
}

type service struct {
	repo     Repository
	ledger   *Ledger
	products *catalog.Mirror
	now      func() time.Time
}

// NewService creates a new sales service.
func NewService(repo Repository, ledger *Ledger, products *catalog.Mirror) Service {
	return &service{repo: repo, ledger: ledger, products: products, now: time.Now}
}

func (s *service) GetSale(ctx context.Context, id string) (*Sale, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListSales(ctx context.Context) ([]*Sale, error) {
	return s.repo.List(ctx)
}

func (s *service) Stats() Stats {
	return ComputeStats(s.ledger.Snapshot(), s.products.Snapshot(), s.now())
}
