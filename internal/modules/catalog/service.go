package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukasoft/duka-pos/internal/realtime"
)

// ErrValidation marks a rejected payload or a refused unconfirmed delete.
var ErrValidation = errors.New("validation failed")

// Service defines catalog business logic. Writes persist first and reach
// readers through the change feed; there is no optimistic local insert.
type Service interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*Product, error)

	// DeleteProduct is irreversible; confirmed must carry the operator's
	// explicit confirmation or the delete is refused.
	DeleteProduct(ctx context.Context, id string, confirmed bool) error
}

type service struct {
	repo Repository
	hub  *realtime.Hub
}

// NewService creates a new catalog service.
func NewService(repo Repository, hub *realtime.Hub) Service {
	return &service{repo: repo, hub: hub}
}

func (s *service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	price, err := parseFloat("price", req.Price)
	if err != nil {
		return nil, err
	}
	cost, err := parseFloat("cost", req.Cost)
	if err != nil {
		return nil, err
	}
	stock, err := parseInt("stock", req.Stock)
	if err != nil {
		return nil, err
	}
	minStock, err := parseInt("min_stock", req.MinStock)
	if err != nil {
		return nil, err
	}
	if price < 0 || cost < 0 {
		return nil, fmt.Errorf("%w: price and cost must not be negative", ErrValidation)
	}
	if stock < 0 || minStock < 0 {
		return nil, fmt.Errorf("%w: stock and min_stock must not be negative", ErrValidation)
	}

	p := &Product{
		ID:        uuid.New(),
		Name:      req.Name,
		Price:     price,
		Cost:      cost,
		Stock:     stock,
		MinStock:  minStock,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.hub.Notify(realtime.TopicCatalog)
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListProducts(ctx context.Context) ([]*Product, error) {
	return s.repo.List(ctx)
}

// UpdateProduct validates the supplied fields into a patch and hands it to
// the store as-is. There is no read-modify-write of the full row: a field the
// request does not carry is never rewritten, so a concurrent checkout's stock
// decrement cannot be resurrected by a name edit.
func (s *service) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*Product, error) {
	var patch ProductPatch
	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrValidation)
		}
		patch.Name = req.Name
	}
	if req.Price != nil {
		v, err := parseFloat("price", *req.Price)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
		}
		patch.Price = &v
	}
	if req.Cost != nil {
		v, err := parseFloat("cost", *req.Cost)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: cost must not be negative", ErrValidation)
		}
		patch.Cost = &v
	}
	if req.Stock != nil {
		v, err := parseInt("stock", *req.Stock)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: stock must not be negative", ErrValidation)
		}
		patch.Stock = &v
	}
	if req.MinStock != nil {
		v, err := parseInt("min_stock", *req.MinStock)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: min_stock must not be negative", ErrValidation)
		}
		patch.MinStock = &v
	}

	p, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.hub.Notify(realtime.TopicCatalog)
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("%w: delete requires confirmation", ErrValidation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.hub.Notify(realtime.TopicCatalog)
	return nil
}
