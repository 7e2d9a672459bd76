package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Product is an item in the shop's catalog. Stock is authoritative in the
// backing store; the in-process mirror may lag it briefly.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Cost      float64   `json:"cost"`
	Stock     int       `json:"stock"`
	MinStock  int       `json:"min_stock"`
	CreatedAt time.Time `json:"created_at"`
}

// LowStock reports whether the product is at or below its reorder threshold.
func (p *Product) LowStock() bool { return p.Stock <= p.MinStock }

// CreateProductRequest holds the data for creating a product. Numeric fields
// accept JSON numbers or numeric strings; anything else is a save error.
type CreateProductRequest struct {
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Cost     json.Number `json:"cost"`
	Stock    json.Number `json:"stock"`
	MinStock json.Number `json:"min_stock"`
}

// UpdateProductRequest is a partial field set; nil fields are left unchanged.
type UpdateProductRequest struct {
	Name     *string      `json:"name,omitempty"`
	Price    *json.Number `json:"price,omitempty"`
	Cost     *json.Number `json:"cost,omitempty"`
	Stock    *json.Number `json:"stock,omitempty"`
	MinStock *json.Number `json:"min_stock,omitempty"`
}

// ProductPatch carries the validated fields of a partial update. A nil field
// is never written, so a patch without Stock cannot clobber a concurrent
// checkout's decrement.
type ProductPatch struct {
	Name     *string
	Price    *float64
	Cost     *float64
	Stock    *int
	MinStock *int
}

func parseFloat(field string, n json.Number) (float64, error) {
	v, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", ErrValidation, field)
	}
	return v, nil
}

func parseInt(field string, n json.Number) (int, error) {
	v, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrValidation, field)
	}
	return v, nil
}
