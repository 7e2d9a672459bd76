package sales

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod records how a sale was paid at the counter.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "CASH"
	PaymentCard        PaymentMethod = "CARD"
	PaymentMobileMoney PaymentMethod = "MOBILE_MONEY"
)

// Sale is an immutable record of one checkout. Items are a value snapshot of
// the cart at checkout time; later product edits or deletes never alter it.
type Sale struct {
	ID            uuid.UUID     `json:"id"`
	Date          time.Time     `json:"date"`
	UserID        uuid.UUID     `json:"user_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Total         float64       `json:"total"`
	Profit        float64       `json:"profit"`
	Items         []*SaleItem   `json:"items"`
}

// SaleItem is one sold line, frozen at checkout.
type SaleItem struct {
	ProductID uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Cost      float64   `json:"cost"`
	Qty       int       `json:"qty"`
}

// LineTotal is the item's contribution to the sale total.
func (i *SaleItem) LineTotal() float64 { return i.Price * float64(i.Qty) }

// ShortID is the truncated id shown on receipts.
func (s *Sale) ShortID() string { return s.ID.String()[:8] }
