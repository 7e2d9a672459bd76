package cart

import (
	"context"
	"errors"

	"github.com/dukasoft/duka-pos/internal/modules/sales"
)

// Checkout signals surfaced to the operator.
var (
	ErrUnknownProduct       = errors.New("unknown product")
	ErrOutOfStock           = errors.New("out of stock")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrStockChanged         = errors.New("stock changed since item was added")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
)

// CheckoutRepository persists a completed checkout.
type CheckoutRepository interface {
	// CreateSale records the sale, its item snapshot, and every stock
	// decrement as a single all-or-nothing unit. A decrement that would take
	// stock below zero fails the whole checkout with ErrInsufficientStock.
	CreateSale(ctx context.Context, s *sales.Sale) error
}
