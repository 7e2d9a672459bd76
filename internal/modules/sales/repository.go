package sales

import "context"

// Repository defines read access to the sales ledger. Sales are written only
// by the checkout transaction (see the cart module); the ledger never updates
// or deletes them.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Sale, error)

	// List returns all sales ordered by date descending, newest first.
	// Ordering is enforced by the backing query, not by callers.
	List(ctx context.Context) ([]*Sale, error)
}
