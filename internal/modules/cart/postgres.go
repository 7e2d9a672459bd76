package cart

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukasoft/duka-pos/internal/modules/sales"
	"github.com/dukasoft/duka-pos/internal/realtime"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates the checkout repository.
func NewPostgresRepository(db *sql.DB) CheckoutRepository { return &postgresRepo{db: db} }

// CreateSale inserts the sale, its items, and the conditional stock
// decrements inside one transaction. The decrement only applies while enough
// stock remains (`stock >= qty`), so two checkouts racing over the same unit
// cannot both succeed: the loser's UPDATE matches no row and the whole
// transaction, including the already-inserted sale, rolls back.
func (r *postgresRepo) CreateSale(ctx context.Context, s *sales.Sale) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, date, user_id, payment_method, total, profit)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.Date, s.UserID, s.PaymentMethod, s.Total, s.Profit)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	for _, item := range s.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, name, price, cost, qty)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			s.ID, item.ProductID, item.Name, item.Price, item.Cost, item.Qty)
		if err != nil {
			return fmt.Errorf("insert sale_item: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $1
			WHERE id = $2 AND stock >= $1`,
			item.Qty, item.ProductID)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrInsufficientStock, item.Name)
		}
	}

	for _, topic := range []realtime.Topic{realtime.TopicSales, realtime.TopicCatalog} {
		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, '')`, string(topic)); err != nil {
			return err
		}
	}
	return tx.Commit()
}
