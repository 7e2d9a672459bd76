package sales

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Sale, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	s, err := scanSale(r.db.QueryRowContext(ctx, `
		SELECT id, date, user_id, payment_method, total, profit
		FROM sales WHERE id=$1`, uid).Scan)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]*Sale, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, user_id, payment_method, total, profit
		FROM sales ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Sale
	for rows.Next() {
		s, err := scanSale(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	// One items query for the whole list rather than one per sale.
	byID := make(map[uuid.UUID]*Sale, len(out))
	ids := make([]string, len(out))
	for i, s := range out {
		byID[s.ID] = s
		ids[i] = s.ID.String()
	}
	itemRows, err := r.db.QueryContext(ctx, `
		SELECT sale_id, product_id, name, price, cost, qty
		FROM sale_items WHERE sale_id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load sale items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var saleID uuid.UUID
		item := &SaleItem{}
		if err := itemRows.Scan(&saleID, &item.ProductID, &item.Name, &item.Price, &item.Cost, &item.Qty); err != nil {
			return nil, err
		}
		if s, ok := byID[saleID]; ok {
			s.Items = append(s.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) loadItems(ctx context.Context, s *Sale) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, price, cost, qty
		FROM sale_items WHERE sale_id=$1`, s.ID)
	if err != nil {
		return fmt.Errorf("load sale items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		item := &SaleItem{}
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Price, &item.Cost, &item.Qty); err != nil {
			return err
		}
		s.Items = append(s.Items, item)
	}
	return rows.Err()
}

func scanSale(scan func(...interface{}) error) (*Sale, error) {
	s := &Sale{}
	err := scan(&s.ID, &s.Date, &s.UserID, &s.PaymentMethod, &s.Total, &s.Profit)
	if err != nil {
		return nil, err
	}
	return s, nil
}
