package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukasoft/duka-pos/internal/realtime"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, cost, stock, min_stock, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.Name, p.Price, p.Cost, p.Stock, p.MinStock, p.CreatedAt)
	if err != nil {
		return err
	}
	return r.notifyPeers(ctx)
}

func scanProduct(scan func(...interface{}) error) (*Product, error) {
	p := &Product{}
	err := scan(&p.ID, &p.Name, &p.Price, &p.Cost, &p.Stock, &p.MinStock, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, price, cost, stock, min_stock, created_at
		FROM products WHERE id=$1`, uid)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return p, err
}

func (r *postgresRepo) List(ctx context.Context) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price, cost, stock, min_stock, created_at
		FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Update writes only the patch's non-nil columns. Stock in particular stays
// untouched unless the patch carries it, so a decrement committed between the
// edit being typed and saved survives the save.
func (r *postgresRepo) Update(ctx context.Context, id string, patch ProductPatch) (*Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE products SET
			name      = COALESCE($1, name),
			price     = COALESCE($2, price),
			cost      = COALESCE($3, cost),
			stock     = COALESCE($4, stock),
			min_stock = COALESCE($5, min_stock)
		WHERE id=$6
		RETURNING id, name, price, cost, stock, min_stock, created_at`,
		patch.Name, patch.Price, patch.Cost, patch.Stock, patch.MinStock, uid)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return p, r.notifyPeers(ctx)
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, uid)
	if err != nil {
		return err
	}
	return r.notifyPeers(ctx)
}

// notifyPeers fires a Postgres NOTIFY so other service instances reload their
// mirrors. The local hub is signalled by the service layer.
func (r *postgresRepo) notifyPeers(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `SELECT pg_notify($1, '')`, string(realtime.TopicCatalog))
	return err
}
