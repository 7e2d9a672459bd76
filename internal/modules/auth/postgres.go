package auth

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, id *Identity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (id, email, display_name, anonymous, password_hash)
		VALUES ($1,$2,$3,$4,$5)`,
		id.ID, nullable(id.Email), id.DisplayName, id.Anonymous, id.PasswordHash)
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Identity, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return scanIdentity(r.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, anonymous, password_hash, created_at
		FROM identities WHERE id=$1`, uid))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	return scanIdentity(r.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, anonymous, password_hash, created_at
		FROM identities WHERE email=$1`, email))
}

func scanIdentity(row *sql.Row) (*Identity, error) {
	id := &Identity{}
	var email sql.NullString
	err := row.Scan(&id.ID, &email, &id.DisplayName, &id.Anonymous, &id.PasswordHash, &id.CreatedAt)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		id.Email = email.String
	}
	return id, nil
}

// nullable maps an empty string to NULL so the partial unique index on email
// never collides for anonymous identities.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
