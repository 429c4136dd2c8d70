package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PgUserDirectory resolves notification recipients against the platform
// users table. Only the id and is_active columns are read.
type PgUserDirectory struct {
	db *sqlx.DB
}

func NewPgUserDirectory(db *sqlx.DB) *PgUserDirectory {
	return &PgUserDirectory{db: db}
}

func (d *PgUserDirectory) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	query := d.db.Rebind(`SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`)
	if err := d.db.GetContext(ctx, &exists, query, userID); err != nil {
		return false, classify(err)
	}
	return exists, nil
}

// ListActiveUserIDs returns active users in a stable order.
func (d *PgUserDirectory) ListActiveUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	query := d.db.Rebind(`SELECT id FROM users WHERE is_active = ? ORDER BY created_at, id`)
	if err := d.db.SelectContext(ctx, &ids, query, true); err != nil {
		return nil, classify(err)
	}
	return ids, nil
}
