package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
)

// Queries are written with ? placeholders and passed through Rebind, so the
// same repository runs on lib/pq and on the embedded sqlite driver.

const notificationColumns = `id, seq, user_id, title, message, category, priority,
	is_read, read_at, is_deleted, deleted_at, created_at, correlation_id`

const insertNotification = `
	INSERT INTO notifications (
		id, user_id, title, message, category, priority,
		is_read, read_at, is_deleted, deleted_at, created_at, correlation_id
	) VALUES (
		:id, :user_id, :title, :message, :category, :priority,
		:is_read, :read_at, :is_deleted, :deleted_at, :created_at, :correlation_id
	)`

type PgNotificationRepository struct {
	db *sqlx.DB
}

func NewPgNotificationRepository(db *sqlx.DB) *PgNotificationRepository {
	return &PgNotificationRepository{db: db}
}

func (r *PgNotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.NamedExecContext(ctx, insertNotification, n)
	return classify(err)
}

func (r *PgNotificationRepository) InsertBatch(ctx context.Context, ns []*domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	// sqlx expands a slice argument into a multi-row VALUES list.
	if _, err := tx.NamedExecContext(ctx, insertNotification, ns); err != nil {
		return classify(err)
	}

	return classify(tx.Commit())
}

func (r *PgNotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	n := &domain.Notification{}
	query := r.db.Rebind(`SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`)

	err := r.db.GetContext(ctx, n, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotificationNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return n, nil
}

func (r *PgNotificationRepository) Update(ctx context.Context, n *domain.Notification) error {
	query := `
		UPDATE notifications
		SET title = :title,
			message = :message,
			category = :category,
			priority = :priority,
			is_read = :is_read,
			read_at = :read_at,
			is_deleted = :is_deleted,
			deleted_at = :deleted_at,
			correlation_id = :correlation_id
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, n)
	if err != nil {
		return classify(err)
	}
	return expectRow(res)
}

func (r *PgNotificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM notifications WHERE id = ?`), id)
	if err != nil {
		return classify(err)
	}
	return expectRow(res)
}

func (r *PgNotificationRepository) Find(ctx context.Context, f domain.Filter) ([]domain.Notification, error) {
	where, args := buildWhere(f)

	order := ` ORDER BY created_at DESC, seq DESC`
	if f.OldestFirst {
		order = ` ORDER BY created_at ASC, seq ASC`
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications` + where + order
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	notifications := []domain.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, r.db.Rebind(query), args...); err != nil {
		return nil, classify(err)
	}
	return notifications, nil
}

func (r *PgNotificationRepository) Count(ctx context.Context, f domain.Filter) (int, error) {
	where, args := buildWhere(f)

	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM notifications`+where), args...)
	if err != nil {
		return 0, classify(err)
	}
	return count, nil
}

func (r *PgNotificationRepository) CountByCategory(ctx context.Context, recipientID uuid.UUID) (map[domain.Category]int, error) {
	query := r.db.Rebind(`
		SELECT category, COUNT(*) AS total
		FROM notifications
		WHERE user_id = ? AND is_deleted = ?
		GROUP BY category
	`)

	var rows []struct {
		Category domain.Category `db:"category"`
		Total    int             `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, recipientID, false); err != nil {
		return nil, classify(err)
	}

	counts := make(map[domain.Category]int, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Total
	}
	return counts, nil
}

func buildWhere(f domain.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.RecipientID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, *f.RecipientID)
	}
	if len(f.Categories) > 0 {
		placeholders := make([]string, len(f.Categories))
		for i, c := range f.Categories {
			placeholders[i] = "?"
			args = append(args, c)
		}
		conds = append(conds, "category IN ("+strings.Join(placeholders, ", ")+")")
	}
	if f.Priority != nil {
		conds = append(conds, "priority = ?")
		args = append(args, *f.Priority)
	}
	if f.UnreadOnly {
		conds = append(conds, "is_read = ?")
		args = append(args, false)
	}
	if f.CreatedAfter != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		conds = append(conds, "created_at < ?")
		args = append(args, *f.CreatedBefore)
	}
	if f.DeletedBefore != nil {
		conds = append(conds, "deleted_at < ?")
		args = append(args, *f.DeletedBefore)
	}
	if f.CorrelationID != nil {
		conds = append(conds, "correlation_id = ?")
		args = append(args, *f.CorrelationID)
	}

	switch f.Deleted {
	case domain.ExcludeDeleted:
		conds = append(conds, "is_deleted = ?")
		args = append(args, false)
	case domain.OnlyDeleted:
		conds = append(conds, "is_deleted = ?")
		args = append(args, true)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func expectRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}
