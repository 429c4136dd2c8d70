package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
	"github.com/saransh1220/foodhub/internal/shared/infrastructure/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "notifications.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sqliteNotification(recipient uuid.UUID, createdAt time.Time) *domain.Notification {
	return &domain.Notification{
		ID:          uuid.New(),
		RecipientID: recipient,
		Title:       "Order Created",
		Message:     "Your order #42 was placed",
		Category:    domain.CategoryOrderCreated,
		Priority:    domain.PriorityNormal,
		CreatedAt:   createdAt,
	}
}

func TestSQLite_NotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewPgNotificationRepository(newSQLiteDB(t))
	recipient := uuid.New()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	n := sqliteNotification(recipient, base)
	require.NoError(t, repo.Insert(ctx, n))

	got, err := repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, recipient, got.RecipientID)
	assert.True(t, base.Equal(got.CreatedAt))
	assert.Positive(t, got.Seq)
	assert.Nil(t, got.CorrelationID)

	readAt := base.Add(time.Minute)
	got.MarkRead(readAt)
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	require.NotNil(t, got.ReadAt)
	assert.True(t, readAt.Equal(*got.ReadAt))

	require.NoError(t, repo.Delete(ctx, n.ID))
	_, err = repo.GetByID(ctx, n.ID)
	assert.ErrorIs(t, err, domain.ErrNotificationNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, n.ID), domain.ErrNotificationNotFound)
}

func TestSQLite_FindOrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewPgNotificationRepository(newSQLiteDB(t))
	recipient := uuid.New()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	older := sqliteNotification(recipient, base.Add(-48*time.Hour))
	tieFirst := sqliteNotification(recipient, base)
	tieSecond := sqliteNotification(recipient, base)
	promo := sqliteNotification(recipient, base.Add(-time.Hour))
	promo.Category = domain.CategoryPromotional
	require.NoError(t, repo.InsertBatch(ctx, []*domain.Notification{older, tieFirst, tieSecond, promo}))
	require.NoError(t, repo.Insert(ctx, sqliteNotification(uuid.New(), base)))

	all, err := repo.Find(ctx, domain.Filter{RecipientID: &recipient})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []uuid.UUID{tieSecond.ID, tieFirst.ID, promo.ID, older.ID},
		[]uuid.UUID{all[0].ID, all[1].ID, all[2].ID, all[3].ID})

	cutoff := base.Add(-24 * time.Hour)
	aged, err := repo.Find(ctx, domain.Filter{CreatedBefore: &cutoff, OldestFirst: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, aged, 1)
	assert.Equal(t, older.ID, aged[0].ID)

	count, err := repo.Count(ctx, domain.Filter{RecipientID: &recipient, Categories: []domain.Category{domain.CategoryPromotional}})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	counts, err := repo.CountByCategory(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, map[domain.Category]int{domain.CategoryOrderCreated: 3, domain.CategoryPromotional: 1}, counts)
}

func TestSQLite_UserDirectory(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	dir := NewPgUserDirectory(db)
	first, second, inactive := uuid.New(), uuid.New(), uuid.New()

	for _, u := range []struct {
		id        uuid.UUID
		active    bool
		createdAt string
	}{
		{second, true, "2024-02-01 00:00:00"},
		{first, true, "2024-01-01 00:00:00"},
		{inactive, false, "2023-12-01 00:00:00"},
	} {
		_, err := db.Exec(`INSERT INTO users (id, email, is_active, created_at) VALUES (?, ?, ?, ?)`,
			u.id.String(), u.id.String()+"@example.com", u.active, u.createdAt)
		require.NoError(t, err)
	}

	ok, err := dir.Exists(ctx, inactive)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.Exists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := dir.ListActiveUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second}, ids)
}
