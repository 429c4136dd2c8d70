package application

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
)

const MaxPageSize = 100

// Page is a zero-based page request.
type Page struct {
	Number int
	Size   int
}

func (p Page) Validate() error {
	if p.Number < 0 {
		return domain.NewValidationError("page", "page must be >= 0, got %d", p.Number)
	}
	if p.Size <= 0 || p.Size > MaxPageSize {
		return domain.NewValidationError("size", "size must be in 1..%d, got %d", MaxPageSize, p.Size)
	}
	// Offsets past MaxInt32 overflow the engine's OFFSET on some drivers.
	if p.Number > math.MaxInt32/p.Size {
		return domain.NewValidationError("page", "page %d is out of range for size %d", p.Number, p.Size)
	}
	return nil
}

func (p Page) apply(f *domain.Filter) {
	f.Limit = p.Size
	f.Offset = p.Number * p.Size
}

// QueryIndex serves read-only views. Soft-deleted notifications are hidden
// unless the view says otherwise. Results are newest first.
type QueryIndex struct {
	store *NotificationStore
	now   func() time.Time
}

func NewQueryIndex(store *NotificationStore) *QueryIndex {
	return &QueryIndex{store: store, now: store.now}
}

func (q *QueryIndex) ByRecipient(ctx context.Context, recipientID uuid.UUID, page Page) ([]domain.Notification, error) {
	return q.paged(ctx, domain.Filter{RecipientID: &recipientID}, page)
}

func (q *QueryIndex) UnreadByRecipient(ctx context.Context, recipientID uuid.UUID) ([]domain.Notification, error) {
	return q.store.Find(ctx, domain.Filter{RecipientID: &recipientID, UnreadOnly: true})
}

func (q *QueryIndex) ByCategory(ctx context.Context, recipientID uuid.UUID, category domain.Category) ([]domain.Notification, error) {
	if !category.Valid() {
		return nil, domain.NewValidationError("category", "unknown category %q", category)
	}
	return q.store.Find(ctx, domain.Filter{
		RecipientID: &recipientID,
		Categories:  []domain.Category{category},
	})
}

func (q *QueryIndex) ByPriority(ctx context.Context, recipientID uuid.UUID, priority domain.Priority) ([]domain.Notification, error) {
	if !priority.Valid() {
		return nil, domain.NewValidationError("priority", "unknown priority %q", priority)
	}
	return q.store.Find(ctx, domain.Filter{RecipientID: &recipientID, Priority: &priority})
}

func (q *QueryIndex) HighPriority(ctx context.Context, recipientID uuid.UUID) ([]domain.Notification, error) {
	return q.ByPriority(ctx, recipientID, domain.PriorityHigh)
}

// Recent returns notifications created within the last days days.
func (q *QueryIndex) Recent(ctx context.Context, recipientID uuid.UUID, days int) ([]domain.Notification, error) {
	if days <= 0 {
		return nil, domain.NewValidationError("days", "days must be positive, got %d", days)
	}
	since := q.now().AddDate(0, 0, -days)
	return q.store.Find(ctx, domain.Filter{RecipientID: &recipientID, CreatedAfter: &since})
}

// ByCorrelation returns notifications about one external entity. Only the
// categories that refer to that kind of entity are considered.
func (q *QueryIndex) ByCorrelation(ctx context.Context, kind domain.CorrelationKind, id uuid.UUID) ([]domain.Notification, error) {
	categories, err := domain.CategoriesFor(kind)
	if err != nil {
		return nil, err
	}
	return q.store.Find(ctx, domain.Filter{CorrelationID: &id, Categories: categories})
}

func (q *QueryIndex) ForOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Notification, error) {
	return q.ByCorrelation(ctx, domain.CorrelationOrder, orderID)
}

func (q *QueryIndex) ForRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]domain.Notification, error) {
	return q.ByCorrelation(ctx, domain.CorrelationRestaurant, restaurantID)
}

func (q *QueryIndex) ForDelivery(ctx context.Context, deliveryID uuid.UUID) ([]domain.Notification, error) {
	return q.ByCorrelation(ctx, domain.CorrelationDelivery, deliveryID)
}

func (q *QueryIndex) Latest(ctx context.Context, recipientID uuid.UUID) (*domain.Notification, error) {
	items, err := q.store.Find(ctx, domain.Filter{RecipientID: &recipientID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrNotificationNotFound
	}
	return &items[0], nil
}

func (q *QueryIndex) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	return q.store.Count(ctx, domain.Filter{RecipientID: &recipientID, UnreadOnly: true})
}

// CountByCategory includes every known category, with zero for the ones
// the recipient has none of.
func (q *QueryIndex) CountByCategory(ctx context.Context, recipientID uuid.UUID) (map[domain.Category]int, error) {
	counts, err := q.store.CountByCategory(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Category]int, len(domain.Categories))
	for _, c := range domain.Categories {
		out[c] = counts[c]
	}
	return out, nil
}

func (q *QueryIndex) HighPriorityUnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	high := domain.PriorityHigh
	return q.store.Count(ctx, domain.Filter{RecipientID: &recipientID, Priority: &high, UnreadOnly: true})
}

func (q *QueryIndex) HasUnreadHighPriority(ctx context.Context, recipientID uuid.UUID) (bool, error) {
	n, err := q.HighPriorityUnreadCount(ctx, recipientID)
	return n > 0, err
}

// Deleted lists only soft-deleted notifications, for restore workflows.
func (q *QueryIndex) Deleted(ctx context.Context, recipientID uuid.UUID, page Page) ([]domain.Notification, error) {
	return q.paged(ctx, domain.Filter{RecipientID: &recipientID, Deleted: domain.OnlyDeleted}, page)
}

func (q *QueryIndex) WithDeleted(ctx context.Context, recipientID uuid.UUID, page Page) ([]domain.Notification, error) {
	return q.paged(ctx, domain.Filter{RecipientID: &recipientID, Deleted: domain.IncludeDeleted}, page)
}

func (q *QueryIndex) paged(ctx context.Context, f domain.Filter, page Page) ([]domain.Notification, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	page.apply(&f)
	return q.store.Find(ctx, f)
}
