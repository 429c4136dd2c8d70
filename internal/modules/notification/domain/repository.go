package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DeletedMode int

const (
	ExcludeDeleted DeletedMode = iota
	IncludeDeleted
	OnlyDeleted
)

// Filter selects notifications. Zero-valued fields do not constrain the
// result. Rows are always ordered by created_at DESC, seq DESC unless
// OldestFirst is set.
type Filter struct {
	RecipientID   *uuid.UUID
	Categories    []Category
	Priority      *Priority
	UnreadOnly    bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	DeletedBefore *time.Time
	CorrelationID *uuid.UUID
	Deleted       DeletedMode
	OldestFirst   bool
	Limit         int
	Offset        int
}

// NotificationRepository is the persistence engine behind NotificationStore.
// Transient lock contention must be reported as *RetryableStoreError.
type NotificationRepository interface {
	Insert(ctx context.Context, n *Notification) error
	// InsertBatch writes all records in one transaction.
	InsertBatch(ctx context.Context, ns []*Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	// Update overwrites the full mutable state of the record.
	Update(ctx context.Context, n *Notification) error
	Delete(ctx context.Context, id uuid.UUID) error
	Find(ctx context.Context, f Filter) ([]Notification, error)
	Count(ctx context.Context, f Filter) (int, error)
	CountByCategory(ctx context.Context, recipientID uuid.UUID) (map[Category]int, error)
}

// UserDirectory resolves platform users. It is owned by the user module.
type UserDirectory interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
	ListActiveUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Archiver stores purged records before they are physically removed.
type Archiver interface {
	Archive(ctx context.Context, batch []Notification) error
}

// Locker guards work that must run on a single instance at a time.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
