package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
	"go.uber.org/zap"
)

// RecipientSource yields the target set of a broadcast.
type RecipientSource interface {
	Recipients(ctx context.Context) ([]uuid.UUID, error)
}

// ActiveUsers targets every active user known to the directory.
func ActiveUsers(users domain.UserDirectory) RecipientSource {
	return activeUsers{users: users}
}

type activeUsers struct {
	users domain.UserDirectory
}

func (a activeUsers) Recipients(ctx context.Context) ([]uuid.UUID, error) {
	return a.users.ListActiveUserIDs(ctx)
}

// StaticRecipients is a fixed recipient list.
type StaticRecipients []uuid.UUID

func (s StaticRecipients) Recipients(context.Context) ([]uuid.UUID, error) {
	return s, nil
}

// RecordBuilder constructs the notification for a single recipient.
type RecordBuilder func(recipient uuid.UUID, tpl domain.Template, now time.Time) (*domain.Notification, error)

type SkippedRecipient struct {
	RecipientID uuid.UUID `json:"user_id"`
	Reason      string    `json:"reason"`
}

type BroadcastResult struct {
	Attempted         int                `json:"attempted"`
	Succeeded         int                `json:"succeeded"`
	Skipped           int                `json:"skipped"`
	SkippedRecipients []SkippedRecipient `json:"skipped_recipients"`
}

type BroadcastEngine struct {
	store  *NotificationStore
	build  RecordBuilder
	now    func() time.Time
	logger *zap.Logger
}

// NewBroadcastEngine uses domain.NewNotification when build is nil.
func NewBroadcastEngine(store *NotificationStore, build RecordBuilder, logger *zap.Logger) *BroadcastEngine {
	if build == nil {
		build = domain.NewNotification
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BroadcastEngine{store: store, build: build, now: store.now, logger: logger}
}

// Broadcast creates one notification per recipient from tpl. Recipients
// whose record cannot be built or stored are reported in the result and do
// not stop the others. Only a failing recipient source returns an error.
func (b *BroadcastEngine) Broadcast(ctx context.Context, tpl domain.Template, source RecipientSource) (*BroadcastResult, error) {
	recipients, err := source.Recipients(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "resolve broadcast recipients", Attempts: 1, Err: err}
	}

	res := &BroadcastResult{Attempted: len(recipients), SkippedRecipients: []SkippedRecipient{}}
	now := b.now()

	records := make([]*domain.Notification, 0, len(recipients))
	for _, r := range recipients {
		n, err := b.build(r, tpl, now)
		if err != nil {
			res.skip(r, err)
			continue
		}
		records = append(records, n)
	}

	if len(records) > 0 {
		batch := b.store.BatchCreate(ctx, records)
		res.Succeeded = batch.Inserted
		for _, f := range batch.Failures {
			res.skip(f.RecipientID, f.Err)
		}
	}

	broadcastRecipients.WithLabelValues("succeeded").Add(float64(res.Succeeded))
	broadcastRecipients.WithLabelValues("skipped").Add(float64(res.Skipped))
	b.logger.Info("broadcast finished",
		zap.String("category", string(tpl.Category)),
		zap.Int("attempted", res.Attempted),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (r *BroadcastResult) skip(recipient uuid.UUID, err error) {
	r.Skipped++
	r.SkippedRecipients = append(r.SkippedRecipients, SkippedRecipient{RecipientID: recipient, Reason: err.Error()})
}
