package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
	"go.uber.org/zap"
)

const DefaultPurgeCooldown = 30 * 24 * time.Hour

type LifecycleOptions struct {
	// Users is optional. When set, Create rejects unknown recipients.
	Users         domain.UserDirectory
	PurgeCooldown time.Duration
	Now           func() time.Time
	Logger        *zap.Logger
}

// LifecycleManager owns transition legality. It is the only component that
// mutates existing notifications.
type LifecycleManager struct {
	store    *NotificationStore
	users    domain.UserDirectory
	cooldown time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewLifecycleManager(store *NotificationStore, opts LifecycleOptions) *LifecycleManager {
	m := &LifecycleManager{
		store:    store,
		users:    opts.Users,
		cooldown: opts.PurgeCooldown,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if m.cooldown <= 0 {
		m.cooldown = DefaultPurgeCooldown
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

type CreateInput struct {
	RecipientID   uuid.UUID  `json:"user_id"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	Category      string     `json:"category"`
	Priority      string     `json:"priority"`
	CorrelationID *uuid.UUID `json:"correlation_id,omitempty"`
}

func (m *LifecycleManager) Create(ctx context.Context, in CreateInput) (*domain.Notification, error) {
	category, err := domain.ParseCategory(in.Category)
	if err != nil {
		return nil, err
	}
	priority, err := domain.ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	n, err := domain.NewNotification(in.RecipientID, domain.Template{
		Title:         in.Title,
		Message:       in.Message,
		Category:      category,
		Priority:      priority,
		CorrelationID: in.CorrelationID,
	}, m.now())
	if err != nil {
		return nil, err
	}

	if m.users != nil {
		ok, err := m.users.Exists(ctx, in.RecipientID)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "lookup recipient", Attempts: 1, Err: err}
		}
		if !ok {
			return nil, domain.ErrRecipientNotFound
		}
	}

	created, err := m.store.Create(ctx, n)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("notification created",
		zap.String("id", created.ID.String()),
		zap.String("user_id", created.RecipientID.String()),
		zap.String("category", string(created.Category)),
	)
	return created, nil
}

func (m *LifecycleManager) Get(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	return m.store.Get(ctx, id)
}

func (m *LifecycleManager) MarkRead(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	now := m.now()
	return m.transition(ctx, id, func(n *domain.Notification) bool { return n.MarkRead(now) })
}

func (m *LifecycleManager) MarkUnread(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	return m.transition(ctx, id, (*domain.Notification).MarkUnread)
}

func (m *LifecycleManager) SoftDelete(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	now := m.now()
	return m.transition(ctx, id, func(n *domain.Notification) bool { return n.SoftDelete(now) })
}

func (m *LifecycleManager) Restore(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	return m.transition(ctx, id, (*domain.Notification).Restore)
}

// transition loads the record and writes it back only when apply changed
// it, so repeating a transition never issues a second write.
func (m *LifecycleManager) transition(ctx context.Context, id uuid.UUID, apply func(*domain.Notification) bool) (*domain.Notification, error) {
	n, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !apply(n) {
		return n, nil
	}
	return m.store.Update(ctx, n)
}

// Purge physically removes a soft-deleted notification once the purge
// cooldown has elapsed since it was deleted.
func (m *LifecycleManager) Purge(ctx context.Context, id uuid.UUID) error {
	return m.purge(ctx, id, false)
}

// ForcePurge skips the cooldown. The record must still be soft-deleted.
func (m *LifecycleManager) ForcePurge(ctx context.Context, id uuid.UUID) error {
	return m.purge(ctx, id, true)
}

func (m *LifecycleManager) purge(ctx context.Context, id uuid.UUID, force bool) error {
	n, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !n.IsDeleted {
		return domain.NewValidationError("state", "notification must be soft-deleted before purge")
	}
	if !force && !n.PurgeableAt(m.now(), m.cooldown) {
		return domain.NewValidationError("deleted_at", "purge cooldown of %s has not elapsed", m.cooldown)
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info("notification purged", zap.String("id", id.String()), zap.Bool("forced", force))
	return nil
}

// MarkAllRead marks every unread, non-deleted notification of recipient as
// read and returns how many changed.
func (m *LifecycleManager) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int, error) {
	now := m.now()
	marked := 0
	for {
		if err := ctx.Err(); err != nil {
			return marked, err
		}
		batch, err := m.store.Find(ctx, domain.Filter{
			RecipientID: &recipientID,
			UnreadOnly:  true,
			Limit:       m.store.batchSize,
		})
		if err != nil {
			return marked, err
		}
		if len(batch) == 0 {
			return marked, nil
		}
		for i := range batch {
			n := &batch[i]
			if !n.MarkRead(now) {
				continue
			}
			if _, err := m.store.Update(ctx, n); err != nil {
				return marked, err
			}
			marked++
		}
	}
}

func (m *LifecycleManager) NotifyOrderCreated(ctx context.Context, customerID, orderID uuid.UUID) (*domain.Notification, error) {
	return m.Create(ctx, CreateInput{
		RecipientID:   customerID,
		Title:         "Order Created",
		Message:       fmt.Sprintf("Your order %s was placed", shortID(orderID)),
		Category:      string(domain.CategoryOrderCreated),
		CorrelationID: &orderID,
	})
}

// NotifyOrderStatusChanged reports a new order status. The status value is
// owned by the order module and is only echoed here.
func (m *LifecycleManager) NotifyOrderStatusChanged(ctx context.Context, customerID, orderID uuid.UUID, status string) (*domain.Notification, error) {
	priority := domain.PriorityNormal
	if status == "cancelled" || status == "canceled" {
		priority = domain.PriorityHigh
	}
	return m.Create(ctx, CreateInput{
		RecipientID:   customerID,
		Title:         "Order Updated",
		Message:       fmt.Sprintf("Your order %s is now %s", shortID(orderID), status),
		Category:      string(domain.CategoryOrderStatusChanged),
		Priority:      string(priority),
		CorrelationID: &orderID,
	})
}

func (m *LifecycleManager) NotifyDeliveryAssigned(ctx context.Context, driverID, deliveryID uuid.UUID, pickupAddress string) (*domain.Notification, error) {
	return m.Create(ctx, CreateInput{
		RecipientID:   driverID,
		Title:         "New Delivery Assigned",
		Message:       fmt.Sprintf("Pick up delivery %s at %s", shortID(deliveryID), pickupAddress),
		Category:      string(domain.CategoryDeliveryAssigned),
		Priority:      string(domain.PriorityHigh),
		CorrelationID: &deliveryID,
	})
}

func (m *LifecycleManager) NotifyPaymentProcessed(ctx context.Context, customerID, orderID uuid.UUID, amount string) (*domain.Notification, error) {
	return m.Create(ctx, CreateInput{
		RecipientID:   customerID,
		Title:         "Payment Received",
		Message:       fmt.Sprintf("Payment of %s for order %s was processed", amount, shortID(orderID)),
		Category:      string(domain.CategoryPaymentProcessed),
		CorrelationID: &orderID,
	})
}

func (m *LifecycleManager) NotifyRestaurantApproved(ctx context.Context, ownerID, restaurantID uuid.UUID, name string) (*domain.Notification, error) {
	return m.Create(ctx, CreateInput{
		RecipientID:   ownerID,
		Title:         "Restaurant Approved",
		Message:       fmt.Sprintf("%s is now live and accepting orders", name),
		Category:      string(domain.CategoryRestaurantApproved),
		Priority:      string(domain.PriorityHigh),
		CorrelationID: &restaurantID,
	})
}

func shortID(id uuid.UUID) string {
	return "#" + id.String()[:8]
}
