package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxTitleLength   = 100
	MaxMessageLength = 500
)

type Category string

const (
	CategoryOrderCreated       Category = "order_created"
	CategoryOrderStatusChanged Category = "order_status_changed"
	CategoryDeliveryAssigned   Category = "delivery_assigned"
	CategoryPaymentProcessed   Category = "payment_processed"
	CategoryRestaurantApproved Category = "restaurant_approved"
	CategorySystemMaintenance  Category = "system_maintenance"
	CategoryPromotional        Category = "promotional"
)

// Categories lists every known category in declaration order.
var Categories = []Category{
	CategoryOrderCreated,
	CategoryOrderStatusChanged,
	CategoryDeliveryAssigned,
	CategoryPaymentProcessed,
	CategoryRestaurantApproved,
	CategorySystemMaintenance,
	CategoryPromotional,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory accepts "order-created", "ORDER_CREATED" and similar spellings.
func ParseCategory(s string) (Category, error) {
	c := Category(normalizeTag(s))
	if !c.Valid() {
		return "", NewValidationError("category", "unknown category %q", s)
	}
	return c, nil
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority returns PriorityNormal for an empty string.
func ParsePriority(s string) (Priority, error) {
	if strings.TrimSpace(s) == "" {
		return PriorityNormal, nil
	}
	p := Priority(normalizeTag(s))
	if !p.Valid() {
		return "", NewValidationError("priority", "unknown priority %q", s)
	}
	return p, nil
}

func normalizeTag(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}

// State is the lifecycle position of a notification. Purged records no
// longer exist, so StatePurged is never returned by Notification.State.
type State string

const (
	StateUnread      State = "unread"
	StateRead        State = "read"
	StateSoftDeleted State = "soft_deleted"
	StatePurged      State = "purged"
)

type Notification struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Seq           int64      `json:"-" db:"seq"`
	RecipientID   uuid.UUID  `json:"user_id" db:"user_id"`
	Title         string     `json:"title" db:"title"`
	Message       string     `json:"message" db:"message"`
	Category      Category   `json:"category" db:"category"`
	Priority      Priority   `json:"priority" db:"priority"`
	IsRead        bool       `json:"is_read" db:"is_read"`
	ReadAt        *time.Time `json:"read_at,omitempty" db:"read_at"`
	IsDeleted     bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	CorrelationID *uuid.UUID `json:"correlation_id,omitempty" db:"correlation_id"`
}

func (n *Notification) State() State {
	switch {
	case n.IsDeleted:
		return StateSoftDeleted
	case n.IsRead:
		return StateRead
	default:
		return StateUnread
	}
}

func (n *Notification) IsHighPriority() bool {
	return n.Priority == PriorityHigh
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (n *Notification) Clone() *Notification {
	c := *n
	if n.ReadAt != nil {
		t := *n.ReadAt
		c.ReadAt = &t
	}
	if n.DeletedAt != nil {
		t := *n.DeletedAt
		c.DeletedAt = &t
	}
	if n.CorrelationID != nil {
		id := *n.CorrelationID
		c.CorrelationID = &id
	}
	return &c
}

// Validate checks field rules and the read/deleted timestamp invariants.
func (n *Notification) Validate() error {
	if n.RecipientID == uuid.Nil {
		return NewValidationError("user_id", "recipient is required")
	}
	if err := validateText("title", n.Title, MaxTitleLength); err != nil {
		return err
	}
	if err := validateText("message", n.Message, MaxMessageLength); err != nil {
		return err
	}
	if !n.Category.Valid() {
		return NewValidationError("category", "unknown category %q", n.Category)
	}
	if !n.Priority.Valid() {
		return NewValidationError("priority", "unknown priority %q", n.Priority)
	}
	if n.IsRead != (n.ReadAt != nil) {
		return NewValidationError("read_at", "read_at must be set iff is_read")
	}
	if n.IsDeleted != (n.DeletedAt != nil) {
		return NewValidationError("deleted_at", "deleted_at must be set iff is_deleted")
	}
	return nil
}

func validateText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(field, "%s is required", field)
	}
	if utf8.RuneCountInString(value) > max {
		return NewValidationError(field, "%s exceeds %d characters", field, max)
	}
	return nil
}

// Template is the shared content of a broadcast.
type Template struct {
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	Category      Category   `json:"category"`
	Priority      Priority   `json:"priority"`
	CorrelationID *uuid.UUID `json:"correlation_id,omitempty"`
}

// NewNotification builds an unread, undeleted record for recipient. The
// result is validated; a nil record is returned with the error.
func NewNotification(recipient uuid.UUID, tpl Template, now time.Time) (*Notification, error) {
	priority := tpl.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	n := &Notification{
		ID:            uuid.New(),
		RecipientID:   recipient,
		Title:         strings.TrimSpace(tpl.Title),
		Message:       strings.TrimSpace(tpl.Message),
		Category:      tpl.Category,
		Priority:      priority,
		CreatedAt:     now,
		CorrelationID: tpl.CorrelationID,
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}
