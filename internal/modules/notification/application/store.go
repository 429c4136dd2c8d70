package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 50 * time.Millisecond
	DefaultBatchSize   = 50
)

type StoreOptions struct {
	MaxAttempts int
	Backoff     Backoff
	Sleeper     Sleeper
	BatchSize   int
	Now         func() time.Time
	Logger      *zap.Logger
}

// NotificationStore is the durable CRUD layer. Transient contention on
// writes is retried here and never reaches the caller on success.
type NotificationStore struct {
	repo        domain.NotificationRepository
	maxAttempts int
	backoff     Backoff
	sleeper     Sleeper
	batchSize   int
	now         func() time.Time
	logger      *zap.Logger
}

func NewNotificationStore(repo domain.NotificationRepository, opts StoreOptions) *NotificationStore {
	s := &NotificationStore{
		repo:        repo,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		sleeper:     opts.Sleeper,
		batchSize:   opts.BatchSize,
		now:         opts.Now,
		logger:      opts.Logger,
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.backoff == nil {
		s.backoff = LinearBackoff{Base: DefaultBaseDelay}
	}
	if s.sleeper == nil {
		s.sleeper = realSleeper{}
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func (s *NotificationStore) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	s.prepare(n)
	if err := n.Validate(); err != nil {
		return nil, err
	}

	err := s.repo.Insert(ctx, n)
	recordStoreOp("create", err)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "create notification", Attempts: 1, Err: err}
	}
	return n.Clone(), nil
}

func (s *NotificationStore) Get(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotificationNotFound) {
		return nil, domain.ErrNotificationNotFound
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get notification", Attempts: 1, Err: err}
	}
	return n, nil
}

// Update overwrites the stored state with n. The write carries the full
// record, so re-running it after a transient failure is safe.
func (s *NotificationStore) Update(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	err := s.withRetry(ctx, "update notification", func() error {
		return s.repo.Update(ctx, n)
	})
	recordStoreOp("update", err)
	if err != nil {
		return nil, err
	}
	return n.Clone(), nil
}

// Delete physically removes a record. Only purge paths call it.
func (s *NotificationStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	recordStoreOp("delete", err)
	if errors.Is(err, domain.ErrNotificationNotFound) {
		return domain.ErrNotificationNotFound
	}
	if err != nil {
		return &domain.PersistenceError{Op: "delete notification", Attempts: 1, Err: err}
	}
	return nil
}

type BatchFailure struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	Err         error
}

type BatchResult struct {
	Requested int
	Inserted  int
	Failed    int
	Chunks    int
	Failures  []BatchFailure
}

// BatchCreate inserts records in chunks of the configured batch size, one
// transaction per chunk. A failed chunk is reported and later chunks still
// run. Cancellation is checked before each chunk.
func (s *NotificationStore) BatchCreate(ctx context.Context, ns []*domain.Notification) BatchResult {
	res := BatchResult{Requested: len(ns)}

	valid := make([]*domain.Notification, 0, len(ns))
	for _, n := range ns {
		s.prepare(n)
		if err := n.Validate(); err != nil {
			res.fail(n, err)
			continue
		}
		valid = append(valid, n)
	}

	for start := 0; start < len(valid); start += s.batchSize {
		end := min(start+s.batchSize, len(valid))
		chunk := valid[start:end]

		if err := ctx.Err(); err != nil {
			for _, n := range valid[start:] {
				res.fail(n, err)
			}
			break
		}

		res.Chunks++
		err := s.withRetry(ctx, "insert notification batch", func() error {
			return s.repo.InsertBatch(ctx, chunk)
		})
		recordStoreOp("batch_create", err)
		if err != nil {
			s.logger.Error("notification batch chunk failed",
				zap.Int("chunk", res.Chunks),
				zap.Int("size", len(chunk)),
				zap.Error(err),
			)
			for _, n := range chunk {
				res.fail(n, err)
			}
			continue
		}
		res.Inserted += len(chunk)
	}

	return res
}

func (r *BatchResult) fail(n *domain.Notification, err error) {
	r.Failed++
	r.Failures = append(r.Failures, BatchFailure{ID: n.ID, RecipientID: n.RecipientID, Err: err})
}

func (s *NotificationStore) prepare(n *domain.Notification) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	if n.Priority == "" {
		n.Priority = domain.PriorityNormal
	}
}

// withRetry runs fn up to maxAttempts times while it fails with a
// retryable error. ErrNotificationNotFound and validation errors are
// returned as they are; every other failure becomes a PersistenceError.
func (s *NotificationStore) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrNotificationNotFound) || errors.Is(err, domain.ErrValidation) {
			return err
		}
		if !domain.IsRetryable(err) {
			return &domain.PersistenceError{Op: op, Attempts: attempt, Err: err}
		}
		if attempt == s.maxAttempts {
			break
		}

		delay := s.backoff.Delay(attempt)
		storeRetries.WithLabelValues(op).Inc()
		s.logger.Warn("transient store contention, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if sleepErr := s.sleeper.Sleep(ctx, delay); sleepErr != nil {
			return &domain.PersistenceError{Op: op, Attempts: attempt, Err: sleepErr}
		}
	}
	return &domain.PersistenceError{Op: op, Attempts: s.maxAttempts, Err: err}
}

func (s *NotificationStore) Find(ctx context.Context, f domain.Filter) ([]domain.Notification, error) {
	items, err := s.repo.Find(ctx, f)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "find notifications", Attempts: 1, Err: err}
	}
	return items, nil
}

func (s *NotificationStore) Count(ctx context.Context, f domain.Filter) (int, error) {
	n, err := s.repo.Count(ctx, f)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "count notifications", Attempts: 1, Err: err}
	}
	return n, nil
}

func (s *NotificationStore) CountByCategory(ctx context.Context, recipientID uuid.UUID) (map[domain.Category]int, error) {
	counts, err := s.repo.CountByCategory(ctx, recipientID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "count notifications by category", Attempts: 1, Err: err}
	}
	return counts, nil
}
