package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/saransh1220/foodhub/internal/modules/notification/application"
	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
	"github.com/saransh1220/foodhub/internal/modules/notification/infrastructure/persistence/postgres"
	notification_http "github.com/saransh1220/foodhub/internal/modules/notification/interfaces/http"
	"go.uber.org/zap"
)

// Options tunes the module. Zero values fall back to the application
// defaults.
type Options struct {
	MaxAttempts         int
	BaseDelay           time.Duration
	BatchSize           int
	PurgeCooldown       time.Duration
	SoftDeleteAfterDays int
	PurgeAfterDays      int
	LockTTL             time.Duration
	// VerifyRecipients makes Create check the users table.
	VerifyRecipients bool

	Archiver domain.Archiver
	Locker   domain.Locker
	Logger   *zap.Logger
}

type Module struct {
	store     *application.NotificationStore
	lifecycle *application.LifecycleManager
	query     *application.QueryIndex
	sweeper   *application.MaintenanceSweeper
	handler   *notification_http.NotificationHandler
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewModule(db *sqlx.DB, opts Options) *Module {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("notification")

	repo := postgres.NewPgNotificationRepository(db)
	users := postgres.NewPgUserDirectory(db)

	store := application.NewNotificationStore(repo, application.StoreOptions{
		MaxAttempts: opts.MaxAttempts,
		Backoff:     application.LinearBackoff{Base: baseDelay(opts.BaseDelay), Jitter: baseDelay(opts.BaseDelay) / 2},
		BatchSize:   opts.BatchSize,
		Logger:      logger,
	})

	lifecycleOpts := application.LifecycleOptions{PurgeCooldown: opts.PurgeCooldown, Logger: logger}
	if opts.VerifyRecipients {
		lifecycleOpts.Users = users
	}
	lifecycle := application.NewLifecycleManager(store, lifecycleOpts)
	query := application.NewQueryIndex(store)
	broadcast := application.NewBroadcastEngine(store, nil, logger)
	sweeper := application.NewMaintenanceSweeper(store, application.MaintenanceOptions{
		SoftDeleteAfterDays: opts.SoftDeleteAfterDays,
		PurgeAfterDays:      opts.PurgeAfterDays,
		PurgeCooldown:       opts.PurgeCooldown,
		Archiver:            opts.Archiver,
		Locker:              opts.Locker,
		LockTTL:             opts.LockTTL,
		Logger:              logger,
	})

	handler := notification_http.NewNotificationHandler(notification_http.Deps{
		Lifecycle: lifecycle,
		Query:     query,
		Broadcast: broadcast,
		Sweeper:   sweeper,
		Users:     users,
		Logger:    logger,
	})

	return &Module{
		store:     store,
		lifecycle: lifecycle,
		query:     query,
		sweeper:   sweeper,
		handler:   handler,
		logger:    logger,
	}
}

func baseDelay(d time.Duration) time.Duration {
	if d <= 0 {
		return application.DefaultBaseDelay
	}
	return d
}

func (m *Module) HTTPHandler() *notification_http.NotificationHandler {
	return m.handler
}

// Lifecycle is the entry point for other modules that emit notifications.
func (m *Module) Lifecycle() *application.LifecycleManager {
	return m.lifecycle
}

func (m *Module) Query() *application.QueryIndex {
	return m.query
}

// StartMaintenance runs the sweeper every interval until ctx is cancelled
// or Shutdown is called. A non-positive interval disables the loop.
func (m *Module) StartMaintenance(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		m.logger.Info("scheduled maintenance disabled")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		m.logger.Info("scheduled maintenance started", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.runMaintenance(ctx)
			}
		}
	}()
}

func (m *Module) runMaintenance(ctx context.Context) {
	report, err := m.sweeper.RunDaily(ctx)
	switch {
	case errors.Is(err, domain.ErrLockHeld):
		m.logger.Debug("maintenance skipped, lock held elsewhere")
	case err != nil:
		m.logger.Error("maintenance run failed",
			zap.Error(err),
			zap.Int("soft_deleted", report.SoftDeleted),
			zap.Int("purged", report.Purged),
		)
	default:
		m.logger.Info("maintenance run finished",
			zap.Int("soft_deleted", report.SoftDeleted),
			zap.Int("purged", report.Purged),
			zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
		)
	}
}

// Shutdown stops the maintenance loop and waits for an in-flight run.
func (m *Module) Shutdown() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}
