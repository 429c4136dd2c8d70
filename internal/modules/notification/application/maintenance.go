package application

import (
	"context"
	"errors"
	"time"

	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
	"go.uber.org/zap"
)

const (
	DefaultSoftDeleteAfterDays = 90
	DefaultPurgeAfterDays      = 30
	DefaultMaintenanceLockTTL  = 30 * time.Minute

	maintenanceLockKey = "notification:maintenance"
)

type MaintenanceOptions struct {
	SoftDeleteAfterDays int
	PurgeAfterDays      int
	// PurgeCooldown is the minimum age of a soft-delete before any sweep
	// may purge it. Defaults to DefaultPurgeCooldown.
	PurgeCooldown time.Duration
	// Archiver and Locker are optional.
	Archiver domain.Archiver
	Locker   domain.Locker
	LockTTL  time.Duration
	Logger   *zap.Logger
}

type MaintenanceReport struct {
	SoftDeleted int       `json:"soft_deleted"`
	Purged      int       `json:"purged"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// MaintenanceSweeper ages out old notifications in two independent phases:
// soft-delete by creation age, then purge by time since soft-delete.
type MaintenanceSweeper struct {
	store          *NotificationStore
	softDeleteDays int
	purgeDays      int
	cooldown       time.Duration
	archiver       domain.Archiver
	locker         domain.Locker
	lockTTL        time.Duration
	logger         *zap.Logger
}

func NewMaintenanceSweeper(store *NotificationStore, opts MaintenanceOptions) *MaintenanceSweeper {
	s := &MaintenanceSweeper{
		store:          store,
		softDeleteDays: opts.SoftDeleteAfterDays,
		purgeDays:      opts.PurgeAfterDays,
		cooldown:       opts.PurgeCooldown,
		archiver:       opts.Archiver,
		locker:         opts.Locker,
		lockTTL:        opts.LockTTL,
		logger:         opts.Logger,
	}
	if s.softDeleteDays <= 0 {
		s.softDeleteDays = DefaultSoftDeleteAfterDays
	}
	if s.purgeDays <= 0 {
		s.purgeDays = DefaultPurgeAfterDays
	}
	if s.cooldown <= 0 {
		s.cooldown = DefaultPurgeCooldown
	}
	if s.lockTTL <= 0 {
		s.lockTTL = DefaultMaintenanceLockTTL
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// SoftDeleteOlderThan soft-deletes every live notification created more
// than days days ago. Each chunk is committed before the next is read, so
// the count returned on error is what was already applied.
func (s *MaintenanceSweeper) SoftDeleteOlderThan(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		return 0, domain.NewValidationError("days", "days must be positive, got %d", days)
	}
	now := s.store.now()
	cutoff := now.AddDate(0, 0, -days)

	affected := 0
	for {
		if err := ctx.Err(); err != nil {
			return affected, err
		}
		chunk, err := s.store.Find(ctx, domain.Filter{
			CreatedBefore: &cutoff,
			OldestFirst:   true,
			Limit:         s.store.batchSize,
		})
		if err != nil {
			return affected, err
		}
		if len(chunk) == 0 {
			return affected, nil
		}
		changed := 0
		for i := range chunk {
			n := &chunk[i]
			if !n.SoftDelete(now) {
				continue
			}
			if _, err := s.store.Update(ctx, n); err != nil {
				if errors.Is(err, domain.ErrNotificationNotFound) {
					continue
				}
				return affected, err
			}
			changed++
		}
		affected += changed
		maintenanceAffected.WithLabelValues(domain.PhaseSoftDelete).Add(float64(changed))
		if changed == 0 {
			return affected, nil
		}
	}
}

// PurgeOlderThan physically removes notifications soft-deleted more than
// days days ago. Each chunk is handed to the archiver, when configured,
// before any of it is deleted. days may not be shorter than the purge
// cooldown that LifecycleManager.Purge enforces.
func (s *MaintenanceSweeper) PurgeOlderThan(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		return 0, domain.NewValidationError("days", "days must be positive, got %d", days)
	}
	if days < cooldownDays(s.cooldown) {
		return 0, domain.NewValidationError("days", "purge cutoff of %d days is shorter than the purge cooldown of %s", days, s.cooldown)
	}
	cutoff := s.store.now().AddDate(0, 0, -days)

	affected := 0
	for {
		if err := ctx.Err(); err != nil {
			return affected, err
		}
		chunk, err := s.store.Find(ctx, domain.Filter{
			DeletedBefore: &cutoff,
			Deleted:       domain.OnlyDeleted,
			OldestFirst:   true,
			Limit:         s.store.batchSize,
		})
		if err != nil {
			return affected, err
		}
		if len(chunk) == 0 {
			return affected, nil
		}

		if s.archiver != nil {
			if err := s.archiver.Archive(ctx, chunk); err != nil {
				return affected, &domain.PersistenceError{Op: "archive notifications", Attempts: 1, Err: err}
			}
		}

		removed := 0
		for _, n := range chunk {
			if err := s.store.Delete(ctx, n.ID); err != nil {
				if errors.Is(err, domain.ErrNotificationNotFound) {
					continue
				}
				return affected, err
			}
			removed++
		}
		affected += removed
		maintenanceAffected.WithLabelValues(domain.PhasePurge).Add(float64(removed))
		if removed == 0 {
			return affected, nil
		}
	}
}

// RunDaily runs the soft-delete phase and then the purge phase with the
// configured cutoffs. A failed phase does not undo or skip the other one.
// The report always carries the counts that were committed.
func (s *MaintenanceSweeper) RunDaily(ctx context.Context) (MaintenanceReport, error) {
	report := MaintenanceReport{StartedAt: s.store.now()}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, maintenanceLockKey, s.lockTTL)
		if err != nil {
			return report, err
		}
		defer release()
	}

	var errs []error

	softDeleted, err := s.runPhase(ctx, domain.PhaseSoftDelete, func(ctx context.Context) (int, error) {
		return s.SoftDeleteOlderThan(ctx, s.softDeleteDays)
	})
	report.SoftDeleted = softDeleted
	if err != nil {
		errs = append(errs, err)
	}

	purged, err := s.runPhase(ctx, domain.PhasePurge, func(ctx context.Context) (int, error) {
		return s.PurgeOlderThan(ctx, s.purgeDays)
	})
	report.Purged = purged
	if err != nil {
		errs = append(errs, err)
	}

	report.FinishedAt = s.store.now()
	s.logger.Info("daily maintenance finished",
		zap.Int("soft_deleted", report.SoftDeleted),
		zap.Int("purged", report.Purged),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
		zap.Int("failed_phases", len(errs)),
	)

	switch len(errs) {
	case 0:
		return report, nil
	case 1:
		return report, errs[0]
	default:
		return report, errors.Join(errs...)
	}
}

// cooldownDays rounds the cooldown up to whole days.
func cooldownDays(cooldown time.Duration) int {
	const day = 24 * time.Hour
	return int((cooldown + day - 1) / day)
}

func (s *MaintenanceSweeper) runPhase(ctx context.Context, phase string, fn func(context.Context) (int, error)) (int, error) {
	start := time.Now()
	n, err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
		s.logger.Error("maintenance phase failed",
			zap.String("phase", phase),
			zap.Int("affected", n),
			zap.Error(err),
		)
		err = &domain.MaintenanceError{Phase: phase, Err: err}
	}
	maintenanceDuration.WithLabelValues(phase, status).Observe(time.Since(start).Seconds())
	return n, err
}
