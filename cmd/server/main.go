package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/saransh1220/foodhub/internal/gateway"
	"github.com/saransh1220/foodhub/internal/gateway/middleware"
	"github.com/saransh1220/foodhub/internal/modules/notification"
	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
	"github.com/saransh1220/foodhub/internal/modules/notification/infrastructure/archive"
	"github.com/saransh1220/foodhub/internal/modules/notification/infrastructure/lock"
	"github.com/saransh1220/foodhub/internal/shared/infrastructure/config"
	"github.com/saransh1220/foodhub/internal/shared/infrastructure/database"
	"github.com/saransh1220/foodhub/internal/shared/logger"
	"github.com/saransh1220/foodhub/pkg/migration"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "foodhub: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := openDatabase(cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := notification.Options{
		MaxAttempts:         cfg.Notification.RetryAttempts,
		BaseDelay:           cfg.Notification.RetryBaseDelay,
		BatchSize:           cfg.Notification.BatchSize,
		PurgeCooldown:       cfg.Notification.PurgeCooldown,
		SoftDeleteAfterDays: cfg.Notification.SoftDeleteAfterDays,
		PurgeAfterDays:      cfg.Notification.PurgeAfterDays,
		LockTTL:             cfg.Notification.MaintenanceLockTTL,
		VerifyRecipients:    cfg.Notification.VerifyRecipients,
		Logger:              log,
	}

	if opts.Archiver, err = newArchiver(ctx, cfg.Archive); err != nil {
		return err
	}

	if cfg.Redis.Enabled() {
		rdb, err := database.NewRedis(cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts.Locker = lock.NewRedisLocker(rdb, log)
		log.Info("maintenance lock backed by redis", zap.String("host", cfg.Redis.Host))
	}

	module := notification.NewModule(db, opts)
	module.StartMaintenance(ctx, cfg.Notification.MaintenanceInterval)
	defer module.Shutdown()

	mux := gateway.SetupRoutes(gateway.RouterConfig{
		AuthMiddleware:      middleware.NewAuthMiddleware(cfg.JWT.Secret),
		NotificationHandler: module.HTTPHandler(),
		Ready:               db.PingContext,
	})
	handler := middleware.CORSMiddleware(middleware.PrometheusMiddleware(mux), cfg.Server.AllowedOrigins)

	return gateway.NewServer(cfg.Server.Port, handler, log).Start(ctx)
}

func openDatabase(cfg config.DatabaseConfig, log *zap.Logger) (*sqlx.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := database.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		log.Info("database connected", zap.String("driver", "sqlite"), zap.String("path", cfg.SQLitePath))
		return db, nil
	default:
		db, err := database.NewPostgresDB(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := migration.AutoMigrate(cfg.Postgres.URL(), cfg.MigrationsPath, log); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating: %w", err)
		}
		log.Info("database connected", zap.String("driver", "postgres"), zap.String("host", cfg.Postgres.Host))
		return db, nil
	}
}

// newArchiver returns nil when archiving is disabled.
func newArchiver(ctx context.Context, cfg config.ArchiveConfig) (domain.Archiver, error) {
	switch cfg.Backend {
	case "local":
		a, err := archive.NewFileArchiver(cfg.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("local archive: %w", err)
		}
		return a, nil
	case "s3":
		a, err := archive.NewS3Archiver(ctx, archive.S3Config{
			BucketName: cfg.S3Bucket,
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			UseSSL:     cfg.S3UseSSL,
			Prefix:     cfg.S3Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 archive: %w", err)
		}
		return a, nil
	default:
		return nil, nil
	}
}
