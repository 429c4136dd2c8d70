package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/saransh1220/foodhub/internal/shared/infrastructure/database"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig         `yaml:"server"`
	Log          LogConfig            `yaml:"log"`
	Database     DatabaseConfig       `yaml:"database"`
	Redis        database.RedisConfig `yaml:"redis"`
	JWT          JWTConfig            `yaml:"jwt"`
	Notification NotificationConfig   `yaml:"notification"`
	Archive      ArchiveConfig        `yaml:"archive"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig selects the persistence engine. Driver is "postgres" or
// "sqlite".
type DatabaseConfig struct {
	Driver         string                  `yaml:"driver"`
	Postgres       database.PostgresConfig `yaml:"postgres"`
	SQLitePath     string                  `yaml:"sqlite_path"`
	MigrationsPath string                  `yaml:"migrations_path"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// NotificationConfig tunes the store, the lifecycle manager and the
// maintenance sweeper.
type NotificationConfig struct {
	RetryAttempts       int           `yaml:"retry_attempts"`
	RetryBaseDelay      time.Duration `yaml:"retry_base_delay"`
	BatchSize           int           `yaml:"batch_size"`
	SoftDeleteAfterDays int           `yaml:"soft_delete_after_days"`
	PurgeAfterDays      int           `yaml:"purge_after_days"`
	PurgeCooldown       time.Duration `yaml:"purge_cooldown"`
	MaintenanceInterval time.Duration `yaml:"maintenance_interval"`
	MaintenanceLockTTL  time.Duration `yaml:"maintenance_lock_ttl"`
	VerifyRecipients    bool          `yaml:"verify_recipients"`
}

// ArchiveConfig controls where purged notifications are copied before
// removal. Backend is "", "local" or "s3"; empty disables archiving.
type ArchiveConfig struct {
	Backend     string `yaml:"backend"`
	LocalPath   string `yaml:"local_path"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
	S3UseSSL    bool   `yaml:"s3_use_ssl"`
	S3Prefix    string `yaml:"s3_prefix"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"http://localhost:4200"},
		},
		Log: LogConfig{Level: "info"},
		Database: DatabaseConfig{
			Driver: "postgres",
			Postgres: database.PostgresConfig{
				Host:    "localhost",
				Port:    "5432",
				User:    "postgres",
				DBName:  "foodhub",
				SSLMode: "disable",
			},
			SQLitePath:     "foodhub.db",
			MigrationsPath: "db/migrations",
		},
		Redis: database.RedisConfig{Port: "6379"},
		JWT:   JWTConfig{Secret: "default-dev-secret"},
		Notification: NotificationConfig{
			RetryAttempts:       3,
			RetryBaseDelay:      50 * time.Millisecond,
			BatchSize:           50,
			SoftDeleteAfterDays: 90,
			PurgeAfterDays:      30,
			PurgeCooldown:       30 * 24 * time.Hour,
			MaintenanceInterval: 24 * time.Hour,
			MaintenanceLockTTL:  30 * time.Minute,
		},
		Archive: ArchiveConfig{
			LocalPath: "./archive",
			S3Region:  "us-east-1",
			S3UseSSL:  true,
			S3Prefix:  "notifications",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables. Later sources win.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables. Values that do not parse are
// reported together rather than silently ignored.
func applyEnv(cfg *Config) error {
	var errs []error

	setString(&cfg.Server.Port, "PORT")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	setString(&cfg.Log.Level, "LOG_LEVEL")

	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Postgres.Host, "DB_HOST")
	setString(&cfg.Database.Postgres.Port, "DB_PORT")
	setString(&cfg.Database.Postgres.User, "DB_USER")
	setString(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setString(&cfg.Database.Postgres.DBName, "DB_NAME")
	setString(&cfg.Database.Postgres.SSLMode, "DB_SSLMODE")
	setString(&cfg.Database.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Database.MigrationsPath, "MIGRATIONS_PATH")

	setString(&cfg.Redis.Host, "REDIS_HOST")
	setString(&cfg.Redis.Port, "REDIS_PORT")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	errs = append(errs, setInt(&cfg.Redis.DB, "REDIS_DB"))

	setString(&cfg.JWT.Secret, "JWT_SECRET")

	n := &cfg.Notification
	errs = append(errs, setInt(&n.RetryAttempts, "NOTIFICATION_RETRY_ATTEMPTS"))
	errs = append(errs, setDuration(&n.RetryBaseDelay, "NOTIFICATION_RETRY_BASE_DELAY"))
	errs = append(errs, setInt(&n.BatchSize, "NOTIFICATION_BATCH_SIZE"))
	errs = append(errs, setInt(&n.SoftDeleteAfterDays, "NOTIFICATION_SOFT_DELETE_AFTER_DAYS"))
	errs = append(errs, setInt(&n.PurgeAfterDays, "NOTIFICATION_PURGE_AFTER_DAYS"))
	errs = append(errs, setDuration(&n.PurgeCooldown, "NOTIFICATION_PURGE_COOLDOWN"))
	errs = append(errs, setDuration(&n.MaintenanceInterval, "NOTIFICATION_MAINTENANCE_INTERVAL"))
	errs = append(errs, setDuration(&n.MaintenanceLockTTL, "NOTIFICATION_MAINTENANCE_LOCK_TTL"))
	errs = append(errs, setBool(&n.VerifyRecipients, "NOTIFICATION_VERIFY_RECIPIENTS"))

	a := &cfg.Archive
	setString(&a.Backend, "ARCHIVE_BACKEND")
	setString(&a.LocalPath, "ARCHIVE_LOCAL_PATH")
	setString(&a.S3Bucket, "S3_BUCKET")
	setString(&a.S3Region, "S3_REGION")
	setString(&a.S3Endpoint, "S3_ENDPOINT")
	setString(&a.S3AccessKey, "S3_ACCESS_KEY")
	setString(&a.S3SecretKey, "S3_SECRET_KEY")
	errs = append(errs, setBool(&a.S3UseSSL, "S3_USE_SSL"))
	setString(&a.S3Prefix, "ARCHIVE_S3_PREFIX")

	return errors.Join(errs...)
}

// Validate rejects settings the process cannot start with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Archive.Backend {
	case "", "local":
	case "s3":
		if c.Archive.S3Bucket == "" {
			return fmt.Errorf("archive backend s3 requires S3_BUCKET")
		}
	default:
		return fmt.Errorf("unsupported archive backend %q", c.Archive.Backend)
	}
	if c.Notification.SoftDeleteAfterDays <= 0 || c.Notification.PurgeAfterDays <= 0 {
		return fmt.Errorf("maintenance day thresholds must be positive")
	}
	const day = 24 * time.Hour
	if c.Notification.PurgeAfterDays < int((c.Notification.PurgeCooldown+day-1)/day) {
		return fmt.Errorf("purge_after_days (%d) is shorter than purge_cooldown (%s)",
			c.Notification.PurgeAfterDays, c.Notification.PurgeCooldown)
	}
	return nil
}

// setString reads an environment variable over the current value
func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	*dst = v
	return nil
}

func setBool(dst *bool, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("%s: %q is not a boolean", key, raw)
	}
	*dst = v
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %q is not a duration", key, raw)
	}
	*dst = d
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
