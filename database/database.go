package database

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mssp-stack/portal-backend/config"
	"github.com/mssp-stack/portal-backend/models"
)

// Type selects the database backend
type Type string

const (
	TypeSQLite   Type = "sqlite"
	TypePostgres Type = "postgres"
)

// Config holds database connection configuration
type Config struct {
	Type Type

	// SQLite
	DatabasePath string

	// PostgreSQL
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string

	// Connection pool settings for both backends
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Postgres startup retry; the portal usually boots alongside its
	// database in compose and has to wait for it
	RetryAttempts int
	RetryDelay    time.Duration
}

// NewDatabaseConfig builds a Config from environment variables.
//
//  1. DB_TYPE=postgres selects PostgreSQL (DB_HOST, DB_PASSWORD, etc.)
//  2. DB_TYPE=sqlite or a DB_PATH selects file-based SQLite
//  3. With neither set the portal runs on in-memory SQLite, which is only
//     useful for local experiments since every restart starts empty
func NewDatabaseConfig() *Config {
	dbTypeStr := strings.ToLower(os.Getenv("DB_TYPE"))

	var dbType Type
	switch dbTypeStr {
	case "postgres", "postgresql":
		dbType = TypePostgres
	case "sqlite", "":
		dbType = TypeSQLite
	default:
		slog.Warn("Unknown DB_TYPE, defaulting to sqlite", "db_type", dbTypeStr)
		dbType = TypeSQLite
	}

	cfg := &Config{
		Type:            dbType,
		ConnMaxLifetime: parseDurationOrDefault("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime: parseDurationOrDefault("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
	}

	if dbType == TypeSQLite {
		loadSQLiteConfig(cfg)
	} else {
		loadPostgresConfig(cfg)
	}
	return cfg
}

func loadSQLiteConfig(cfg *Config) {
	// A single connection serializes writes, preventing "database is locked"
	// errors under concurrent mutations
	cfg.MaxOpenConns = parseIntOrDefault("DB_MAX_OPEN_CONNS", 1)
	cfg.MaxIdleConns = parseIntOrDefault("DB_MAX_IDLE_CONNS", 1)

	if os.Getenv("DB_PATH") == "" && os.Getenv("DB_TYPE") == "" {
		cfg.DatabasePath = ":memory:"
		slog.Info("No database configuration found, using in-memory SQLite")
		return
	}

	cfg.DatabasePath = config.GetEnvOrDefault("DB_PATH", "./data/portal.db")
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Warn("Failed to create database directory", "path", dir, "error", err)
		}
	}

	slog.Info("Database configuration (SQLite)",
		"database_path", cfg.DatabasePath,
		"max_open_conns", cfg.MaxOpenConns,
	)
}

func loadPostgresConfig(cfg *Config) {
	cfg.Host = config.GetEnvOrDefault("DB_HOST", "localhost")
	cfg.Port = config.GetEnvOrDefault("DB_PORT", "5432")
	cfg.Username = config.GetEnvOrDefault("DB_USERNAME", "postgres")
	cfg.Password = config.GetEnvOrDefault("DB_PASSWORD", "")
	cfg.Database = config.GetEnvOrDefault("DB_NAME", "portal_db")
	cfg.SSLMode = config.GetEnvOrDefault("DB_SSLMODE", "disable")

	cfg.MaxOpenConns = parseIntOrDefault("DB_MAX_OPEN_CONNS", 25)
	cfg.MaxIdleConns = parseIntOrDefault("DB_MAX_IDLE_CONNS", 5)
	cfg.RetryAttempts = parseIntOrDefault("DB_RETRY_ATTEMPTS", 10)
	cfg.RetryDelay = parseDurationOrDefault("DB_RETRY_DELAY", 2*time.Second)

	slog.Info("Database configuration (PostgreSQL)",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database,
		"username", cfg.Username,
		"sslmode", cfg.SSLMode,
		"max_open_conns", cfg.MaxOpenConns,
		"retry_attempts", cfg.RetryAttempts,
	)
}

// ConnectGormDB establishes a GORM connection to the configured database.
// PostgreSQL connections are retried up to RetryAttempts times.
func ConnectGormDB(cfg *Config) (*gorm.DB, error) {
	if cfg.Type == TypeSQLite {
		return connectSQLite(cfg)
	}
	return connectPostgres(cfg)
}

func connectSQLite(cfg *Config) (*gorm.DB, error) {
	slog.Info("Attempting GORM SQLite database connection", "path", cfg.DatabasePath)

	gormDB, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := configurePool(gormDB, cfg); err != nil {
		return nil, err
	}

	slog.Info("GORM database connection established", "type", "sqlite")
	return gormDB, nil
}

func connectPostgres(cfg *Config) (*gorm.DB, error) {
	// url.URL encodes credentials, so special characters in passwords survive
	dsnURL := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Path:   cfg.Database,
	}
	q := dsnURL.Query()
	q.Set("sslmode", cfg.SSLMode)
	dsnURL.RawQuery = q.Encode()

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		slog.Info("Attempting GORM PostgreSQL database connection",
			"host", cfg.Host, "database", cfg.Database, "attempt", attempt, "max_attempts", attempts)

		gormDB, err := gorm.Open(postgres.Open(dsnURL.String()), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			if err = configurePool(gormDB, cfg); err == nil {
				slog.Info("GORM database connection established", "type", "postgres")
				return gormDB, nil
			}
		}

		lastErr = err
		slog.Warn("Database connection attempt failed", "attempt", attempt, "error", err)
		if attempt < attempts {
			time.Sleep(cfg.RetryDelay)
		}
	}

	return nil, fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", attempts, lastErr)
}

// configurePool applies pool settings and verifies the connection with a ping
func configurePool(gormDB *gorm.DB, cfg *Config) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Migrate runs GORM auto-migration for every portal model. Gate it behind
// RUN_MIGRATION=true in deployments where the schema is managed externally.
func Migrate(db *gorm.DB) error {
	slog.Info("Running GORM auto-migration")
	return db.AutoMigrate(
		&models.Client{},
		&models.Contract{},
		&models.ServiceScope{},
		&models.Proposal{},
		&models.FinancialTransaction{},
		&models.ServiceAuthorizationForm{},
		&models.CertificateOfCompliance{},
		&models.Document{},
		&models.HardwareAsset{},
		&models.ClientHardwareAssignment{},
		&models.LicensePool{},
		&models.Service{},
		&models.User{},
		&models.AuditLog{},
		&models.ChangeHistory{},
		&models.SecurityEvent{},
		&models.DataAccessLog{},
		&models.SystemEvent{},
	)
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		slog.Warn("Invalid integer value, using default", "key", key, "value", value, "default", defaultValue)
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		slog.Warn("Invalid duration format, using default", "key", key, "value", value, "default", defaultValue)
	}
	return defaultValue
}
