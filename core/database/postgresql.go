package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fairmeet/core/constants"
	"fairmeet/core/logger"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Database struct {
	db   *sql.DB
	sqlx *sqlx.DB
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string // disable, require, verify-ca, verify-full
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
}

// requiredTables are created by migrations/0001_init.sql.
var requiredTables = []string{
	"availability_profiles",
	"weekly_windows",
	"availability_overrides",
	"busy_blocks",
	"busy_block_changes",
	"calendar_connections",
	"suggestion_runs",
	"meetings",
}

func InitDB(config DatabaseConfig) (Database, error) {
	logger.Info("Initializing database...")

	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = constants.DatabaseSSLMode
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, sslMode)

	sqlxDB, err := sqlx.Connect(constants.DatabaseDriver, dsn)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		return Database{}, fmt.Errorf("failed to connect to database: %w", err)
	}

	maxOpen := orDefault(config.MaxOpenConns, constants.DatabaseMaxOpenConns)
	maxIdle := orDefault(config.MaxIdleConns, constants.DatabaseMaxIdleConns)
	lifetime := orDefault(config.ConnMaxLifetime, constants.DatabaseConnMaxLifetime)

	sqlDB := sqlxDB.DB
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(time.Duration(lifetime) * time.Minute)

	if err = sqlDB.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		return Database{}, fmt.Errorf("failed to ping database: %w", err)
	}

	db := Database{
		db:   sqlDB,
		sqlx: sqlxDB,
	}

	logger.Info("Database initialized successfully",
		"host", config.Host,
		"port", config.Port,
		"database", config.DBName,
		"user", config.User,
		"maxOpenConns", maxOpen,
		"maxIdleConns", maxIdle,
		"connMaxLifetime", lifetime,
	)

	var present []string
	checkTablesQuery := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		AND table_name = ANY($1)
	`
	if err := sqlxDB.Select(&present, checkTablesQuery, pq.Array(requiredTables)); err != nil {
		logger.Error("Failed to check schema", "error", err)
	} else if missing := missingTables(present); len(missing) > 0 {
		logger.Warn("Database schema incomplete, run migrations", "missing_tables", missing)
	}

	return db, nil
}

func missingTables(present []string) []string {
	have := make(map[string]bool, len(present))
	for _, t := range present {
		have[t] = true
	}
	var missing []string
	for _, t := range requiredTables {
		if !have[t] {
			missing = append(missing, t)
		}
	}
	return missing
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (d *Database) ExecContext(ctx context.Context, query string, args ...any) error {
	_, err := d.sqlx.ExecContext(ctx, query, args...)
	return err
}

func (d *Database) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return d.sqlx.GetContext(ctx, dest, query, args...)
}

func (d *Database) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return d.sqlx.SelectContext(ctx, dest, query, args...)
}

// WithTx runs fn inside a transaction, committing on nil and rolling back otherwise.
func (d *Database) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.sqlx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("Database:WithTx:Rollback", rbErr)
		}
		return err
	}
	return tx.Commit()
}

func (d *Database) SQLx() *sqlx.DB {
	return d.sqlx
}
