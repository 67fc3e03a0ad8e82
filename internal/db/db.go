// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// Package db provides read access to the sensor tables written by the
// collector. The SQL backends share one bun-based implementation; MongoDB is
// supported through a separate store with the same interface.
package db // import "github.com/smartsafe/safewatch/internal/db"

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	//go:embed migrations
	embeddedMigrations embed.FS
	// sqlOpenFunc allows tests to override database opening behavior.
	sqlOpenFunc = sql.Open
)

// Open returns a ReadingStore for the configured backend. SQL backends are
// opened without running migrations; the collector owns the schema.
func Open(ctx context.Context, dbType, dsn, name string) (ReadingStore, error) {
	switch dbType {
	case "mongodb":
		return NewMongoStore(ctx, dsn, name)
	case "sqlite", "postgres", "mysql":
		return NewStoreFromDSN(dbType, dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: '%s'", dbType)
	}
}

func driverFor(dbType string) string {
	// The pgx stdlib registers driver name "pgx".
	if dbType == "postgres" {
		return "pgx"
	}
	return dbType
}

func openSQL(dbType, dsn string) (*sql.DB, error) {
	switch dbType {
	case "sqlite", "postgres", "mysql":
	default:
		return nil, fmt.Errorf("unsupported database type: '%s'", dbType)
	}
	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverFor(dbType), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The monitor only ever runs a handful of concurrent reads per tick, so
	// the pool stays small unless overridden.
	const (
		defaultMaxOpenConns    = 8
		defaultMaxIdleConns    = 8
		defaultConnMaxLifetime = 5 * time.Minute
	)

	maxOpen := envInt("SAFEWATCH_DB_MAX_OPEN_CONNS", defaultMaxOpenConns)
	maxIdle := envInt("SAFEWATCH_DB_MAX_IDLE_CONNS", defaultMaxIdleConns)
	connMax := defaultConnMaxLifetime
	if n := envInt("SAFEWATCH_DB_CONN_MAX_LIFETIME_SECONDS", -1); n >= 0 {
		connMax = time.Duration(n) * time.Second
	}

	// A plain ":memory:" database is private to one connection.
	if dbType == "sqlite" && dsn == ":memory:" {
		maxOpen = 1
		maxIdle = 1
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(connMax)

	dbLogf("db: opened %s driver in %s (conn max open=%d, idle=%d, maxLifetime=%s)", driverFor(dbType), time.Since(start), maxOpen, maxIdle, connMax)
	return sqlDB, nil
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// NewStoreFromDSN opens a SQL database and returns a ReadingStore backed by a
// long-lived *bun.DB.
func NewStoreFromDSN(dbType, dsn string) (*SQLStore, error) {
	sqlDB, err := openSQL(dbType, dsn)
	if err != nil {
		return nil, err
	}
	return &SQLStore{bun: createBunDB(sqlDB, dbType)}, nil
}

// Migrate opens the database and applies the embedded schema migrations.
func Migrate(dbType, dsn string) error {
	sqlDB, err := openSQL(dbType, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return RunMigrations(sqlDB, dbType)
}

// createBunDB constructs a *bun.DB for the provided *sql.DB and dbType.
func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

// RunMigrations applies the embedded migrations for dbType that are not yet
// recorded in schema_migrations. Each migration runs in its own transaction.
func RunMigrations(db *sql.DB, dbType string) error {
	start := time.Now()
	migrationsPath := fmt.Sprintf("migrations/%s", dbType)

	entries, err := fs.ReadDir(embeddedMigrations, migrationsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no migrations for database type '%s'", dbType)
		}
		return fmt.Errorf("failed to read embedded migrations (%s): %w", migrationsPath, err)
	}

	var ups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	ddl := `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMP)`
	if dbType == "mysql" {
		// MySQL cannot index TEXT without a length.
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (version VARCHAR(191) PRIMARY KEY, applied_at TIMESTAMP)`
	}
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	selectQuery := "SELECT 1 FROM schema_migrations WHERE version = ?"
	insertQuery := "INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)"
	if dbType == "postgres" {
		selectQuery = "SELECT 1 FROM schema_migrations WHERE version = $1"
		insertQuery = "INSERT INTO schema_migrations(version, applied_at) VALUES($1, $2)"
	}

	applied := 0
	for _, fname := range ups {
		version := strings.TrimSuffix(fname, ".up.sql")

		var exists int
		err := db.QueryRow(selectQuery, version).Scan(&exists)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check migration version %s: %w", version, err)
		}

		p := path.Join(migrationsPath, fname)
		data, err := embeddedMigrations.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", p, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", version, err)
		}
		for _, stmt := range splitStatements(string(data)) {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("failed to execute migration %s: %w", version, err)
			}
		}
		if _, err := tx.Exec(insertQuery, version, time.Now()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to commit migration %s: %w", version, err)
		}
		applied++
	}

	dbLogf("db: applied %d migration(s) for %s in %s", applied, dbType, time.Since(start))
	return nil
}

// splitStatements splits a migration file on ';'. MySQL rejects multiple
// statements per Exec unless multiStatements is set on the DSN.
func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
