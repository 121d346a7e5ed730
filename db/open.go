package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Config selects and locates the database.
type Config struct {
	Driver      string // sqlite or postgres
	SQLitePath  string
	PostgresURL string
}

// Open connects, applies connection settings and runs migrations.
func Open(ctx context.Context, cfg Config) (*CompatDB, error) {
	var d *CompatDB
	switch Dialect(cfg.Driver) {
	case DialectPostgres:
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("postgres driver requires DATABASE_URL")
		}
		raw, err := sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		raw.SetMaxOpenConns(10)
		d = NewCompatDB(raw, DialectPostgres)
	case DialectSQLite, "":
		raw, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// Single connection: prevents concurrent write conflicts and keeps
		// :memory: databases on one connection.
		raw.SetMaxOpenConns(1)
		raw.SetMaxIdleConns(1)
		raw.SetConnMaxLifetime(0)
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
			"PRAGMA synchronous=NORMAL",
		} {
			if _, err := raw.ExecContext(ctx, pragma); err != nil {
				raw.Close()
				return nil, fmt.Errorf("pragma failed (%s): %w", pragma, err)
			}
		}
		d = NewCompatDB(raw, DialectSQLite)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Driver)
	}

	if err := d.PingContext(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Dialect, err)
	}
	if err := RunMigrations(ctx, d); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}
