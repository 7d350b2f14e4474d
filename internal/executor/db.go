package executor

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StoreConfig describes the investigations store connection. Driver is either
// "pgx" or "duckdb"; the dev profile uses an embedded DuckDB file.
type StoreConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// OpenStore connects to the investigations store and verifies the
// connection. The caller must blank-import the matching driver.
func OpenStore(ctx context.Context, cfg StoreConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("investigations dsn is required")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open investigations store: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping investigations store: %w", err)
	}

	return db, nil
}
