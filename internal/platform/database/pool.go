// Package database opens the PostgreSQL pool backing the ledger, the journal
// and the audit store.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"kycgate/internal/platform/config"
)

const connectTimeout = 5 * time.Second

var errNotConfigured = errors.New("database not configured")

type Pool struct {
	db *sql.DB
}

// New returns a nil pool, and no error, when no URL is configured; callers
// fall back to the in-memory ledger.
func New(cfg config.DatabaseConfig, reg prometheus.Registerer) (*Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	connCfg, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if reg != nil {
		if err := reg.Register(collectors.NewDBStatsCollector(db, "kycgate")); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
	}
	return &Pool{db: db}, nil
}

func (p *Pool) DB() *sql.DB { return p.db }

func (p *Pool) Health(ctx context.Context) error {
	if p == nil {
		return errNotConfigured
	}
	return p.db.PingContext(ctx)
}

func (p *Pool) Close() error {
	if p == nil {
		return nil
	}
	return p.db.Close()
}
