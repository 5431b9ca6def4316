package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/rsrank/pkg/config"
)

// ErrDisabled is returned when DATABASE_URL is not configured
var ErrDisabled = errors.New("database disabled: DATABASE_URL not set")

// DB wraps the pgxpool.Pool and provides additional functionality
// ⭐ SSOT: DB 연결은 이 패키지에서만 생성
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool
// ⭐ SSOT: 유일하게 pgxpool.New()를 호출하는 함수
func New(cfg *config.Config) (*DB, error) {
	if !cfg.Database.Enabled() {
		return nil, ErrDisabled
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db != nil && db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping checks if the database is accessible
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// schema holds the tables used by the price, universe and ranking repositories
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS rs`,
	`CREATE TABLE IF NOT EXISTS rs.tickers (
		symbol      TEXT PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		sector      TEXT NOT NULL DEFAULT '',
		industry    TEXT NOT NULL DEFAULT '',
		exchange    TEXT NOT NULL DEFAULT '',
		market_cap  DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_volume  DOUBLE PRECISION NOT NULL DEFAULT 0,
		indexes     TEXT[] NOT NULL DEFAULT '{}',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS rs.daily_prices (
		symbol      TEXT NOT NULL REFERENCES rs.tickers(symbol) ON DELETE CASCADE,
		trade_date  DATE NOT NULL,
		close_price DOUBLE PRECISION NOT NULL,
		volume      BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (symbol, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS rs.universe_snapshots (
		as_of       DATE PRIMARY KEY,
		admitted    TEXT[] NOT NULL,
		excluded    JSONB NOT NULL,
		total_count INT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS rs.ranking_runs (
		run_id      UUID PRIMARY KEY,
		as_of       DATE NOT NULL,
		benchmark   TEXT NOT NULL DEFAULT '',
		config_hash TEXT NOT NULL,
		admitted    INT NOT NULL,
		faults      JSONB NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rs.ranked_entries (
		run_id      UUID NOT NULL REFERENCES rs.ranking_runs(run_id) ON DELETE CASCADE,
		rank        INT NOT NULL,
		symbol      TEXT NOT NULL,
		raw_score   DOUBLE PRECISION NOT NULL,
		percentile  INT NOT NULL,
		strength    DOUBLE PRECISION NOT NULL,
		sector      TEXT NOT NULL DEFAULT '',
		industry    TEXT NOT NULL DEFAULT '',
		exchange    TEXT NOT NULL DEFAULT '',
		market_cap  DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, symbol)
	)`,
}

// EnsureSchema creates the rs schema and tables when missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// HealthCheck returns detailed health information about the database
func (db *DB) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{
		Healthy:   false,
		Timestamp: time.Now(),
	}

	start := time.Now()
	if err := db.Pool.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)
	status.Stats = db.Stats()
	status.Healthy = true
	return status, nil
}

// HealthStatus represents the health status of the database
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	Stats        PoolStats     `json:"stats"`
}

// PoolStats represents connection pool statistics
type PoolStats struct {
	AcquireCount  int64 `json:"acquire_count"`
	AcquiredConns int32 `json:"acquired_conns"`
	IdleConns     int32 `json:"idle_conns"`
	MaxConns      int32 `json:"max_conns"`
	TotalConns    int32 `json:"total_conns"`
}

// Stats returns the current pool statistics
func (db *DB) Stats() PoolStats {
	stats := db.Pool.Stat()
	return PoolStats{
		AcquireCount:  stats.AcquireCount(),
		AcquiredConns: stats.AcquiredConns(),
		IdleConns:     stats.IdleConns(),
		MaxConns:      stats.MaxConns(),
		TotalConns:    stats.TotalConns(),
	}
}
