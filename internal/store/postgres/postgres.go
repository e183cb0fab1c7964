// Package postgres implements store.Store on PostgreSQL through pgx. Rule queries are built
// with goqu; the compare-and-set writes are hand-written statements checked by RowsAffected.
//
// The schema lives in migrations/001_schema.sql.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/config"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/store"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var _ store.Store = (*Store)(nil)

var dialect = goqu.Dialect("postgres")

// Store handles all database operations
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Connect opens a pool sized from cfg and checks it with a ping
func Connect(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second
	if cfg.QueryTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.QueryTimeout.Milliseconds())
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// New creates a store over an open pool
func New(pool *pgxpool.Pool, log *zap.Logger) *Store {
	return &Store{pool: pool, log: log}
}

func (s *Store) Close() {
	s.pool.Close()
}

// build renders a goqu dataset as a parameterised statement
func build(ds interface {
	ToSQL() (string, []interface{}, error)
}) (string, []interface{}, error) {
	sql, args, err := ds.ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build query: %w", err)
	}
	return sql, args, nil
}

// notFound maps pgx.ErrNoRows to store.ErrNotFound and wraps anything else
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// airlineScope matches rows scoped to airlineID or to no airline
func airlineScope(airlineID interface{}) goqu.Expression {
	return goqu.Or(
		goqu.C("airline_id").IsNull(),
		goqu.C("airline_id").Eq(airlineID),
	)
}
