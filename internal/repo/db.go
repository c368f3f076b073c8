// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains the connection pool: Postgres
// bootstrapping, pool sizing, acquisition with a bounded wait, health
// tracking, and drained shutdown.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/noventa/go-user-gateway/internal/config"
)

// ErrPoolExhausted is returned by Pool.Acquire when no connection becomes
// available within the configured acquisition timeout.
var ErrPoolExhausted = errors.New("connection pool exhausted")

// Pool wraps the GORM handle and its underlying sql.DB with bounded sizing,
// a health flag, and explicit acquire/release semantics. A connection
// obtained via Acquire is exclusively owned by the caller until Release.
//
// The health flag is advisory: it is set by the startup ping (and later
// Ping calls) and surfaced through /health so the process can boot and keep
// serving read traffic while the database is unreachable.
type Pool struct {
	gdb            *gorm.DB
	sqlDB          *sql.DB
	acquireTimeout time.Duration
	healthy        atomic.Bool
}

// OpenPostgres opens a Postgres-backed pool from cfg. The automatic ping
// GORM performs on open is disabled; instead the pool pings explicitly with
// a bounded timeout. A failed ping is logged and leaves the pool unhealthy,
// but OpenPostgres still returns the pool: availability of the HTTP layer is
// deliberately not coupled to database health at boot.
func OpenPostgres(cfg config.DBConfig) (*Pool, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Name, cfg.SSLMode)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableAutomaticPing: true,
		TranslateError:       true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	p, err := NewPool(gdb, cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.AcquireTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		log.Error().Err(err).
			Str("host", cfg.Host).
			Int("port", cfg.Port).
			Str("db", cfg.Name).
			Msg("unable to connect to the database; continuing in degraded mode")
	} else {
		log.Info().
			Str("host", cfg.Host).
			Int("port", cfg.Port).
			Str("db", cfg.Name).
			Msg("database connection established")
	}
	return p, nil
}

// NewPool sizes the pool underneath an already-open GORM handle. It is the
// shared constructor for OpenPostgres and for tests that run on SQLite.
// The pool starts unhealthy until the first successful Ping.
func NewPool(gdb *gorm.DB, cfg config.DBConfig) (*Pool, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.PoolMax)
	sqlDB.SetMaxIdleConns(cfg.PoolMin)
	sqlDB.SetConnMaxIdleTime(cfg.IdleEvict)

	return &Pool{
		gdb:            gdb,
		sqlDB:          sqlDB,
		acquireTimeout: cfg.AcquireTimeout,
	}, nil
}

// DB returns the shared GORM handle used by the repository functions.
func (p *Pool) DB() *gorm.DB { return p.gdb }

// Healthy reports whether the last ping succeeded.
func (p *Pool) Healthy() bool { return p.healthy.Load() }

// Ping verifies connectivity and updates the health flag.
func (p *Pool) Ping(ctx context.Context) error {
	err := p.sqlDB.PingContext(ctx)
	p.healthy.Store(err == nil)
	return err
}

// Acquire checks a connection out of the pool, waiting at most the
// configured acquisition timeout. When the pool is saturated at its maximum
// bound for the whole window it returns ErrPoolExhausted. The caller owns
// the connection exclusively until Release.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.sqlDB.Conn(actx)
	if err != nil {
		if actx.Err() != nil && ctx.Err() == nil {
			return nil, ErrPoolExhausted
		}
		return nil, err
	}
	return conn, nil
}

// Release returns a connection to the pool. Broken connections are discarded
// by the driver, which opens a replacement on demand up to the max bound.
// Releasing an already-returned connection is a no-op.
func (p *Pool) Release(conn *sql.Conn) error {
	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

// Stats exposes the driver pool counters (used by the metrics collector).
func (p *Pool) Stats() sql.DBStats { return p.sqlDB.Stats() }

// Shutdown waits for in-flight connections to be released, bounded by the
// grace period, then closes the pool.
func (p *Pool) Shutdown(grace time.Duration) error {
	deadline := time.Now().Add(grace)
	for p.sqlDB.Stats().InUse > 0 && time.Now().Before(deadline) {
		time.Sleep(25 * time.Millisecond)
	}
	p.healthy.Store(false)
	return p.sqlDB.Close()
}

// AutoMigrate creates or updates the schema for the registered entity types.
func AutoMigrate(db *gorm.DB, entities ...any) error {
	if len(entities) == 0 {
		return nil
	}
	return db.AutoMigrate(entities...)
}
