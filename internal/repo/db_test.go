package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noventa/go-user-gateway/internal/config"
	"github.com/noventa/go-user-gateway/internal/domain"
)

// newTestDB opens a unique in-memory database per test to avoid schema
// leakage across tests, migrating the given entities.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func testPoolCfg(max int, acquire time.Duration) config.DBConfig {
	return config.DBConfig{
		PoolMin:        1,
		PoolMax:        max,
		IdleEvict:      time.Minute,
		AcquireTimeout: acquire,
		ShutdownGrace:  time.Second,
	}
}

func TestPool_AcquireRelease(t *testing.T) {
	db := newTestDB(t)
	p, err := NewPool(db, testPoolCfg(2, time.Second))
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	conn, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if got := p.Stats().InUse; got != 1 {
		t.Fatalf("expected 1 in-use connection, got %d", got)
	}
	if err := p.Release(conn); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := p.Stats().InUse; got != 0 {
		t.Fatalf("expected 0 in-use after release, got %d", got)
	}
	// Double release is a no-op.
	if err := p.Release(conn); err != nil {
		t.Fatalf("double release: %v", err)
	}
}

func TestPool_ExhaustionTimesOut(t *testing.T) {
	db := newTestDB(t)
	p, err := NewPool(db, testPoolCfg(2, 150*time.Millisecond))
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	// Saturate the pool, then race 5 more acquirers against it.
	ctx := context.Background()
	c1, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire 1: %v", err)
	}
	c2, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire 2: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Acquire(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, ErrPoolExhausted) {
			t.Fatalf("expected ErrPoolExhausted, got %v", err)
		}
	}
	if open := p.Stats().OpenConnections; open > 2 {
		t.Fatalf("max bound violated: %d open connections", open)
	}

	// Releasing frees capacity again.
	if err := p.Release(c1); err != nil {
		t.Fatalf("release: %v", err)
	}
	c3, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = p.Release(c2)
	_ = p.Release(c3)
}

func TestPool_PingSetsHealth(t *testing.T) {
	db := newTestDB(t)
	p, err := NewPool(db, testPoolCfg(2, time.Second))
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	if p.Healthy() {
		t.Fatalf("pool must start unhealthy until first ping")
	}
	if err := p.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if !p.Healthy() {
		t.Fatalf("expected healthy after successful ping")
	}
}

func TestPool_ShutdownDrains(t *testing.T) {
	db := newTestDB(t)
	p, err := NewPool(db, testPoolCfg(2, time.Second))
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	conn, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = p.Release(conn)
	}()

	if err := p.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if p.Healthy() {
		t.Fatalf("pool must be unhealthy after shutdown")
	}
}

func TestAutoMigrate_NoEntities(t *testing.T) {
	db := newTestDB(t)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("empty migrate should be a no-op: %v", err)
	}
	if err := AutoMigrate(db, &domain.User{}, &domain.Idempotency{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !db.Migrator().HasTable("users") || !db.Migrator().HasTable("idempotency") {
		t.Fatalf("expected tables after migrate")
	}
}
