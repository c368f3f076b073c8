package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noventa/go-user-gateway/internal/config"
	"github.com/noventa/go-user-gateway/internal/repo"
)

func testConfig() config.Config {
	cfg := config.Config{
		Port:              "0",
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       5 * time.Second,
		MaxHeaderBytes:    1 << 20,
		MaxBodyBytes:      1 << 20,
		RateRPS:           1000,
		RateBurst:         1000,
	}
	cfg.DB = config.DBConfig{
		Name:           "gateway",
		Host:           "127.0.0.1",
		Port:           1, // nothing listens here
		SSLMode:        "disable",
		PoolMin:        1,
		PoolMax:        5,
		IdleEvict:      time.Minute,
		AcquireTimeout: 200 * time.Millisecond,
		ShutdownGrace:  time.Second,
	}
	cfg.OTEL.ServiceName = "gateway-test"
	return cfg
}

func sqlitePool(t *testing.T, cfg config.DBConfig) *repo.Pool {
	t.Helper()
	dsn := fmt.Sprintf("file:server_%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	pool, err := repo.NewPool(gdb, cfg)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return pool
}

func getHealth(t *testing.T, addr string) map[string]any {
	t.Helper()
	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status: %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(b, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestServer_BootsDegradedWhenDatabaseUnreachable(t *testing.T) {
	gin.SetMode(gin.TestMode)

	srv := New(testConfig(), Options{})
	if err := srv.Start(); err != nil {
		t.Fatalf("boot must tolerate an unreachable database: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	}()

	if srv.Pool().Healthy() {
		t.Fatalf("pool should be unhealthy with no database listening")
	}

	body := getHealth(t, srv.Addr())
	if body["status"] != "degraded" {
		t.Fatalf("expected degraded health, got %v", body["status"])
	}
}

func TestServer_HealthyBootServesAndStops(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	pool := sqlitePool(t, cfg.DB)

	srv := New(cfg, Options{Pool: pool})
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	body := getHealth(t, srv.Addr())
	if body["status"] != "ok" {
		t.Fatalf("expected ok health, got %v", body["status"])
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// Serving has ended without an asynchronous error.
	if err, open := <-srv.ServeErr(); open && err != nil {
		t.Fatalf("serve error: %v", err)
	}
}

func TestServer_BindFailureIsFatal(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	pool := sqlitePool(t, cfg.DB)

	first := New(cfg, Options{Pool: pool})
	if err := first.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = first.Stop(ctx)
	}()

	// Reuse the exact port the first server bound.
	_, port, err := net.SplitHostPort(first.Addr())
	if err != nil {
		t.Fatalf("addr: %v", err)
	}
	cfg2 := testConfig()
	cfg2.Port = port
	second := New(cfg2, Options{Pool: sqlitePool(t, cfg2.DB)})
	if err := second.Start(); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = second.Stop(ctx)
		t.Fatalf("expected bind failure on occupied port %s", port)
	}
}
