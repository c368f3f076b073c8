// Package server owns the process lifecycle: it opens the connection pool,
// migrates the schema when the database is reachable, binds the listener,
// and serves HTTP until asked to stop.
//
// Boot is deliberately resilient: an unreachable database leaves the pool in
// degraded mode but never prevents the listener from coming up. A bind
// failure, by contrast, is a hard error surfaced synchronously from Start.
package server

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/noventa/go-user-gateway/internal/config"
	"github.com/noventa/go-user-gateway/internal/domain"
	httpapi "github.com/noventa/go-user-gateway/internal/http"
	"github.com/noventa/go-user-gateway/internal/repo"
)

// Options configures a Server beyond the loaded Config.
type Options struct {
	// Pool overrides the Postgres pool, used by tests to run on SQLite.
	// When nil, Start opens a pool from Config.DB.
	Pool *repo.Pool

	// Entities are the models migrated at boot when the database is
	// reachable. Defaults to the gateway's own entity set.
	Entities []any
}

// Server ties the HTTP listener to the connection pool lifecycle.
type Server struct {
	cfg  config.Config
	opts Options

	pool    *repo.Pool
	httpSrv *http.Server
	ln      net.Listener

	serveErr chan error
}

// New constructs an unstarted Server.
func New(cfg config.Config, opts Options) *Server {
	if opts.Entities == nil {
		opts.Entities = []any{&domain.User{}, &domain.Idempotency{}}
	}
	return &Server{cfg: cfg, opts: opts, serveErr: make(chan error, 1)}
}

// Start opens the pool, migrates when possible, and begins serving. It
// returns once the listener is bound; request serving continues in the
// background. The only fatal cases are pool construction and bind failure.
func (s *Server) Start() error {
	pool := s.opts.Pool
	if pool == nil {
		p, err := repo.OpenPostgres(s.cfg.DB)
		if err != nil {
			return err
		}
		pool = p
	}
	s.pool = pool

	if pool.Healthy() {
		if err := repo.AutoMigrate(pool.DB(), s.opts.Entities...); err != nil {
			return err
		}
	} else {
		log.Warn().Msg("skipping schema migration; database unreachable at boot")
	}

	engine := gin.New()
	httpapi.RegisterRoutes(engine, pool, s.cfg)

	ln, err := net.Listen("tcp", net.JoinHostPort("", s.cfg.Port))
	if err != nil {
		return err
	}
	s.ln = ln

	s.httpSrv = &http.Server{
		Handler:           engine,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		MaxHeaderBytes:    s.cfg.MaxHeaderBytes,
	}

	go func() {
		err := s.httpSrv.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			s.serveErr <- err
		}
		close(s.serveErr)
	}()

	log.Info().
		Str("addr", ln.Addr().String()).
		Bool("db_healthy", pool.Healthy()).
		Msg("server listening")
	return nil
}

// Addr returns the bound listener address (useful when Port is "0").
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Pool exposes the connection pool for health checks and tests.
func (s *Server) Pool() *repo.Pool { return s.pool }

// ServeErr reports an asynchronous Serve failure, if any. The channel is
// closed once serving ends.
func (s *Server) ServeErr() <-chan error { return s.serveErr }

// Stop drains the HTTP server within ctx, then drains and closes the pool
// within the configured grace window. In-flight requests get to finish
// before their connections are reclaimed.
func (s *Server) Stop(ctx context.Context) error {
	var firstErr error
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if s.pool != nil {
		if err := s.pool.Shutdown(s.cfg.DB.ShutdownGrace); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
