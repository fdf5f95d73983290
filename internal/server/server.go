// Package server wires the store, service, credential gate and HTTP routes
// into a runnable API server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/cors"

	"github.com/nhle/taskapi/internal/api"
	"github.com/nhle/taskapi/internal/auth"
	"github.com/nhle/taskapi/internal/logger"
	"github.com/nhle/taskapi/internal/model"
	"github.com/nhle/taskapi/internal/service"
	"github.com/nhle/taskapi/internal/store"
)

const lockName = "taskapi.lock"

// ErrLocked is returned when another process holds the data directory.
var ErrLocked = errors.New("data directory is in use by another taskapi process")

// Server owns the data directory lock, the store and the HTTP listener.
type Server struct {
	cfg      *model.AppConfig
	log      logger.Logger
	store    *store.SQLiteStore
	lockFile *flock.Flock
}

// New locks cfg.DataDir and opens the task database. Close releases both.
func New(cfg *model.AppConfig, log logger.Logger, opts ...store.Option) (*Server, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	s := &Server{cfg: cfg, log: log}
	if err := s.acquireLock(); err != nil {
		return nil, err
	}

	opts = append([]store.Option{store.WithDriver(cfg.Database.Driver)}, opts...)
	st, err := store.NewSQLiteStore(cfg.Database.Path, opts...)
	if err != nil {
		s.releaseLock()
		return nil, err
	}
	s.store = st

	log.Info("server: store opened", "path", cfg.Database.Path, "driver", cfg.Database.Driver)
	return s, nil
}

// Store returns the opened store, for admin commands sharing the lock.
func (s *Server) Store() *store.SQLiteStore {
	return s.store
}

// Handler returns the full middleware chain over the task routes.
func (s *Server) Handler() http.Handler {
	return NewHandler(service.NewTaskService(s.store), s.store, s.cfg, s.log)
}

// NewHandler builds RequestLogger → CORS → BasicAuth → routes. Routes are
// served both at the root and under /api.
func NewHandler(svc api.TaskService, users auth.UserLookup, cfg *model.AppConfig, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	h := api.NewTaskHandler(svc)
	h.RegisterRoutes(mux, "")
	h.RegisterRoutes(mux, "/api")

	gated := auth.BasicAuth(users, cfg.Auth.Realm)(mux)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", logger.RequestIDHeader},
		ExposedHeaders:   []string{"Location", logger.RequestIDHeader},
		AllowCredentials: true,
	})

	return logger.RequestLogger(log)(c.Handler(gated))
}

// Run serves until ctx is cancelled, then shuts down within
// cfg.Server.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server: listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("server: shutting down")
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return <-errCh
}

// Close closes the store and releases the data directory lock.
func (s *Server) Close() error {
	var err error
	if s.store != nil {
		if cerr := s.store.Close(); cerr != nil {
			err = fmt.Errorf("closing store: %w", cerr)
		}
	}
	s.releaseLock()
	return err
}

func (s *Server) acquireLock() error {
	s.lockFile = flock.New(filepath.Join(s.cfg.DataDir, lockName))

	locked, err := s.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	return nil
}

func (s *Server) releaseLock() {
	if s.lockFile != nil {
		_ = s.lockFile.Unlock()
	}
}
