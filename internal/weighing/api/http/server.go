package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"weighline/internal/weighing/api/http/handle"
	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/app/services"
	"weighline/internal/xpkg/logger"
)

type Server struct {
	mux    *http.ServeMux
	srv    *http.Server
	app    *services.App
	db     core.IPinger
	port   int
	mylog  logger.Logger
	ctx    context.Context
	mu     sync.Mutex
	routed bool
}

func NewServer(ctx context.Context, app *services.App, db core.IPinger, port int, mylog logger.Logger) *Server {
	return &Server{
		ctx:   ctx,
		app:   app,
		db:    db,
		port:  port,
		mylog: mylog,
		mux:   http.NewServeMux(),
	}
}

// Run registers routes and listens until ctx is cancelled or the listener fails.
func (s *Server) Run() error {
	s.Configure()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.mux,
		ReadHeaderTimeout: core.WaitTime * time.Second,
	}
	s.mu.Unlock()

	s.mylog.Action("server_started").WithGroup("details").With("port", s.port).Info("server is running")
	return s.startHTTPServer()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	s.mylog.Action("graceful_shutdown_started").Info("Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, core.WaitTime*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down HTTP server gracefully", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.mylog.Action("graceful_shutdown_completed").Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	s.Configure()
	return s.mux
}

// Configure registers every route once.
func (s *Server) Configure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.routed {
		return
	}
	s.routed = true

	orderHandler := handle.NewOrderHandler(s.app.Orders, s.mylog)
	excipientHandler := handle.NewExcipientHandler(s.app.Orders, s.mylog)
	binHandler := handle.NewBinHandler(s.app.Bins, s.mylog)
	catalogHandler := handle.NewCatalogHandler(s.app.Catalog, s.mylog)
	settingsHandler := handle.NewSettingsHandler(s.app.Settings, s.mylog)

	s.mux.Handle("GET /health", handle.Health(s.db))

	s.mux.Handle("GET /orders", orderHandler.List())
	s.mux.Handle("POST /orders", orderHandler.Create())
	s.mux.Handle("DELETE /orders/{index}", orderHandler.Delete())
	s.mux.Handle("POST /orders/{index}/weighed", orderHandler.ToggleWeighed())
	s.mux.Handle("PUT /orders/{index}/production-order", orderHandler.AssignProductionOrder())
	s.mux.Handle("GET /orders/auto-op", orderHandler.AutoOP())
	s.mux.Handle("PUT /orders/auto-op", orderHandler.SetAutoOP())
	s.mux.Handle("DELETE /orders/auto-op", orderHandler.ClearAutoOP())

	s.mux.Handle("GET /excipients", excipientHandler.List())
	s.mux.Handle("PUT /excipients/filter", excipientHandler.SetFilter())

	s.mux.Handle("GET /bins", binHandler.List())
	s.mux.Handle("POST /bins", binHandler.Create())
	s.mux.Handle("DELETE /bins/{id}", binHandler.Delete())

	s.mux.Handle("GET /materials/{code}", catalogHandler.Material())
	s.mux.Handle("GET /materials/{code}/recipes", catalogHandler.Recipes())

	s.mux.Handle("GET /settings/theme", settingsHandler.Theme())
	s.mux.Handle("PUT /settings/theme", settingsHandler.SetTheme())
	s.mux.Handle("POST /settings/theme/toggle", settingsHandler.ToggleTheme())
}
