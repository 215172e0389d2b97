package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/justinas/alice"
	"github.com/rs/cors"

	"chromaflow/internal/app"
	"chromaflow/internal/csvio"
	"chromaflow/internal/identity"
	"chromaflow/internal/items"
	"chromaflow/internal/logging"
	"chromaflow/internal/workflow"
)

const (
	maxImportBytes  = 16 << 20
	maxRequestBytes = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Controller is the state owner the server drives.
type Controller interface {
	View(ctx context.Context) (app.View, error)
	Advance(ctx context.Context, ids []string, shop workflow.Shop) (app.AdvanceResult, error)
	SetStatus(ctx context.Context, ids []string, status workflow.Status, shop workflow.Shop) (int, error)
	Delete(ctx context.Context, ids []string) (int, error)
	Import(ctx context.Context, list []items.Item, mode items.ImportMode) (items.ImportResult, error)
	Save(ctx context.Context) error
	Revert(ctx context.Context) error
	Subscribe() (<-chan app.Event, func())
}

// Options configures a Server.
type Options struct {
	Bind           string
	AllowedOrigins []string
	Policy         identity.Policy
	Encoding       csvio.Encoding
	Parser         csvio.Parser
	Logger         *slog.Logger
}

// Server is the HTTP surface over a Controller.
type Server struct {
	ctrl     Controller
	policy   identity.Policy
	parser   csvio.Parser
	encoding csvio.Encoding
	origins  []string
	bind     string
	logger   *slog.Logger
	handler  http.Handler
}

// NewServer wires routes and middleware.
func NewServer(ctrl Controller, opts Options) *Server {
	s := &Server{
		ctrl:     ctrl,
		policy:   opts.Policy,
		parser:   opts.Parser,
		encoding: opts.Encoding,
		origins:  opts.AllowedOrigins,
		bind:     strings.TrimSpace(opts.Bind),
		logger:   logging.NewComponentLogger(opts.Logger, "api"),
	}
	if s.encoding == "" {
		s.encoding = csvio.EncodingAuto
	}

	standard := alice.New(s.recoverPanic, s.logRequest, secureHeaders, identity.Middleware)
	admin := standard.Append(s.requireAdmin)

	mux := http.NewServeMux()
	mux.Handle("GET /api/items", standard.ThenFunc(s.handleItems))
	mux.Handle("GET /api/stats", standard.ThenFunc(s.handleStats))
	mux.Handle("GET /api/options", standard.ThenFunc(s.handleOptions))
	mux.Handle("GET /api/state", standard.ThenFunc(s.handleState))
	mux.Handle("GET /api/export", standard.ThenFunc(s.handleExport))
	mux.Handle("POST /api/advance", standard.ThenFunc(s.handleAdvance))
	mux.Handle("POST /api/status", standard.ThenFunc(s.handleStatus))
	mux.Handle("POST /api/delete", standard.ThenFunc(s.handleDelete))
	mux.Handle("POST /api/revert", standard.ThenFunc(s.handleRevert))
	mux.Handle("POST /api/import", admin.ThenFunc(s.handleImport))
	mux.Handle("POST /api/save", admin.ThenFunc(s.handleSave))
	mux.Handle("GET /api/events", alice.New(s.recoverPanic, identity.Middleware).ThenFunc(s.handleEvents))

	s.handler = mux
	// Without configured origins only same-origin callers are served.
	if len(s.origins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", identity.HeaderUserID},
		})
		s.handler = c.Handler(mux)
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve listens on the configured bind address until ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener serves on an existing listener until ctx ends.
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("api server listening", logging.String("bind", listener.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api serve: %w", err)
	}
	return nil
}

func (s *Server) caller(r *http.Request) (string, bool) {
	return s.policy.Check(identity.FromContext{Ctx: r.Context()})
}
