// Package server accepts raw TCP connections and answers one HTTP/1.1
// request per connection from the content and static roots.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"zettel/internal/config"
	"zettel/internal/httpwire"
	"zettel/internal/render"
	"zettel/internal/resolver"
	"zettel/internal/watcher"
)

// Server wires the dispatcher, the request handler and the template watcher.
type Server struct {
	cfg     *config.Config
	store   *render.TemplateStore
	handler *Handler
	logger  *slog.Logger
}

// New builds a server from a validated config. Templates are parsed once
// here so a broken template directory fails startup.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := render.NewTemplateStore(cfg.TemplateDir())
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	res := resolver.New(cfg.ContentDir(), cfg.StaticDir())
	opts := HandlerOptions{
		Limits: httpwire.Limits{
			MaxHeaders:   cfg.Server.MaxHeaders,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
		},
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
	}
	return &Server{
		cfg:     cfg,
		store:   store,
		handler: NewHandler(res, render.NewRenderer(store), opts, logger),
		logger:  logger,
	}, nil
}

// Handler returns the per-connection handler.
func (s *Server) Handler() *Handler { return s.handler }

// Templates returns the live template store.
func (s *Server) Templates() *render.TemplateStore { return s.store }

// ListenAndServe binds cfg.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, l)
}

// Serve runs the dispatcher on l, plus the template watcher when enabled.
// A fatal accept error stops the watcher too.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	d := NewDispatcher(l, s.handler, s.cfg.Server.MaxConnections, s.logger)
	s.logger.Info("Server listening",
		"addr", l.Addr().String(),
		"contentRoot", s.cfg.ContentDir(),
		"staticRoot", s.cfg.StaticDir(),
		"maxConnections", s.cfg.Server.MaxConnections,
	)
	g.Go(func() error {
		return d.Serve(gctx)
	})

	if s.cfg.Templates.Watch && s.store.Root() != "" {
		wcfg := watcher.DefaultConfig()
		wcfg.Poll = s.cfg.Templates.Poll
		wcfg.DebounceMs = s.cfg.Templates.DebounceMs
		w := watcher.New(s.store.Root(), wcfg, s.logger, s.reloadTemplates)
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	err := g.Wait()
	stats := d.Stats()
	s.logger.Info("Server stopped", "served", stats.Served, "panicked", stats.Panicked)
	return err
}

func (s *Server) reloadTemplates(events []watcher.Event) {
	if err := s.store.Reload(); err != nil {
		s.logger.Error("Template reload failed, keeping previous set",
			"changes", len(events),
			"error", err.Error(),
		)
		return
	}
	s.logger.Info("Templates reloaded",
		"changes", len(events),
		"files", len(s.store.Files()),
	)
}
