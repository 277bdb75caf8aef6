// Package worker provides the dashboard worker service for periscope.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/periscope/internal/config"
	db "github.com/thebtf/periscope/internal/db/gorm"
	"github.com/thebtf/periscope/internal/watcher"
	"github.com/thebtf/periscope/internal/worker/sse"
)

// Service is the dashboard worker. It owns the database store, the HTTP
// API, the SSE broadcaster, and the database file watcher.
type Service struct {
	version        string
	config         *config.Config
	store          *db.Store
	sessions       *db.SessionStore
	conversations  *db.ConversationStore
	metrics        *db.MetricsStore
	events         *db.EventStore
	configs        *db.ConfigStore
	sseBroadcaster *sse.Broadcaster
	dbWatcher      *watcher.Watcher
	router         *chi.Mux
	server         *http.Server
	ctx            context.Context
	cancel         context.CancelFunc
	startTime      time.Time
	ready          atomic.Bool
}

// New creates a Service, opening the database at cfg.DBPath.
func New(version string, cfg *config.Config) (*Service, error) {
	if err := config.EnsureDataDir(); err != nil {
		return nil, err
	}

	store, err := db.NewStore(db.Config{
		Path:     cfg.DBPath,
		MaxConns: cfg.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:        version,
		config:         cfg,
		store:          store,
		sessions:       db.NewSessionStore(store),
		conversations:  db.NewConversationStore(store),
		metrics:        db.NewMetricsStore(store),
		events:         db.NewEventStore(store),
		configs:        db.NewConfigStore(store),
		sseBroadcaster: sse.NewBroadcaster(),
		router:         chi.NewRouter(),
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
	}

	dbWatcher, err := watcher.New(cfg.DBPath,
		time.Duration(cfg.WatchDebounceMs)*time.Millisecond,
		svc.sseBroadcaster.BroadcastRefresh)
	if err != nil {
		cancel()
		store.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	svc.dbWatcher = dbWatcher

	svc.setupRoutes()
	return svc, nil
}

// setupRoutes registers all HTTP routes.
func (s *Service) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/ready", s.handleReady)
	s.router.Get("/api/version", s.handleVersion)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireReady)

		r.Get("/api/sessions/active", s.handleActiveSessions)
		r.Get("/api/sessions/status-counts", s.handleStatusCounts)
		r.Get("/api/sessions/{id}", s.handleGetSession)
		r.Get("/api/sessions/{id}/conversations", s.handleSessionConversations)
		r.Get("/api/conversations/{id}/messages", s.handleConversationMessages)
		r.Get("/api/metrics/summary", s.handleMetricsSummary)
		r.Get("/api/events/recent", s.handleRecentEvents)
		r.Get("/api/configurations", s.handleGetConfigurations)
		r.Post("/api/configurations", s.handleSaveConfiguration)
	})

	s.router.Get("/api/events/stream", s.sseBroadcaster.HandleSSE)

	if s.config.Dashboard {
		s.router.Get("/", serveIndex)
		s.router.Get("/assets/*", serveAssets)
	}
}

// Start begins serving. It blocks until the listener fails or Stop is
// called.
func (s *Service) Start() error {
	if err := s.dbWatcher.Start(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.config.WorkerPort)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.ready.Store(true)
	log.Info().Str("addr", addr).Str("version", s.version).Msg("Dashboard worker listening")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the service down gracefully.
func (s *Service) Stop() error {
	s.ready.Store(false)
	s.cancel()

	if s.dbWatcher != nil {
		if err := s.dbWatcher.Stop(); err != nil {
			log.Warn().Err(err).Msg("Watcher stop failed")
		}
	}

	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Server shutdown failed")
		}
	}

	return s.store.Close()
}

// Uptime returns how long the service has been running.
func (s *Service) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// requireReady rejects requests until the service finished starting.
func (s *Service) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeError(w, http.StatusServiceUnavailable, "service not ready")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
