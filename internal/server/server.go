package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/battlewithbytes/migration-console/internal/config"
	"github.com/battlewithbytes/migration-console/internal/console"
	"github.com/battlewithbytes/migration-console/internal/notify"
	"github.com/battlewithbytes/migration-console/internal/store"
)

// ActivityLog is the read side of the activity store.
type ActivityLog interface {
	List(ctx context.Context, limit int) ([]store.Activity, error)
	ListForEntity(ctx context.Context, kind, id string, limit int) ([]store.Activity, error)
}

// Server is the HTTP front end of the migration console.
type Server struct {
	cfg      *config.Config
	console  *console.Console
	hub      *notify.Hub
	activity ActivityLog
	logger   *zap.Logger
	http     *http.Server
}

// Option configures the server.
type Option func(*Server)

// WithHub sets the notification hub streamed to clients.
func WithHub(h *notify.Hub) Option {
	return func(s *Server) { s.hub = h }
}

// WithActivity sets the activity log served by /api/activity.
func WithActivity(a ActivityLog) Option {
	return func(s *Server) { s.activity = a }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a new Server.
func New(cfg *config.Config, con *console.Console, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		console: con,
		hub:     notify.NewHub(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	// API routes: tables
	mux.HandleFunc("GET /api/batches", s.handleBatchTable)
	mux.HandleFunc("GET /api/queue", s.handleQueueTable)
	mux.HandleFunc("GET /api/vms", s.handleVMTable)

	// API routes: lifecycle
	mux.HandleFunc("POST /api/batches/{id}/{action}", s.handleBatchAction)
	mux.HandleFunc("POST /api/queue/{id}/{action}", s.handleQueueAction)
	mux.HandleFunc("GET /api/activity", s.handleActivity)

	// API routes: sizing
	mux.HandleFunc("POST /api/units/parse", s.handleParseUnits)
	mux.HandleFunc("PUT /api/vms/{id}/override", s.handleSetOverride)

	// Streams
	mux.HandleFunc("GET /api/notifications/stream", s.handleNotificationStream)
	mux.HandleFunc("GET /api/vms/filter-count", s.handleFilterCount)

	var handler http.Handler = mux
	handler = maxBodyMiddleware(handler, 1<<20)
	handler = corsMiddleware(handler)
	handler = logMiddleware(s.logger, handler)

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Service.BindAddress, cfg.Service.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server and waits for pending lifecycle
// operations.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	done := make(chan struct{})
	go func() {
		s.console.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("shutdown: lifecycle operations still pending")
	}
	return err
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

func maxBodyMiddleware(next http.Handler, maxBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only limit request body for API writes, not WebSocket upgrades
		if r.Body != nil && strings.HasPrefix(r.URL.Path, "/api/") && r.Method != "GET" &&
			!strings.Contains(r.Header.Get("Upgrade"), "websocket") {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func logMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start).Round(time.Millisecond)),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			// Reflect the request origin only if it matches this server's host.
			host := r.Host
			if strings.HasPrefix(origin, "http://"+host) || strings.HasPrefix(origin, "https://"+host) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			if strings.Contains(origin, "://localhost:") || strings.Contains(origin, "://127.0.0.1:") {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Upgrade, Connection")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowedOriginPatterns returns WebSocket origin patterns matching the server's host.
func (s *Server) allowedOriginPatterns(r *http.Request) []string {
	patterns := []string{"localhost:*", "127.0.0.1:*"}
	if host := r.Host; host != "" {
		h := host
		if idx := strings.LastIndex(h, ":"); idx > 0 {
			h = h[:idx]
		}
		patterns = append(patterns, h+":*", host)
	}
	return patterns
}
