package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/leakwatch-service/internal/domain"
	"github.com/couchcryptid/leakwatch-service/internal/forecast"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Predictor runs the predict action for a horizon.
type Predictor interface {
	Predict(ctx context.Context, horizon int, token string) ([]domain.ForecastRow, error)
	Scanning() bool
}

// Scanner runs a ward scan for a horizon.
type Scanner interface {
	Scan(ctx context.Context, horizon int, token string, threshold float64) []domain.WardScanResult
}

// ForecastSource serves the read-only forecasting endpoints passed through to the browser.
type ForecastSource interface {
	WardForecast(ctx context.Context, token string, ward, days int) ([]domain.ForecastRow, error)
	Summary(ctx context.Context, token string) (domain.CitySummary, error)
}

// NotificationFeed is the notification store as seen by the API.
type NotificationFeed interface {
	Filter(level domain.Level) []domain.Notification
	UnreadCount() int
	CountByLevel() map[domain.Level]int
	MarkAllRead()
	ClearAll()
	ClearByHorizon(days int) int
}

// ForecastSession holds the last city forecast.
type ForecastSession interface {
	Snapshot() forecast.Snapshot
	Clear()
}

// ToastBoard is the visible toast set.
type ToastBoard interface {
	Visible() []domain.Toast
	Dismiss(id string) bool
}

// Deps are the components the API serves.
type Deps struct {
	Ready          ReadinessChecker
	Predictor      Predictor
	Scanner        Scanner
	Forecasts      ForecastSource
	Notifications  NotificationFeed
	Session        ForecastSession
	Toasts         ToastBoard
	Hub            *Hub
	AllowedOrigins []string
}

// Server exposes the dashboard API, the live event stream, and health,
// readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with every route mounted.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		deps:   deps,
		logger: logger,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second, // scans wait on the forecasting API
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(s.deps.Ready))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.deps.Hub.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Post("/predict/{days}", s.handlePredict)
		r.Get("/predict/ward/{ward}/{days}", s.handleWardForecast)
		r.Post("/scan/{days}", s.handleScan)

		r.Get("/forecast", s.handleGetForecast)
		r.Delete("/forecast", s.handleClearForecast)

		r.Get("/notifications", s.handleListNotifications)
		r.Post("/notifications/read", s.handleMarkRead)
		r.Delete("/notifications", s.handleClearNotifications)
		r.Delete("/notifications/horizon/{days}", s.handleClearHorizon)

		r.Get("/toasts", s.handleListToasts)
		r.Delete("/toasts/{id}", s.handleDismissToast)
	})
	return r
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
// WebSocket clients are disconnected first since the server does not track hijacked connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.deps.Hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
