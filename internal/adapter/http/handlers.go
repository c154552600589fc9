package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/leakwatch-service/internal/adapter/forecastapi"
	"github.com/couchcryptid/leakwatch-service/internal/domain"
)

// maxHorizon bounds the forecast horizons the API accepts.
const maxHorizon = 365

// notificationsResponse is the body of GET /api/notifications.
type notificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
	Counts        map[domain.Level]int  `json:"counts"`
}

// predictResponse is the body of POST /api/predict/{days}.
type predictResponse struct {
	Days     int                  `json:"days"`
	Forecast []domain.ForecastRow `json:"forecast"`
	Summary  forecastSummary      `json:"summary"`
	Scanning bool                 `json:"scanning"`
}

type forecastSummary struct {
	AvgLeakagePct float64 `json:"avgLeakagePct"`
	CriticalDays  int     `json:"criticalDays"`
	HighDays      int     `json:"highDays"`
}

// scanResponse is the body of POST /api/scan/{days}.
type scanResponse struct {
	Days  int                     `json:"days"`
	Wards []domain.WardScanResult `json:"wards"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(w, r)
	if !ok {
		return
	}
	days, ok := pathInt(w, r, "days", maxHorizon)
	if !ok {
		return
	}

	rows, err := s.deps.Predictor.Predict(r.Context(), days, token)
	if err != nil {
		s.logger.Warn("predict failed", "days", days, "error", err)
		writeError(w, upstreamStatus(err), "prediction failed")
		return
	}
	if rows == nil {
		rows = []domain.ForecastRow{}
	}

	sum := domain.SummarizeForecast(rows)
	writeJSON(w, http.StatusOK, predictResponse{
		Days:     days,
		Forecast: rows,
		Summary: forecastSummary{
			AvgLeakagePct: sum.AvgLeakagePct,
			CriticalDays:  sum.CriticalDays,
			HighDays:      sum.HighDays,
		},
		Scanning: s.deps.Predictor.Scanning(),
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(w, r)
	if !ok {
		return
	}
	days, ok := pathInt(w, r, "days", maxHorizon)
	if !ok {
		return
	}

	var threshold float64
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || !domain.ValidThreshold(t) {
			writeError(w, http.StatusBadRequest, "threshold must be a number in (0, 100]")
			return
		}
		threshold = t
	}

	// The scan clears and repopulates shared state, so it runs to completion
	// even if this client goes away.
	wards := s.deps.Scanner.Scan(context.WithoutCancel(r.Context()), days, token, threshold)
	writeJSON(w, http.StatusOK, scanResponse{Days: days, Wards: wards})
}

func (s *Server) handleWardForecast(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(w, r)
	if !ok {
		return
	}
	ward, ok := pathInt(w, r, "ward", 0)
	if !ok {
		return
	}
	days, ok := pathInt(w, r, "days", maxHorizon)
	if !ok {
		return
	}

	rows, err := s.deps.Forecasts.WardForecast(r.Context(), token, ward, days)
	if err != nil {
		s.logger.Warn("ward forecast failed", "ward", ward, "days", days, "error", err)
		writeError(w, upstreamStatus(err), "ward forecast failed")
		return
	}
	if rows == nil {
		rows = []domain.ForecastRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(w, r)
	if !ok {
		return
	}
	sum, err := s.deps.Forecasts.Summary(r.Context(), token)
	if err != nil {
		s.logger.Warn("summary failed", "error", err)
		writeError(w, upstreamStatus(err), "could not load summary")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleGetForecast(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Session.Snapshot())
}

func (s *Server) handleClearForecast(w http.ResponseWriter, _ *http.Request) {
	s.deps.Session.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	var level domain.Level
	if raw := r.URL.Query().Get("level"); raw != "" && raw != "ALL" {
		l, ok := domain.ParseLevel(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown level: "+raw)
			return
		}
		level = l
	}

	feed := s.deps.Notifications
	list := feed.Filter(level)
	if list == nil {
		list = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationsResponse{
		Notifications: list,
		UnreadCount:   feed.UnreadCount(),
		Counts:        feed.CountByLevel(),
	})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, _ *http.Request) {
	s.deps.Notifications.MarkAllRead()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, _ *http.Request) {
	s.deps.Notifications.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearHorizon(w http.ResponseWriter, r *http.Request) {
	days, ok := pathInt(w, r, "days", maxHorizon)
	if !ok {
		return
	}
	removed := s.deps.Notifications.ClearByHorizon(days)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleListToasts(w http.ResponseWriter, _ *http.Request) {
	visible := s.deps.Toasts.Visible()
	if visible == nil {
		visible = []domain.Toast{}
	}
	writeJSON(w, http.StatusOK, visible)
}

func (s *Server) handleDismissToast(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Toasts.Dismiss(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "toast not visible")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bearerToken extracts the caller's token, writing 401 when there is none.
func bearerToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return "", false
	}
	return token, true
}

// pathInt parses a positive integer URL parameter, capped at limit when limit > 0.
func pathInt(w http.ResponseWriter, r *http.Request, name string, limit int) (int, bool) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || (limit > 0 && n > limit) {
		writeError(w, http.StatusBadRequest, "invalid "+name+": "+raw)
		return 0, false
	}
	return n, true
}

// upstreamStatus maps a forecasting API failure to a response status. An
// upstream 401 is passed on so the browser can re-authenticate.
func upstreamStatus(err error) int {
	var apiErr *forecastapi.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}
