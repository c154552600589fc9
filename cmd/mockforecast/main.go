// Command mockforecast serves a deterministic stand-in for the leakage
// forecasting API so the service can run without the real model. It can also
// write the generated responses to disk as test fixtures.
//
// Usage:
//
//	go run ./cmd/mockforecast -addr :5000
//	go run ./cmd/mockforecast -out data/mock -days 7,30,90
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var baseDate = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		slog.Error("mockforecast failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", ":5000", "listen address")
	out := flag.String("out", "", "write fixtures to this directory instead of serving")
	days := flag.String("days", "7,30,90", "horizons to write with -out")
	token := flag.String("token", "", "require this bearer token when set")
	flag.Parse()

	gen := newGenerator(baseDate)
	if *out != "" {
		horizons, err := parseHorizons(*days)
		if err != nil {
			return err
		}
		return writeFixtures(gen, *out, horizons)
	}

	slog.Info("mock forecasting API listening", "addr", *addr)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           newRouter(gen, *token),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

func newRouter(gen *generator, token string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	if token != "" {
		r.Use(requireToken(token))
	}

	r.Get("/summary", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, gen.summary())
	})
	r.Get("/predict/city/{days}", func(w http.ResponseWriter, r *http.Request) {
		days, ok := intParam(w, chi.URLParam(r, "days"), maxDays)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, gen.cityForecast(days))
	})
	r.Get("/predict/ward/{ward}/{days}", func(w http.ResponseWriter, r *http.Request) {
		ward, ok := intParam(w, chi.URLParam(r, "ward"), 0)
		if !ok {
			return
		}
		days, ok := intParam(w, chi.URLParam(r, "days"), maxDays)
		if !ok {
			return
		}
		if ward > len(wardNames) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown ward"})
			return
		}
		writeJSON(w, http.StatusOK, gen.wardForecast(ward, days))
	})
	r.Get("/alerts/scan", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		days, ok := intParam(w, q.Get("days"), maxDays)
		if !ok {
			return
		}
		threshold, err := strconv.ParseFloat(q.Get("threshold"), 64)
		if err != nil {
			threshold = 10
		}
		writeJSON(w, http.StatusOK, gen.scan(threshold, days))
	})
	return r
}

func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+token {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token is invalid"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// maxDays bounds the horizons the mock will generate.
const maxDays = 365

// intParam parses a positive integer, capped at limit when limit > 0.
func intParam(w http.ResponseWriter, raw string, limit int) (int, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || (limit > 0 && n > limit) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid number: " + raw})
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // mock server
}

func parseHorizons(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 || n > maxDays {
			return nil, fmt.Errorf("invalid horizon %q", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("no horizons given")
	}
	return out, nil
}

func writeFixtures(gen *generator, dir string, horizons []int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create fixture dir: %w", err)
	}
	files := map[string]any{"summary.json": gen.summary()}
	for _, d := range horizons {
		files[fmt.Sprintf("city_%d.json", d)] = gen.cityForecast(d)
		files[fmt.Sprintf("scan_%d.json", d)] = gen.scan(10, d)
	}
	for name, v := range files {
		if err := writeFile(filepath.Join(dir, name), v); err != nil {
			return err
		}
		slog.Info("wrote fixture", "path", filepath.Join(dir, name))
	}
	return nil
}

func writeFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
