package forecastapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/leakwatch-service/internal/domain"
	"github.com/couchcryptid/leakwatch-service/internal/observability"
)

// Endpoint labels used in metrics and cache keys.
const (
	endpointCity    = "city"
	endpointWard    = "ward"
	endpointScan    = "scan"
	endpointSummary = "summary"
)

// Source is the set of forecasting API calls the service makes.
type Source interface {
	CityForecast(ctx context.Context, token string, days int) ([]domain.ForecastRow, error)
	WardForecast(ctx context.Context, token string, ward, days int) ([]domain.ForecastRow, error)
	ScanWards(ctx context.Context, token string, threshold float64, days int) ([]domain.WardScanResult, error)
	Summary(ctx context.Context, token string) (domain.CitySummary, error)
}

// Client implements Source over the forecasting service's HTTP API.
// Every request carries the caller's bearer token; the client never retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a forecasting API client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// CityForecast fetches one row per day for the whole city.
func (c *Client) CityForecast(ctx context.Context, token string, days int) ([]domain.ForecastRow, error) {
	var rows []domain.ForecastRow
	path := fmt.Sprintf("/predict/city/%d", days)
	if err := c.getJSON(ctx, token, path, endpointCity, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// WardForecast fetches one row per day for a single ward.
func (c *Client) WardForecast(ctx context.Context, token string, ward, days int) ([]domain.ForecastRow, error) {
	var rows []domain.ForecastRow
	path := fmt.Sprintf("/predict/ward/%d/%d", ward, days)
	if err := c.getJSON(ctx, token, path, endpointWard, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ScanWards summarises every ward over the given window. The endpoint only
// scans up to domain.ScanDaysCap days, so longer windows are capped here.
func (c *Client) ScanWards(ctx context.Context, token string, threshold float64, days int) ([]domain.WardScanResult, error) {
	params := url.Values{
		"threshold": {strconv.FormatFloat(threshold, 'f', -1, 64)},
		"days":      {strconv.Itoa(domain.ScanDays(days))},
	}

	var results []domain.WardScanResult
	if err := c.getJSON(ctx, token, "/alerts/scan?"+params.Encode(), endpointScan, &results); err != nil {
		return nil, err
	}
	for i := range results {
		results[i] = results[i].Normalize()
	}
	return results, nil
}

// Summary fetches the historical city KPIs.
func (c *Client) Summary(ctx context.Context, token string) (domain.CitySummary, error) {
	var s domain.CitySummary
	if err := c.getJSON(ctx, token, "/summary", endpointSummary, &s); err != nil {
		return domain.CitySummary{}, err
	}
	return s, nil
}

func (c *Client) getJSON(ctx context.Context, token, path, endpoint string, out any) error {
	start := time.Now()
	err := c.doRequest(ctx, token, c.baseURL+path, endpoint, out)
	c.metrics.ForecastAPIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.ForecastRequests.WithLabelValues(endpoint, "error").Inc()
		c.logger.Warn("forecast api request failed", "endpoint", endpoint, "path", path, "error", err)
		return err
	}
	c.metrics.ForecastRequests.WithLabelValues(endpoint, "success").Inc()
	return nil
}

func (c *Client) doRequest(ctx context.Context, token, fullURL, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s forecast request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// APIError is returned when the forecasting API answers with a non-200 status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("forecast API error: status %d: %s", e.StatusCode, e.Body)
}
