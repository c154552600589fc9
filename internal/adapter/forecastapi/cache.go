package forecastapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/couchcryptid/leakwatch-service/internal/domain"
	"github.com/couchcryptid/leakwatch-service/internal/observability"
)

// CachedSource wraps a Source with a TTL cache for city and ward forecasts.
// Ward scans and summaries always go to the inner source so alerts reflect
// the latest data.
type CachedSource struct {
	inner   Source
	cache   *gocache.Cache
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a forecast source.
func NewCachedSource(inner Source, ttl time.Duration, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   gocache.New(ttl, 2*ttl),
		metrics: metrics,
	}
}

func (c *CachedSource) CityForecast(ctx context.Context, token string, days int) ([]domain.ForecastRow, error) {
	key := fmt.Sprintf("%s:%d|%s", endpointCity, days, tokenKey(token))
	return c.rows(key, endpointCity, func() ([]domain.ForecastRow, error) {
		return c.inner.CityForecast(ctx, token, days)
	})
}

func (c *CachedSource) WardForecast(ctx context.Context, token string, ward, days int) ([]domain.ForecastRow, error) {
	key := fmt.Sprintf("%s:%d/%d|%s", endpointWard, ward, days, tokenKey(token))
	return c.rows(key, endpointWard, func() ([]domain.ForecastRow, error) {
		return c.inner.WardForecast(ctx, token, ward, days)
	})
}

func (c *CachedSource) ScanWards(ctx context.Context, token string, threshold float64, days int) ([]domain.WardScanResult, error) {
	return c.inner.ScanWards(ctx, token, threshold, days)
}

func (c *CachedSource) Summary(ctx context.Context, token string) (domain.CitySummary, error) {
	return c.inner.Summary(ctx, token)
}

func (c *CachedSource) rows(key, endpoint string, fetch func() ([]domain.ForecastRow, error)) ([]domain.ForecastRow, error) {
	if v, ok := c.cache.Get(key); ok {
		c.metrics.ForecastCache.WithLabelValues(endpoint, "hit").Inc()
		return append([]domain.ForecastRow(nil), v.([]domain.ForecastRow)...), nil
	}
	c.metrics.ForecastCache.WithLabelValues(endpoint, "miss").Inc()

	rows, err := fetch()
	if err != nil {
		return nil, err
	}
	// Empty forecasts are not cached so a model still warming up is retried.
	if len(rows) > 0 {
		c.cache.SetDefault(key, append([]domain.ForecastRow(nil), rows...))
	}
	return rows, nil
}

// tokenKey scopes cache entries to a credential without keeping the token itself.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
