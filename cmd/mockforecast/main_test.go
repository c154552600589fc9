package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/leakwatch-service/internal/adapter/forecastapi"
	"github.com/couchcryptid/leakwatch-service/internal/domain"
	"github.com/couchcryptid/leakwatch-service/internal/observability"
)

func TestGenerator_Deterministic(t *testing.T) {
	a := newGenerator(baseDate).cityForecast(7)
	b := newGenerator(baseDate).cityForecast(7)
	assert.Equal(t, a, b)
	require.Len(t, a, 7)
	assert.Equal(t, "2025-03-01", a[0].Date)
	assert.Equal(t, "2025-03-07", a[6].Date)
}

func TestGenerator_ScanLevelsMatchClassifier(t *testing.T) {
	results := newGenerator(baseDate).scan(10, 365)
	require.Len(t, results, len(wardNames))

	levels := map[domain.Level]int{}
	for _, w := range results {
		assert.Equal(t, domain.Classify(w.AvgLeakagePct), w.Level, "ward %d", w.WardNo)
		assert.LessOrEqual(t, w.DaysExceeding, domain.ScanDaysCap)
		assert.GreaterOrEqual(t, w.MaxLeakagePct, w.AvgLeakagePct)
		assert.NotEmpty(t, w.PeakDate)
		levels[w.Level]++
	}
	assert.Greater(t, levels[domain.LevelNormal], 0, "some wards should be normal")
	assert.Greater(t, len(wardNames)-levels[domain.LevelNormal], 0, "some wards should alert")
}

// The real client must be able to talk to the mock server.
func TestMockServer_WithClient(t *testing.T) {
	srv := httptest.NewServer(newRouter(newGenerator(baseDate), "secret"))
	t.Cleanup(srv.Close)

	c := forecastapi.NewClient(srv.URL, 5*time.Second, observability.NewMetricsForTesting(), observability.DiscardLogger())

	rows, err := c.CityForecast(t.Context(), "secret", 30)
	require.NoError(t, err)
	assert.Len(t, rows, 30)

	wards, err := c.ScanWards(t.Context(), "secret", 10, 30)
	require.NoError(t, err)
	assert.Len(t, wards, len(wardNames))

	ward, err := c.WardForecast(t.Context(), "secret", 6, 7)
	require.NoError(t, err)
	assert.Len(t, ward, 7)

	sum, err := c.Summary(t.Context(), "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, sum.HighestLeakageWard)

	_, err = c.CityForecast(t.Context(), "wrong", 7)
	var apiErr *forecastapi.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestMockServer_UnknownWard(t *testing.T) {
	srv := httptest.NewServer(newRouter(newGenerator(baseDate), ""))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/predict/ward/99/7")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMockServer_RejectsOversizedHorizon(t *testing.T) {
	srv := httptest.NewServer(newRouter(newGenerator(baseDate), ""))
	t.Cleanup(srv.Close)

	for _, path := range []string{
		"/predict/city/1000000000",
		"/predict/ward/3/366",
		"/alerts/scan?threshold=10&days=1000000000",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}

	resp, err := http.Get(srv.URL + "/predict/city/365")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// The reported peak is the largest daily percentage in the scanned window.
func TestGenerator_ScanPeakMatchesForecast(t *testing.T) {
	g := newGenerator(baseDate)
	for _, res := range g.scan(10, 30) {
		rows := g.wardForecast(res.WardNo, 30)
		want := rows[0]
		for _, r := range rows[1:] {
			if r.LeakagePercentage > want.LeakagePercentage {
				want = r
			}
		}
		assert.InDelta(t, want.LeakagePercentage, res.MaxLeakagePct, 1e-9, "ward %d", res.WardNo)
		assert.Equal(t, want.Date, res.PeakDate, "ward %d", res.WardNo)
	}
}

func TestWriteFixtures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFixtures(newGenerator(baseDate), dir, []int{7}))

	for _, name := range []string{"summary.json", "city_7.json", "scan_7.json"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	data, err := os.ReadFile(filepath.Join(dir, "scan_7.json"))
	require.NoError(t, err)
	var scan []domain.WardScanResult
	require.NoError(t, json.Unmarshal(data, &scan))
	assert.Len(t, scan, len(wardNames))
}

func TestParseHorizons(t *testing.T) {
	got, err := parseHorizons("7, 30,90")
	require.NoError(t, err)
	assert.Equal(t, []int{7, 30, 90}, got)

	_, err = parseHorizons("7,x")
	require.Error(t, err)

	_, err = parseHorizons("7,366")
	require.Error(t, err)
}
