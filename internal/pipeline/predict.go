package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/leakwatch-service/internal/domain"
)

// CityForecaster fetches the city-wide forecast.
type CityForecaster interface {
	CityForecast(ctx context.Context, token string, days int) ([]domain.ForecastRow, error)
}

// ForecastRecorder keeps the most recent forecast for the session.
type ForecastRecorder interface {
	Update(rows []domain.ForecastRow, horizon int)
}

// Predictor runs the dashboard's predict action: load the city forecast,
// toast its headline, then scan every ward in the background.
type Predictor struct {
	source    CityForecaster
	session   ForecastRecorder
	scanner   *Scanner
	toasts    ToastPublisher
	logger    *slog.Logger
	threshold float64

	scanning atomic.Int32
	wg       sync.WaitGroup
}

// NewPredictor creates a Predictor. Background scans use threshold; zero
// or less defers to the scanner's default.
func NewPredictor(source CityForecaster, session ForecastRecorder, scanner *Scanner, toasts ToastPublisher, logger *slog.Logger, threshold float64) *Predictor {
	return &Predictor{
		source:    source,
		session:   session,
		scanner:   scanner,
		toasts:    toasts,
		logger:    logger,
		threshold: threshold,
	}
}

// Predict fetches the city forecast for horizon days and records it in the
// session. On success a ward scan is started in the background; it outlives
// ctx's cancellation but keeps its values, including the caller's token.
func (p *Predictor) Predict(ctx context.Context, horizon int, token string) ([]domain.ForecastRow, error) {
	rows, err := p.source.CityForecast(ctx, token, horizon)
	if err != nil {
		p.toasts.Publish(predictFailedMessage, domain.LevelHigh)
		return nil, fmt.Errorf("city forecast for %d days: %w", horizon, err)
	}

	p.session.Update(rows, horizon)
	msg, level := cityToast(domain.SummarizeForecast(rows), horizon)
	p.toasts.Publish(msg, level)
	p.logger.Info("city forecast loaded", "days", horizon, "rows", len(rows))

	scanCtx := context.WithoutCancel(ctx)
	p.scanning.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.scanning.Add(-1)
		p.scanner.Scan(scanCtx, horizon, token, p.threshold)
	}()

	return rows, nil
}

// Scanning reports whether any background ward scan is still waiting on the
// scan endpoint.
func (p *Predictor) Scanning() bool {
	return p.scanning.Load() > 0
}

// Wait blocks until every background scan has returned.
func (p *Predictor) Wait() {
	p.wg.Wait()
}
