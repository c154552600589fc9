package main

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/leakwatch-service/internal/domain"
)

var wardNames = []string{
	"Panvel", "New Panvel East", "New Panvel West", "Kalamboli", "Kamothe",
	"Kharghar", "Taloja", "Roadpali", "Khanda Colony", "Karanjade",
	"Nere", "Vichumbe", "Usarli", "Adai", "Akurli",
	"Kolkhe", "Palaspe", "Shedung", "Ajivali", "Chipale",
}

// generator produces repeatable forecasts: the same ward and day always
// yield the same numbers.
type generator struct {
	start time.Time
}

func newGenerator(start time.Time) *generator {
	return &generator{start: start}
}

// wardDay returns supply and leakage in MLD for one ward on day i.
func (g *generator) wardDay(ward, i int) (supply, leakage float64) {
	rng := rand.New(rand.NewPCG(uint64(ward), uint64(i))) //nolint:gosec // fixtures, not secrets
	supply = 1.5 + float64(ward%5)*0.6 + rng.Float64()*0.3

	// Each ward sits around its own baseline; a slow wave plus noise moves it.
	base := 5 + float64((ward*7)%20)
	pct := base + 3*math.Sin(float64(i)/5+float64(ward)) + rng.NormFloat64()
	pct = math.Max(pct, 0.5)
	return supply, supply * pct / 100
}

func (g *generator) date(i int) string {
	return g.start.AddDate(0, 0, i).Format(time.DateOnly)
}

func (g *generator) wardForecast(ward, days int) []domain.ForecastRow {
	rows := make([]domain.ForecastRow, 0, days)
	for i := range days {
		supply, leak := g.wardDay(ward, i)
		rows = append(rows, row(g.date(i), supply, leak))
	}
	return rows
}

func (g *generator) cityForecast(days int) []domain.ForecastRow {
	rows := make([]domain.ForecastRow, 0, days)
	for i := range days {
		var supply, leak float64
		for w := 1; w <= len(wardNames); w++ {
			s, l := g.wardDay(w, i)
			supply += s
			leak += l
		}
		rows = append(rows, row(g.date(i), supply, leak))
	}
	return rows
}

func (g *generator) scan(threshold float64, days int) []domain.WardScanResult {
	days = domain.ScanDays(days)
	out := make([]domain.WardScanResult, 0, len(wardNames))
	for w := 1; w <= len(wardNames); w++ {
		res := domain.WardScanResult{WardNo: w, WardName: wardNames[w-1]}
		var total, peak float64
		for i, r := range g.wardForecast(w, days) {
			total += r.LeakagePercentage
			if r.LeakagePercentage > peak || i == 0 {
				peak = r.LeakagePercentage
				res.PeakDate = r.Date
			}
			if r.LeakagePercentage >= threshold {
				res.DaysExceeding++
			}
		}
		res.MaxLeakagePct = round2(peak)
		res.AvgLeakagePct = round2(total / float64(days))
		res.Level = domain.Classify(res.AvgLeakagePct)
		out = append(out, res)
	}
	return out
}

func (g *generator) summary() domain.CitySummary {
	const history = 30
	hist := newGenerator(g.start.AddDate(0, 0, -history))
	rows := hist.cityForecast(history)

	var supply, leak, pct float64
	for _, r := range rows {
		supply += r.PredictedSupplyMLD
		leak += r.PredictedLeakageMLD
		pct += r.LeakagePercentage
	}

	wards := hist.scan(domain.ModeratePct, history)
	worst := wards[0]
	for _, w := range wards[1:] {
		if w.AvgLeakagePct > worst.AvgLeakagePct {
			worst = w
		}
	}

	return domain.CitySummary{
		LastDataDate:         hist.date(history - 1),
		AvgDailySupplyMLD:    round2(supply / history),
		AvgDailyLeakageMLD:   round2(leak / history),
		AvgLeakagePercentage: round2(pct / history),
		HighestLeakageWard:   worst.WardName,
		HighestLeakageWardNo: worst.WardNo,
		ModelAccuracy:        domain.ModelAccuracy{CitySupplyR2: 0.93, CitySupplyMAE: 0.41, CityConsumptionR2: 0.9, CityLeakageR2: 0.84},
	}
}

func row(date string, supply, leak float64) domain.ForecastRow {
	return domain.ForecastRow{
		Date:                    date,
		PredictedSupplyMLD:      round2(supply),
		PredictedConsumptionMLD: round2(supply - leak),
		PredictedLeakageMLD:     round2(leak),
		LeakagePercentage:       round2(leak / supply * 100),
		SupplyLower:             round2(supply * 0.95),
		SupplyUpper:             round2(supply * 1.05),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
