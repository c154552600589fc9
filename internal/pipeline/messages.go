package pipeline

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/leakwatch-service/internal/domain"
)

const (
	scanFailedMessage    = "Ward scan failed — check forecast service connection"
	predictFailedMessage = "Prediction failed — check forecast service connection"

	summaryWardName  = "Scan Summary"
	allClearWardName = "All Clear"
)

// levelCounts tallies a scan's wards by level.
type levelCounts struct {
	critical, high, moderate, normal int
}

func countLevels(alerting []domain.WardScanResult, normal int) levelCounts {
	c := levelCounts{normal: normal}
	for _, w := range alerting {
		switch w.Level {
		case domain.LevelCritical:
			c.critical++
		case domain.LevelHigh:
			c.high++
		case domain.LevelModerate:
			c.moderate++
		}
	}
	return c
}

// parts lists non-zero counts worst first. NORMAL is always present.
func (c levelCounts) parts() string {
	var p []string
	if c.critical > 0 {
		p = append(p, fmt.Sprintf("%d CRITICAL", c.critical))
	}
	if c.high > 0 {
		p = append(p, fmt.Sprintf("%d HIGH", c.high))
	}
	if c.moderate > 0 {
		p = append(p, fmt.Sprintf("%d MODERATE", c.moderate))
	}
	p = append(p, fmt.Sprintf("%d NORMAL", c.normal))
	return strings.Join(p, " · ")
}

// worst is the summary level: CRITICAL, then HIGH, otherwise MODERATE.
func (c levelCounts) worst() domain.Level {
	switch {
	case c.critical > 0:
		return domain.LevelCritical
	case c.high > 0:
		return domain.LevelHigh
	default:
		return domain.LevelModerate
	}
}

func wardNotification(w domain.WardScanResult, days int) domain.Notification {
	return domain.Notification{
		Kind:     domain.KindWardAlert,
		WardNo:   domain.Ptr(w.WardNo),
		WardName: w.WardName,
		Level:    w.Level,
		Days:     domain.Ptr(days),
		AvgPct:   domain.Ptr(w.AvgLeakagePct),
		MaxPct:   domain.Ptr(w.MaxLeakagePct),
		PeakDate: domain.Ptr(w.PeakDate),
		DaysExc:  domain.Ptr(w.DaysExceeding),
		Message: fmt.Sprintf("Ward %d · %s: %.1f%% avg leakage over %d days",
			w.WardNo, w.WardName, w.AvgLeakagePct, days),
		Detail: domain.Ptr(fmt.Sprintf("Peak: %.1f%% on %s · %d/%d days exceed threshold",
			w.MaxLeakagePct, w.PeakDate, w.DaysExceeding, domain.ScanDays(days))),
	}
}

func wardToast(w domain.WardScanResult) string {
	return fmt.Sprintf("Ward %d · %s — %.1f%% avg leakage", w.WardNo, w.WardName, w.AvgLeakagePct)
}

func summaryToast(c levelCounts, days int) string {
	return fmt.Sprintf("%d-day scan complete — %s", days, c.parts())
}

func summaryNotification(c levelCounts, alerting, days int) domain.Notification {
	return domain.Notification{
		Kind:     domain.KindScanSummary,
		WardName: summaryWardName,
		Level:    c.worst(),
		Days:     domain.Ptr(days),
		Message:  fmt.Sprintf("%d-day forecast: %d wards need attention", days, alerting),
		Detail:   domain.Ptr(c.parts()),
	}
}

func allClearToast(wards, days int) string {
	return fmt.Sprintf("All %d wards normal — %d-day leakage within safe limits", wards, days)
}

func allClearNotification(wards, days int, threshold float64) domain.Notification {
	return domain.Notification{
		Kind:     domain.KindScanSummary,
		WardName: allClearWardName,
		Level:    domain.LevelSuccess,
		Days:     domain.Ptr(days),
		Message:  fmt.Sprintf("All %d wards within normal range for %d-day forecast", wards, days),
		Detail:   domain.Ptr(fmt.Sprintf("No wards exceed %g%% leakage threshold", threshold)),
	}
}

// cityToast picks the toast shown once a city forecast arrives.
func cityToast(s domain.ForecastSummary, days int) (string, domain.Level) {
	switch {
	case s.CriticalDays > 0:
		return fmt.Sprintf("City %d-day: %d CRITICAL days (≥20%% leakage) detected!", days, s.CriticalDays), domain.LevelCritical
	case s.HighDays > 0:
		return fmt.Sprintf("City %d-day: %d HIGH days (≥15%%) — avg %.1f%%", days, s.HighDays, s.AvgLeakagePct), domain.LevelHigh
	default:
		return fmt.Sprintf("City %d-day forecast loaded — avg leakage %.1f%%", days, s.AvgLeakagePct), domain.LevelSuccess
	}
}
