package domain

// ScanDaysCap is the longest window the ward-scan endpoint accepts.
const ScanDaysCap = 90

// WardScanResult summarises one ward's leakage over a scan window.
type WardScanResult struct {
	WardNo        int     `json:"Ward_No"`
	WardName      string  `json:"Ward_Name"`
	Level         Level   `json:"Level"`
	AvgLeakagePct float64 `json:"Avg_Leakage_Pct"`
	MaxLeakagePct float64 `json:"Max_Leakage_Pct"`
	PeakDate      string  `json:"Peak_Date"`
	DaysExceeding int     `json:"Days_Exceeding"`
}

// Normalize fills defaults for fields the scan endpoint may omit.
func (w WardScanResult) Normalize() WardScanResult {
	w.Level = w.Level.OrDefault()
	if w.WardName == "" {
		w.WardName = DefaultWardName
	}
	return w
}

// ScanDays caps a forecast horizon to the scan endpoint's window.
func ScanDays(horizon int) int {
	return min(horizon, ScanDaysCap)
}

// PartitionWards splits results into alerting and normal wards, keeping order.
func PartitionWards(results []WardScanResult) (alerting, normal []WardScanResult) {
	for _, w := range results {
		if w.Level.Alerting() {
			alerting = append(alerting, w)
		} else {
			normal = append(normal, w)
		}
	}
	return alerting, normal
}
