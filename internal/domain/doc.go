// Package domain models the ward leakage forecasts and the alerts derived from them.
//
// # Data Source
//
// Forecasts come from a remote prediction API that serves one row per forecast day
// for the whole city or for a single ward, and a scan endpoint that summarises every
// ward over a window of days. Wire names use the API's Title_Snake convention
// (e.g. "Leakage_Percentage", "Avg_Leakage_Pct") and are mapped onto Go fields here.
//
// # Severity classification
//
// Leakage percentage is the share of supplied water classified as lost, 0–100.
// A single breakpoint table turns it into a level, inclusive on the lower bound:
//
//	≥20% CRITICAL | ≥15% HIGH | ≥10% MODERATE | otherwise NORMAL
//
// See [Classify]. The same table colours city summaries, ward results and
// notifications, so it must not be duplicated elsewhere.
//
// # Levels
//
// NORMAL only appears on classifier output and ward scan results. Notifications and
// toasts use CRITICAL, HIGH, MODERATE, INFO and SUCCESS; INFO is the default when a
// producer leaves the level empty.
//
// # Scan generations
//
// Every ward-alert and scan-summary notification carries the horizon (in days) of
// the scan that produced it. All notifications sharing a horizon form one scan
// generation, which is replaced as a whole when a new scan for that horizon starts.
package domain
