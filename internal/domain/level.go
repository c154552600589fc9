package domain

// Level is the severity attached to ward results, notifications and toasts.
type Level string

const (
	LevelCritical Level = "CRITICAL"
	LevelHigh     Level = "HIGH"
	LevelModerate Level = "MODERATE"
	LevelNormal   Level = "NORMAL"
	LevelInfo     Level = "INFO"
	LevelSuccess  Level = "SUCCESS"
)

// Leakage percentage breakpoints, inclusive on the lower bound.
const (
	CriticalPct = 20.0
	HighPct     = 15.0
	ModeratePct = 10.0
)

// Classify maps a leakage percentage to a severity level.
func Classify(pct float64) Level {
	switch {
	case pct >= CriticalPct:
		return LevelCritical
	case pct >= HighPct:
		return LevelHigh
	case pct >= ModeratePct:
		return LevelModerate
	default:
		return LevelNormal
	}
}

// ValidThreshold reports whether t is a usable leakage threshold: a
// percentage in (0, 100]. NaN is rejected.
func ValidThreshold(t float64) bool {
	return t > 0 && t <= 100
}

// Alerting reports whether a ward at this level needs attention.
func (l Level) Alerting() bool {
	return l != LevelNormal
}

// OrDefault returns l, or INFO when l is empty.
func (l Level) OrDefault() Level {
	if l == "" {
		return LevelInfo
	}
	return l
}

// ParseLevel validates a level name. Matching is exact; names are upper case on the wire.
func ParseLevel(s string) (Level, bool) {
	switch l := Level(s); l {
	case LevelCritical, LevelHigh, LevelModerate, LevelNormal, LevelInfo, LevelSuccess:
		return l, true
	}
	return "", false
}
