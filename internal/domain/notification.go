package domain

import (
	"time"
)

// DefaultWardName labels notifications that are not tied to a ward.
const DefaultWardName = "City"

// NotificationKind tags which producer a notification came from.
type NotificationKind string

const (
	KindWardAlert   NotificationKind = "ward_alert"
	KindScanSummary NotificationKind = "scan_summary"
	KindSystem      NotificationKind = "system"
)

// Notification is one persistent alert record in the notification feed.
// Optional fields are nil when the producer has nothing to report.
type Notification struct {
	ID        int64            `json:"id"`
	Kind      NotificationKind `json:"kind"`
	WardNo    *int             `json:"wardNo"`
	WardName  string           `json:"wardName"`
	Level     Level            `json:"level"`
	Message   string           `json:"message"`
	Detail    *string          `json:"detail"`
	Days      *int             `json:"days"` // horizon of the scan generation
	AvgPct    *float64         `json:"avgPct"`
	MaxPct    *float64         `json:"maxPct"`
	PeakDate  *string          `json:"peakDate"`
	DaysExc   *int             `json:"daysExc"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"read"`
}

// InHorizon reports whether the notification belongs to the scan generation for days.
func (n Notification) InHorizon(days int) bool {
	return n.Days != nil && *n.Days == days
}

// WithDefaults fills the level, ward name and kind when the producer left them empty.
func (n Notification) WithDefaults() Notification {
	n.Level = n.Level.OrDefault()
	if n.WardName == "" {
		n.WardName = DefaultWardName
	}
	if n.Kind == "" {
		switch {
		case n.WardNo != nil:
			n.Kind = KindWardAlert
		case n.Days != nil:
			n.Kind = KindScanSummary
		default:
			n.Kind = KindSystem
		}
	}
	return n
}

// Ptr returns a pointer to v, for filling optional notification fields.
func Ptr[T any](v T) *T {
	return &v
}
