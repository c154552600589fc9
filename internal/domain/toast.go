package domain

import "time"

// Toast is a transient popup message. Toasts are never persisted.
type Toast struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Level     Level     `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
}

// Toast lifetimes, measured from insertion.
const (
	CriticalToastTTL = 7000 * time.Millisecond
	ToastTTL         = 4500 * time.Millisecond
)

// TTL returns how long the toast stays visible before it expires on its own.
func (t Toast) TTL() time.Duration {
	if t.Level == LevelCritical {
		return CriticalToastTTL
	}
	return ToastTTL
}
