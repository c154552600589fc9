package kafka

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/leakwatch-service/internal/config"
	"github.com/couchcryptid/leakwatch-service/internal/domain"
	"github.com/couchcryptid/leakwatch-service/internal/observability"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC)
	n := domain.Notification{
		ID:        42,
		Kind:      domain.KindWardAlert,
		WardNo:    domain.Ptr(4),
		WardName:  "Kharghar",
		Level:     domain.LevelCritical,
		Message:   "Ward 4 · Kharghar: 22.0% avg leakage over 7 days",
		Days:      domain.Ptr(7),
		Timestamp: now,
	}

	msg, err := serializeToMessage(n)
	require.NoError(t, err)

	assert.Equal(t, []byte("42"), msg.Key)
	assert.Equal(t, now, msg.Time)
	assert.Contains(t, string(msg.Value), `"level":"CRITICAL"`)
	assert.Contains(t, string(msg.Value), `"wardNo":4`)

	var decoded domain.Notification
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, n.Message, decoded.Message)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, map[string]string{
		"level":      "CRITICAL",
		"kind":       "ward_alert",
		"created_at": now.Format(time.RFC3339),
		"days":       "7",
	}, headers)
}

func TestSerializeToMessage_NoHorizon(t *testing.T) {
	msg, err := serializeToMessage(domain.Notification{ID: 1, Kind: domain.KindSystem, Level: domain.LevelInfo})
	require.NoError(t, err)

	assert.Len(t, msg.Headers, 3)
	for _, h := range msg.Headers {
		assert.NotEqual(t, "days", h.Key)
	}
}

func TestWriter_CompletionMetrics(t *testing.T) {
	m := observability.NewMetricsForTesting()
	w := NewWriter(&config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaNotificationsTopic: "ward-notifications"}, observability.DiscardLogger(), m)
	t.Cleanup(func() { _ = w.Close() })

	w.complete(make([]kafkago.Message, 3), nil)
	w.complete(make([]kafkago.Message, 2), errors.New("broker unavailable"))

	assert.InDelta(t, 3, testutil.ToFloat64(m.NotificationsMirror.WithLabelValues("success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.NotificationsMirror.WithLabelValues("error")), 0)
	assert.Equal(t, "ward-notifications", w.writer.Topic)
	assert.True(t, w.writer.Async)
}
