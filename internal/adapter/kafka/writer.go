// Package kafka mirrors the notification feed to a Kafka topic so other
// services can follow ward alerts without polling the HTTP API.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/leakwatch-service/internal/config"
	"github.com/couchcryptid/leakwatch-service/internal/domain"
	"github.com/couchcryptid/leakwatch-service/internal/observability"
)

// Writer produces notification records to the configured topic. Publish is
// asynchronous and never blocks the caller; delivery failures are logged and
// counted, not retried by the feed.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates an asynchronous Kafka producer for the notifications topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &Writer{logger: logger, metrics: metrics}
	w.writer = &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaNotificationsTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           100 * time.Millisecond,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion:             w.complete,
	}
	return w
}

// Publish queues one notification. It has the shape of a notification store hook.
func (w *Writer) Publish(n domain.Notification) {
	msg, err := serializeToMessage(n)
	if err != nil {
		w.metrics.NotificationsMirror.WithLabelValues("error").Inc()
		w.logger.Warn("serialize notification failed", "id", n.ID, "error", err)
		return
	}
	// Async writers only report errors through Completion.
	if err := w.writer.WriteMessages(context.Background(), msg); err != nil {
		w.metrics.NotificationsMirror.WithLabelValues("error").Inc()
		w.logger.Warn("queue notification failed", "id", n.ID, "error", err)
	}
}

// Close flushes pending messages and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

func (w *Writer) complete(messages []kafkago.Message, err error) {
	if err != nil {
		w.metrics.NotificationsMirror.WithLabelValues("error").Add(float64(len(messages)))
		w.logger.Warn("mirror notifications failed", "count", len(messages), "error", err)
		return
	}
	w.metrics.NotificationsMirror.WithLabelValues("success").Add(float64(len(messages)))
}

// serializeToMessage marshals a Notification into a Kafka message keyed by its ID.
func serializeToMessage(n domain.Notification) (kafkago.Message, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification: %w", err)
	}
	headers := []kafkago.Header{
		{Key: "level", Value: []byte(n.Level)},
		{Key: "kind", Value: []byte(n.Kind)},
		{Key: "created_at", Value: []byte(n.Timestamp.Format(time.RFC3339))},
	}
	if n.Days != nil {
		headers = append(headers, kafkago.Header{Key: "days", Value: []byte(strconv.Itoa(*n.Days))})
	}
	return kafkago.Message{
		Key:     []byte(strconv.FormatInt(n.ID, 10)),
		Value:   data,
		Time:    n.Timestamp,
		Headers: headers,
	}, nil
}
