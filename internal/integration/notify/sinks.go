package notify

import (
	"context"

	"github.com/tair/plantops/kafka"
	"github.com/tair/plantops/pkg/logger"
)

// NotificationPublisher publishes notification events to a broker
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, event kafka.NotificationEvent) error
}

// KafkaSink forwards events to the notifications topic
type KafkaSink struct {
	publisher NotificationPublisher
}

// NewKafkaSink creates a sink over a Kafka publisher
func NewKafkaSink(publisher NotificationPublisher) *KafkaSink {
	return &KafkaSink{publisher: publisher}
}

// Send publishes event
func (s *KafkaSink) Send(ctx context.Context, event Event) error {
	return s.publisher.PublishNotification(ctx, kafka.NotificationEvent{
		EventID:         event.ID,
		Kind:            string(event.Kind),
		EntityType:      event.EntityType,
		EntityID:        event.EntityID,
		ActorID:         event.ActorID,
		DepartmentScope: event.DepartmentScope,
		Timestamp:       event.OccurredAt,
	})
}

// LogSink writes events to the log. Used when no broker is configured.
type LogSink struct{}

// Send logs event
func (LogSink) Send(ctx context.Context, event Event) error {
	logger.Info(ctx).
		Str("event_id", event.ID).
		Str("kind", string(event.Kind)).
		Str("entity_type", event.EntityType).
		Uint("entity_id", event.EntityID).
		Uint("actor_id", event.ActorID).
		Interface("department_scope", event.DepartmentScope).
		Msg("Notification")
	return nil
}
