package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/plantops/pkg/logger"
)

// Topics names the topics the publisher writes to
type Topics struct {
	Notifications string
	Departments   string
}

// Publisher wraps Kafka producer
type Publisher struct {
	producer sarama.SyncProducer
	topics   Topics
}

// NewPublisher creates a new Kafka publisher
func NewPublisher(brokers []string, topics Topics) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Msg("Kafka publisher initialized")

	return NewPublisherWithProducer(producer, topics), nil
}

// NewPublisherWithProducer creates a publisher over an existing producer
func NewPublisherWithProducer(producer sarama.SyncProducer, topics Topics) *Publisher {
	return &Publisher{producer: producer, topics: topics}
}

// PublishNotification publishes a notification event keyed by its entity
func (p *Publisher) PublishNotification(ctx context.Context, event NotificationEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.EventType = EventTypeNotification

	key := fmt.Sprintf("%s_%d", event.EntityType, event.EntityID)
	return p.publish(ctx, p.topics.Notifications, key, event.EventType, event.EventID, event,
		attribute.String("notification.kind", event.Kind),
		attribute.Int64("entity.id", int64(event.EntityID)),
	)
}

// TreeChanged publishes a department tree change
func (p *Publisher) TreeChanged(ctx context.Context, departmentID, actorID uint) error {
	event := DepartmentTreeChangedEvent{
		EventID:      uuid.NewString(),
		EventType:    EventTypeDepartmentTreeChanged,
		DepartmentID: departmentID,
		ActorID:      actorID,
		Timestamp:    time.Now().UTC(),
	}
	return p.publish(ctx, p.topics.Departments, "departments", event.EventType, event.EventID, event,
		attribute.Int64("department.id", int64(departmentID)),
	)
}

func (p *Publisher) publish(ctx context.Context, topic, key, eventType, eventID string, payload any, attrs ...attribute.KeyValue) error {
	tracer := otel.Tracer("kafka-publisher")
	ctx, span := tracer.Start(ctx, "kafka.publish."+eventType,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", topic),
			attribute.String("messaging.destination_kind", "topic"),
			attribute.String("event.type", eventType),
			attribute.String("event.id", eventID),
		),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	eventBytes, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Inject trace context into Kafka headers
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(eventType)},
		{Key: []byte("event_id"), Value: []byte(eventID)},
	}
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(eventBytes),
		Headers: headers,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to send message")
		logger.Error(ctx).
			Err(err).
			Str("topic", topic).
			Str("event_type", eventType).
			Msg("Failed to publish event")
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	span.SetStatus(codes.Ok, "Event published successfully")

	logger.Debug(ctx).
		Str("event_id", eventID).
		Str("event_type", eventType).
		Str("topic", topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Event published")
	return nil
}

// Close closes the Kafka producer
func (p *Publisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
