package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/plantops/pkg/logger"
)

// Consumer wraps Kafka consumer
type Consumer struct {
	consumer      sarama.ConsumerGroup
	groupID       string
	topics        []string
	handlers      map[string]EventHandler
	handlersMutex sync.RWMutex
}

// EventHandler handles the raw payload of one event type
type EventHandler func(ctx context.Context, payload []byte) error

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, groupID string, topics []string) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("group_id", groupID).
		Strs("topics", topics).
		Msg("Kafka consumer initialized")

	return NewConsumerWithGroup(group, groupID, topics), nil
}

// NewConsumerWithGroup creates a consumer over an existing consumer group
func NewConsumerWithGroup(group sarama.ConsumerGroup, groupID string, topics []string) *Consumer {
	return &Consumer{
		consumer: group,
		groupID:  groupID,
		topics:   topics,
		handlers: make(map[string]EventHandler),
	}
}

// RegisterHandler registers an event handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler EventHandler) {
	c.handlersMutex.Lock()
	defer c.handlersMutex.Unlock()
	c.handlers[eventType] = handler
	logger.Logger.Info().
		Str("event_type", eventType).
		Msg("Event handler registered")
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) {
	handler := &consumerGroupHandler{consumer: c}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Logger.Info().Msg("Consumer context cancelled, stopping...")
				return
			default:
				if err := c.consumer.Consume(ctx, c.topics, handler); err != nil {
					logger.Logger.Error().
						Err(err).
						Msg("Error from consumer")
				}
			}
		}
	}()

	go func() {
		for err := range c.consumer.Errors() {
			logger.Logger.Error().
				Err(err).
				Msg("Consumer error")
		}
	}()

	logger.Logger.Info().
		Strs("topics", c.topics).
		Str("group_id", c.groupID).
		Msg("Kafka consumer started")
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	if c.consumer != nil {
		return c.consumer.Close()
	}
	return nil
}

// Dispatch routes one message to its registered handler
func (c *Consumer) Dispatch(ctx context.Context, message *sarama.ConsumerMessage) error {
	carrier := propagation.MapCarrier{}
	eventType, eventID := "", ""
	for _, header := range message.Headers {
		switch key := string(header.Key); key {
		case "traceparent", "tracestate":
			carrier[key] = string(header.Value)
		case "event_type":
			eventType = string(header.Value)
		case "event_id":
			eventID = string(header.Value)
		}
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	tracer := otel.Tracer("kafka-consumer")
	ctx, span := tracer.Start(ctx, "kafka.consume."+eventType,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.source", message.Topic),
			attribute.String("messaging.source_kind", "topic"),
			attribute.Int("messaging.kafka.partition", int(message.Partition)),
			attribute.Int64("messaging.kafka.offset", message.Offset),
			attribute.String("event.type", eventType),
			attribute.String("event.id", eventID),
		),
	)
	defer span.End()

	if eventType == "" {
		span.SetStatus(codes.Error, "Message without event_type header")
		return fmt.Errorf("message at %s/%d/%d has no event_type header", message.Topic, message.Partition, message.Offset)
	}

	c.handlersMutex.RLock()
	handler, exists := c.handlers[eventType]
	c.handlersMutex.RUnlock()
	if !exists {
		span.SetStatus(codes.Error, "No handler registered")
		logger.Debug(ctx).Str("event_type", eventType).Msg("No handler registered for event type")
		return nil
	}

	if err := handler(ctx, message.Value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to handle event")
		return fmt.Errorf("failed to handle %s event %s: %w", eventType, eventID, err)
	}

	span.SetStatus(codes.Ok, "Event handled successfully")
	logger.Debug(ctx).
		Str("event_type", eventType).
		Str("event_id", eventID).
		Msg("Event handled successfully")
	return nil
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.consumer.Dispatch(session.Context(), message); err != nil {
			logger.Error(session.Context()).Err(err).Msg("Failed to process message")
		}
		session.MarkMessage(message, "")
	}
	return nil
}

// Invalidator drops a cached view
type Invalidator interface {
	Invalidate()
}

// TreeChangedHandler invalidates the local department graph when another
// instance edits the tree
func TreeChangedHandler(cache Invalidator) EventHandler {
	return func(ctx context.Context, payload []byte) error {
		var event DepartmentTreeChangedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("failed to unmarshal event: %w", err)
		}
		cache.Invalidate()
		logger.Info(ctx).
			Uint("department_id", event.DepartmentID).
			Uint("actor_id", event.ActorID).
			Msg("Department graph invalidated")
		return nil
	}
}
