package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

type countingCache struct{ n int }

func (c *countingCache) Invalidate() { c.n++ }

func TestPublishThenDispatchTreeChanged(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	var sent *sarama.ProducerMessage
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		sent = msg
		return nil
	})
	publisher := NewPublisherWithProducer(producer, Topics{Notifications: "notifications", Departments: "departments"})

	if err := publisher.TreeChanged(context.Background(), 4, 9); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := publisher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if sent.Topic != "departments" {
		t.Fatalf("expected departments topic, got %s", sent.Topic)
	}

	value, _ := sent.Value.Encode()
	message := &sarama.ConsumerMessage{Topic: sent.Topic, Value: value}
	for _, h := range sent.Headers {
		header := h
		message.Headers = append(message.Headers, &header)
	}

	cache := &countingCache{}
	consumer := NewConsumerWithGroup(nil, "plantops", []string{"departments"})
	consumer.RegisterHandler(EventTypeDepartmentTreeChanged, TreeChangedHandler(cache))

	if err := consumer.Dispatch(context.Background(), message); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if cache.n != 1 {
		t.Fatalf("expected one invalidation, got %d", cache.n)
	}
}

func TestDispatch(t *testing.T) {
	consumer := NewConsumerWithGroup(nil, "plantops", nil)
	failing := errors.New("boom")
	consumer.RegisterHandler("fails", func(ctx context.Context, payload []byte) error { return failing })

	header := func(v string) []*sarama.RecordHeader {
		return []*sarama.RecordHeader{{Key: []byte("event_type"), Value: []byte(v)}}
	}

	t.Run("missing event type", func(t *testing.T) {
		if err := consumer.Dispatch(context.Background(), &sarama.ConsumerMessage{}); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("unregistered type is skipped", func(t *testing.T) {
		if err := consumer.Dispatch(context.Background(), &sarama.ConsumerMessage{Headers: header("other")}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("handler error is wrapped", func(t *testing.T) {
		err := consumer.Dispatch(context.Background(), &sarama.ConsumerMessage{Headers: header("fails")})
		if !errors.Is(err, failing) {
			t.Fatalf("expected wrapped handler error, got %v", err)
		}
	})

	t.Run("malformed tree event", func(t *testing.T) {
		consumer.RegisterHandler(EventTypeDepartmentTreeChanged, TreeChangedHandler(&countingCache{}))
		payload, _ := json.Marshal("not an object")
		err := consumer.Dispatch(context.Background(), &sarama.ConsumerMessage{
			Headers: header(EventTypeDepartmentTreeChanged),
			Value:   payload,
		})
		if err == nil {
			t.Fatal("expected unmarshal error")
		}
	})
}
