package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/tair/plantops/internal/integration/attachments"
	"github.com/tair/plantops/internal/integration/labelprinter"
	"github.com/tair/plantops/kafka"
	"github.com/tair/plantops/pkg/config"
	"github.com/tair/plantops/pkg/logger"
)

// Infrastructure holds the connections to external systems. Optional
// backends stay nil when disabled in the configuration.
type Infrastructure struct {
	Config config.Config
	Store  *Store

	Publisher *kafka.Publisher
	Consumer  *kafka.Consumer
	NATS      *nats.Conn
	Redis     *redis.Client
	S3        *s3.Client

	closers []func()
}

// NewInfrastructure connects the store and every enabled backend. On error
// the connections opened so far are closed.
func NewInfrastructure(ctx context.Context, cfg config.Config) (*Infrastructure, error) {
	infra := &Infrastructure{Config: cfg}
	if err := infra.connect(ctx); err != nil {
		infra.Close()
		return nil, err
	}
	return infra, nil
}

func (i *Infrastructure) connect(ctx context.Context) error {
	cfg := i.Config

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		store, err := NewPostgresStore(cfg.Database)
		if err != nil {
			return err
		}
		i.Store = store
		i.onClose(func() { store.Close() })
	case config.StoreDriverMemory:
		i.Store = NewMemoryStore()
		logger.Logger.Warn().Msg("Using in-memory store, data is lost on restart")
	default:
		return fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.Kafka.Enabled {
		publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, kafka.Topics{
			Notifications: cfg.Kafka.NotificationTopic,
			Departments:   cfg.Kafka.DepartmentTopic,
		})
		if err != nil {
			return err
		}
		i.Publisher = publisher
		i.onClose(func() { publisher.Close() })

		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, []string{cfg.Kafka.DepartmentTopic})
		if err != nil {
			return err
		}
		i.Consumer = consumer
		i.onClose(func() { consumer.Close() })
	}

	if cfg.NATS.Enabled {
		nc, err := labelprinter.Connect(cfg.NATS.URL)
		if err != nil {
			return err
		}
		i.NATS = nc
		i.onClose(nc.Close)
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.Addr, err)
		}
		i.Redis = client
		i.onClose(func() { client.Close() })
		logger.Logger.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")
	}

	if cfg.S3.Enabled {
		client, err := attachments.NewS3Client(cfg.S3)
		if err != nil {
			return err
		}
		i.S3 = client
	}

	return nil
}

func (i *Infrastructure) onClose(fn func()) {
	i.closers = append(i.closers, fn)
}

// Close releases the connections in reverse order of opening
func (i *Infrastructure) Close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		i.closers[n]()
	}
	i.closers = nil
}
