package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// LogPublisher writes messages to the log. It stands in for a push
// provider in development.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, msg Message) error {
	p.log.Info("notification",
		zap.String("message_id", msg.ID.String()),
		zap.String("user_id", msg.UserID.String()),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// KafkaPublisher hands messages to the push-delivery consumer over Kafka,
// keyed by user so one user's alerts stay ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.UserID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "message_id", Value: []byte(msg.ID.String())},
		},
		Time: msg.CreatedAt,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type BreakerConfig struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// BreakerPublisher stops calling a failing publisher until OpenTimeout
// passes, so an unreachable broker does not stall the worker on every message.
type BreakerPublisher struct {
	inner Publisher
	cb    *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerPublisher(inner Publisher, cfg BreakerConfig, log *zap.Logger) *BreakerPublisher {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	settings := gobreaker.Settings{
		Name:        "notification-publisher",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &BreakerPublisher{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (p *BreakerPublisher) Publish(ctx context.Context, msg Message) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.inner.Publish(ctx, msg)
	})
	return err
}

func (p *BreakerPublisher) Close() error {
	return p.inner.Close()
}
