package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	pkgkafka "PriceCast/pkg/kafka"
)

type publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaForecastPublisher publishes forecast results keyed by symbol, so all
// results of one symbol land on one partition.
type KafkaForecastPublisher struct {
	producer publisher
	topic    string
}

// NewKafkaForecastPublisher creates the Kafka result publisher.
func NewKafkaForecastPublisher(producer *pkgkafka.Producer, topic string) domrepo.ForecastPublisher {
	return &KafkaForecastPublisher{producer: producer, topic: topic}
}

func (p *KafkaForecastPublisher) Publish(ctx context.Context, res *models.ForecastResult) error {
	if res == nil {
		return nil
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(res.Symbol), res); err != nil {
		return fmt.Errorf("publish forecast %s: %w", res.ID, err)
	}
	return nil
}

func (p *KafkaForecastPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopForecastPublisher drops results; used when Kafka is disabled.
type NopForecastPublisher struct{}

func (NopForecastPublisher) Publish(context.Context, *models.ForecastResult) error { return nil }
func (NopForecastPublisher) Close() error                                          { return nil }

// KafkaRequestQueue enqueues forecast requests for the consumer side.
type KafkaRequestQueue struct {
	producer publisher
	topic    string
}

func NewKafkaRequestQueue(producer *pkgkafka.Producer, topic string) *KafkaRequestQueue {
	return &KafkaRequestQueue{producer: producer, topic: topic}
}

// Enqueue publishes req keyed by a fresh request id, which is returned.
func (q *KafkaRequestQueue) Enqueue(ctx context.Context, req models.ForecastRequest) (string, error) {
	id := uuid.NewString()
	if err := q.producer.Publish(ctx, q.topic, []byte(id), req); err != nil {
		return "", fmt.Errorf("enqueue forecast %s: %w", req.Symbol, err)
	}
	return id, nil
}
