package repository

import (
	"context"

	"SmcDesk/internal/domain/models"
	domrepo "SmcDesk/internal/domain/repository"
	pkgkafka "SmcDesk/pkg/kafka"
)

// KafkaOrderPublisher publishes order transitions keyed by order id so that
// every transition of one order lands on the same partition.
type KafkaOrderPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaOrderPublisher(producer *pkgkafka.Producer, topic string) *KafkaOrderPublisher {
	return &KafkaOrderPublisher{producer: producer, topic: topic}
}

func (p *KafkaOrderPublisher) PublishTransitions(ctx context.Context, transitions []models.Transition) error {
	if len(transitions) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(transitions))
	for i, tr := range transitions {
		msgs[i] = pkgkafka.Message{Key: []byte(tr.OrderID), Value: tr}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// KafkaCandlePublisher publishes closed candles keyed by symbol|tf.
type KafkaCandlePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaCandlePublisher(producer *pkgkafka.Producer, topic string) *KafkaCandlePublisher {
	return &KafkaCandlePublisher{producer: producer, topic: topic}
}

func (p *KafkaCandlePublisher) PublishClosedCandle(ctx context.Context, ev models.ClosedCandleEvent) error {
	key := domrepo.Partition{Symbol: ev.Symbol, Timeframe: ev.Timeframe}.String()
	return p.producer.Publish(ctx, p.topic, []byte(key), ev)
}

var (
	_ domrepo.OrderEventPublisher   = (*KafkaOrderPublisher)(nil)
	_ domrepo.ClosedCandlePublisher = (*KafkaCandlePublisher)(nil)
)
