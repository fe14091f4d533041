package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/aq2208/storefront-api/internal/usecase"
)

// StatusProducer publishes order.status_changed events keyed by order id,
// so every change of one order lands on the same partition in order.
type StatusProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewStatusProducer(p sarama.SyncProducer, topic string) *StatusProducer {
	return &StatusProducer{producer: p, topic: topic}
}

func (p *StatusProducer) PublishStatusChanged(ctx context.Context, msg usecase.OrderStatusChangedMsg) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(msg.OrderID),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(usecase.ChannelOrderStatusChanged)},
		},
	})
	if err != nil {
		return fmt.Errorf("send %s: %w", p.topic, err)
	}
	return nil
}

func (p *StatusProducer) Close() error { return p.producer.Close() }

var _ usecase.StatusChangedPublisher = (*StatusProducer)(nil)

// NopStatusPublisher is used when Kafka is disabled.
type NopStatusPublisher struct{}

func (NopStatusPublisher) PublishStatusChanged(context.Context, usecase.OrderStatusChangedMsg) error {
	return nil
}
