package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aq2208/storefront-api/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Topology names the exchange, queue and binding used for order.placed.
type Topology struct {
	Exchange   string
	Queue      string
	RoutingKey string
}

func DefaultTopology() Topology {
	return Topology{
		Exchange:   "storefront.events",
		Queue:      "order.placed.q",
		RoutingKey: usecase.ChannelOrderPlaced,
	}
}

// Declare sets up the exchange, queue, and binding once at startup.
func Declare(ch *amqp.Channel, t Topology) error {
	if err := ch.ExchangeDeclare(
		t.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		t.Queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, t.RoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitProducer implements usecase.OrderPlacedPublisher.
type RabbitProducer struct {
	ch       publisher
	exchange string
	key      string
}

// NewRabbitProducer declares the topology and enables publisher confirms on ch.
func NewRabbitProducer(ch *amqp.Channel, t Topology) (*RabbitProducer, error) {
	if err := Declare(ch, t); err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}
	return newProducer(ch, t), nil
}

func newProducer(ch publisher, t Topology) *RabbitProducer {
	return &RabbitProducer{ch: ch, exchange: t.Exchange, key: t.RoutingKey}
}

// PublishPlaced sends an "order.placed" event to the exchange.
func (p *RabbitProducer) PublishPlaced(ctx context.Context, msg usecase.OrderPlacedMsg) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.OrderID,
		Timestamp:    msg.PlacedAt,
		Type:         usecase.ChannelOrderPlaced,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, p.key, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

var _ usecase.OrderPlacedPublisher = (*RabbitProducer)(nil)

// NopPublisher drops events; used when RabbitMQ is disabled. Orders stay pending in the outbox.
type NopPublisher struct{}

func (NopPublisher) PublishPlaced(context.Context, usecase.OrderPlacedMsg) error {
	return ErrDisabled
}
