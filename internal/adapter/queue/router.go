package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aq2208/storefront-api/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrDisabled = errors.New("rabbitmq disabled")

// Channel is the subset of *amqp.Channel the router consumes through.
type Channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
}

// Router manages multiple consumers (one per registered queue) on a single AMQP channel.
type Router struct {
	ch            Channel
	prefetch      int
	callTimeout   time.Duration
	requeueOnErr  bool
	registrations []registration
}

type registration struct {
	queueName   string
	handler     Handler
	consumerTag string
}

type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption          { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(b bool) RouterOption          { return func(r *Router) { r.requeueOnErr = b } }

// NewRouter constructs a Router. Defaults: prefetch=50, timeout=10s, requeueOnErr=true.
func NewRouter(ch Channel, opts ...RouterOption) *Router {
	r := &Router{
		ch:           ch,
		prefetch:     50,
		callTimeout:  10 * time.Second,
		requeueOnErr: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register associates a queue with a handler. Call multiple times for multiple queues.
func (r *Router) Register(queueName string, h Handler) {
	r.registrations = append(r.registrations, registration{
		queueName:   queueName,
		handler:     h,
		consumerTag: "c_" + queueName,
	})
}

// Start begins consuming and returns; one goroutine runs per queue.
// Cancelling ctx cancels every consumer.
func (r *Router) Start(ctx context.Context) error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return err
	}
	log := logging.FromCtx(ctx).With("component", "rmq-router")

	for _, reg := range r.registrations {
		deliveries, err := r.ch.Consume(
			reg.queueName,
			reg.consumerTag,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return err
		}
		go r.consume(ctx, log.With("queue", reg.queueName, "tag", reg.consumerTag), reg.handler, deliveries)
	}

	go func() {
		<-ctx.Done()
		for _, reg := range r.registrations {
			if err := r.ch.Cancel(reg.consumerTag, false); err != nil {
				log.Warn("cancel consumer", "tag", reg.consumerTag, "err", err)
			}
		}
	}()
	return nil
}

func (r *Router) consume(ctx context.Context, log *slog.Logger, h Handler, msgs <-chan amqp.Delivery) {
	for d := range msgs {
		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		err := h.Handle(callCtx, d)
		cancel()

		if err != nil {
			requeue := r.requeueOnErr && !errors.Is(err, ErrPoison)
			log.Warn("handler error", "rk", d.RoutingKey, "err", err, "requeue", requeue)
			_ = d.Nack(false, requeue)
			continue
		}
		_ = d.Ack(false)
	}
	log.Info("consumer stopped")
}
