package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/usecase"
)

// HandlerFunc processes a decoded event.
type HandlerFunc func(ctx context.Context, ev usecase.OrderStatusChangedMsg) error

// Consumer consumes a topic with a single handler.
type Consumer struct {
	Group  sarama.ConsumerGroup
	Topics []string
	Handle HandlerFunc
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc) *Consumer {
	return &Consumer{
		Group:  group,
		Topics: topics,
		Handle: h,
	}
}

// Start blocks until ctx is cancelled or the group fails.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &cgHandler{handle: c.Handle, log: logging.FromCtx(ctx).With("component", "kafka-consumer")}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			return err
		}
		// Consume returns on rebalance as well as on cancellation.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

type cgHandler struct {
	handle HandlerFunc
	log    *slog.Logger
}

func (h *cgHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *cgHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if h.process(sess.Context(), msg) {
			sess.MarkMessage(msg, "")
		}
	}
	return nil
}

// process reports whether the offset may be committed. Poison messages are
// committed so they are not redelivered; handler failures are not.
func (h *cgHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	var ev usecase.OrderStatusChangedMsg
	if err := json.Unmarshal(msg.Value, &ev); err != nil || ev.OrderID == "" {
		h.log.Warn("kafka decode error", "topic", msg.Topic, "offset", msg.Offset, "err", err)
		return true
	}
	if err := h.handle(ctx, ev); err != nil {
		h.log.Error("handler error", "key", string(msg.Key), "offset", msg.Offset, "err", err)
		return false
	}
	return true
}
