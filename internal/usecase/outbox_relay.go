package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aq2208/storefront-api/internal/logging"
)

// OutboxRelay republishes order.placed messages whose inline publish after
// checkout did not go through.
type OutboxRelay struct {
	outbox  OutboxRepo
	events  OrderPlacedPublisher
	batch   int
	backoff time.Duration
	now     func() time.Time
}

func NewOutboxRelay(outbox OutboxRepo, events OrderPlacedPublisher, batch int, backoff time.Duration) *OutboxRelay {
	if batch <= 0 {
		batch = 50
	}
	if backoff <= 0 {
		backoff = 30 * time.Second
	}
	return &OutboxRelay{outbox: outbox, events: events, batch: batch, backoff: backoff, now: time.Now}
}

// Drain publishes one batch of pending rows and returns how many were sent.
func (r *OutboxRelay) Drain(ctx context.Context) (int, error) {
	msgs, err := r.outbox.ListPending(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	log := logging.FromCtx(ctx)
	sent := 0
	for _, m := range msgs {
		if err := r.publish(ctx, m); err != nil {
			log.Warn("outbox relay publish", "outbox_id", m.ID, "channel", m.Channel, "err", err)
			if rerr := r.outbox.Retry(ctx, m.ID, r.now().Add(r.backoff)); rerr != nil {
				log.Error("outbox retry", "outbox_id", m.ID, "err", rerr)
			}
			continue
		}
		if err := r.outbox.MarkSent(ctx, m.ID); err != nil {
			log.Error("mark outbox sent", "outbox_id", m.ID, "err", err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (r *OutboxRelay) publish(ctx context.Context, m OutboxMessage) error {
	if m.Channel != ChannelOrderPlaced {
		return ErrUnknownChannel
	}
	var msg OrderPlacedMsg
	if err := json.Unmarshal(m.Payload, &msg); err != nil {
		return err
	}
	return r.events.PublishPlaced(ctx, msg)
}

// Run drains on every tick until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := r.Drain(ctx); err != nil {
				logging.FromCtx(ctx).Error("outbox relay", "err", err)
			} else if n > 0 {
				logging.FromCtx(ctx).Info("outbox relay sent", "count", n)
			}
		}
	}
}
