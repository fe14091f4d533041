package kafka

import (
	"context"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/usecase"
)

// FeedTypeStatusChanged is the live-feed event type for order status changes.
const FeedTypeStatusChanged = "order_status_changed"

// OrderStatusChangedHandler drops the cached status of the changed order and
// pushes the change to the order's owner and to admins. Events may arrive after
// a newer write, so the cache is only ever invalidated here; the next read
// repopulates it from the database.
type OrderStatusChangedHandler struct {
	Cache usecase.OrderCache // optional
	Feed  usecase.LiveFeed   // optional
}

func NewOrderStatusChangedHandler(cache usecase.OrderCache, feed usecase.LiveFeed) *OrderStatusChangedHandler {
	return &OrderStatusChangedHandler{Cache: cache, Feed: feed}
}

func (h *OrderStatusChangedHandler) Handle(ctx context.Context, ev usecase.OrderStatusChangedMsg) error {
	if _, err := domain.ParseStatus(ev.Status); err != nil {
		logging.FromCtx(ctx).Warn("status event with unknown status", "order_id", ev.OrderID, "status", ev.Status)
		return nil
	}

	if h.Cache != nil {
		if err := h.Cache.Invalidate(ctx, ev.OrderID); err != nil {
			return err
		}
	}
	if h.Feed != nil {
		fe := usecase.FeedEvent{Type: FeedTypeStatusChanged, Data: ev}
		h.Feed.NotifyAdmins(fe)
		if ev.UserID != "" {
			h.Feed.NotifyUser(ev.UserID, fe)
		}
	}
	return nil
}
