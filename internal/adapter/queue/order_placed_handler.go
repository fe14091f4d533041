package queue

import (
	"context"

	"github.com/aq2208/storefront-api/internal/usecase"
)

// FeedTypeOrderPlaced is the live-feed event type pushed to admins for new orders.
const FeedTypeOrderPlaced = "order_placed"

// NewOrderPlacedHandler fans order.placed deliveries out to admin live-feed subscribers
// and to the customer who placed the order.
func NewOrderPlacedHandler(feed usecase.LiveFeed) Handler {
	return JSONHandler[usecase.OrderPlacedMsg]{
		HandleFunc: func(_ context.Context, msg usecase.OrderPlacedMsg) error {
			if msg.OrderID == "" {
				return ErrPoison
			}
			ev := usecase.FeedEvent{Type: FeedTypeOrderPlaced, Data: msg}
			feed.NotifyAdmins(ev)
			if msg.UserID != "" {
				feed.NotifyUser(msg.UserID, ev)
			}
			return nil
		},
	}
}
