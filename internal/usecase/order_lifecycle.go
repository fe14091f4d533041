package usecase

import (
	"context"
	"fmt"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/observ"
)

type OrderDetail struct {
	domain.Order
	Payment *domain.Payment
}

type OrderLifecycle struct {
	orders   OrderRepo
	payments PaymentRepo
	cache    OrderCache
	events   StatusChangedPublisher
	now      func() time.Time
}

func NewOrderLifecycle(orders OrderRepo, payments PaymentRepo, cache OrderCache, events StatusChangedPublisher) *OrderLifecycle {
	return &OrderLifecycle{orders: orders, payments: payments, cache: cache, events: events, now: time.Now}
}

// SetStatus moves an order along the fulfillment graph. Setting the current status again is a no-op.
func (l *OrderLifecycle) SetStatus(ctx context.Context, p domain.Principal, orderID, status string) (*domain.Order, error) {
	if !p.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}
	next, err := domain.ParseStatus(status)
	if err != nil {
		return nil, NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	o, err := l.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", orderID, err)
	}
	if o.Status == next {
		return o, nil
	}
	if !o.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}

	ok, err := l.orders.UpdateStatusIf(ctx, o.ID, o.Status, next)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("order %s: %w", o.ID, ErrConflict)
	}

	from := o.Status
	o.Status = next
	o.UpdatedAt = l.now()
	observ.StatusTransition(string(from), string(next))

	log := logging.FromCtx(ctx).With("order_id", o.ID, "from", from, "to", next)
	log.Info("order status changed", "admin_id", p.UserID)

	if l.cache != nil {
		if err := l.cache.SetStatus(ctx, o.ID, CachedStatus{UserID: o.UserID, Status: next}); err != nil {
			log.Warn("refresh status cache", "err", err)
			if err := l.cache.Invalidate(ctx, o.ID); err != nil {
				log.Error("invalidate status cache", "err", err)
			}
		}
	}
	if l.events != nil {
		err := l.events.PublishStatusChanged(ctx, OrderStatusChangedMsg{
			OrderID:   o.ID,
			UserID:    o.UserID,
			From:      string(from),
			Status:    string(next),
			ChangedAt: o.UpdatedAt,
		})
		if err != nil {
			log.Warn("publish order.status_changed", "err", err)
		}
	}
	return o, nil
}

// GetOrder returns the order with its payment to its owner or an admin.
func (l *OrderLifecycle) GetOrder(ctx context.Context, p domain.Principal, orderID string) (*OrderDetail, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	o, err := l.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", orderID, err)
	}
	if !p.Owns(o.UserID) {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrUnauthorized)
	}

	d := &OrderDetail{Order: *o}
	if l.payments != nil {
		pay, err := l.payments.GetByOrderID(ctx, o.ID)
		switch {
		case err == nil:
			d.Payment = pay
		case isNotFound(err):
			logging.FromCtx(ctx).Warn("order without payment", "order_id", o.ID)
		default:
			return nil, fmt.Errorf("payment for %s: %w", o.ID, err)
		}
	}
	return d, nil
}

// GetStatus serves the status from cache, falling back to the store.
func (l *OrderLifecycle) GetStatus(ctx context.Context, p domain.Principal, orderID string) (domain.Status, error) {
	if err := requireUser(p); err != nil {
		return "", err
	}
	if l.cache != nil {
		cs, ok, err := l.cache.GetStatus(ctx, orderID)
		if err != nil {
			logging.FromCtx(ctx).Warn("read status cache", "order_id", orderID, "err", err)
		}
		if ok {
			if !p.Owns(cs.UserID) {
				return "", fmt.Errorf("order %s: %w", orderID, ErrUnauthorized)
			}
			return cs.Status, nil
		}
	}

	o, err := l.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("order %s: %w", orderID, err)
	}
	if !p.Owns(o.UserID) {
		return "", fmt.Errorf("order %s: %w", orderID, ErrUnauthorized)
	}
	if l.cache != nil {
		if err := l.cache.SetStatus(ctx, o.ID, CachedStatus{UserID: o.UserID, Status: o.Status}); err != nil {
			logging.FromCtx(ctx).Warn("populate status cache", "order_id", o.ID, "err", err)
		}
	}
	return o.Status, nil
}

// ListMyOrders returns the caller's orders, newest first.
func (l *OrderLifecycle) ListMyOrders(ctx context.Context, p domain.Principal) ([]domain.Order, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	orders, err := l.orders.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
