package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/observ"
	"github.com/aq2208/storefront-api/internal/pricing"
	"github.com/google/uuid"
)

type CheckoutInput struct {
	Shipping       domain.Shipping
	Zone           string
	IdempotencyKey string
}

// Quote is what the checkout summary shows before the order is placed.
type Quote struct {
	Items []domain.CartItem
	Zone  pricing.Zone
	pricing.Snapshot
}

type CheckoutDeps struct {
	Cart      *CartManager
	Tx        TxRunner
	Orders    OrderRepo
	Outbox    OutboxRepo
	Incidents IncidentRepo
	Idem      IdempotencyStore
	Marker    CartClearMarker
	Events    OrderPlacedPublisher
	Zones     *pricing.Zones
	Calc      pricing.Calculator
}

type Checkout struct {
	CheckoutDeps
	now func() time.Time
}

func NewCheckout(d CheckoutDeps) *Checkout {
	return &Checkout{CheckoutDeps: d, now: time.Now}
}

func (c *Checkout) DeliveryZones() []pricing.Zone { return c.Zones.All() }

// Quote prices the caller's current cart for a zone.
func (c *Checkout) Quote(ctx context.Context, p domain.Principal, zoneID string) (Quote, error) {
	if err := requireUser(p); err != nil {
		return Quote{}, err
	}
	items, err := c.cartItems(ctx, p.UserID)
	if err != nil {
		return Quote{}, err
	}
	zone, err := c.Zones.Lookup(zoneID)
	if err != nil {
		return Quote{}, err
	}
	return c.price(items, zone), nil
}

// cartItems loads the caller's cart with current catalog prices. An empty cart
// is ErrEmptyCart whatever else is wrong with the request.
func (c *Checkout) cartItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	items, missing, err := c.Cart.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("products %s: %w", strings.Join(missing, ","), ErrNotFound)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	return items, nil
}

func (c *Checkout) price(items []domain.CartItem, zone pricing.Zone) Quote {
	return Quote{
		Items:    items,
		Zone:     zone,
		Snapshot: c.Calc.Calculate(pricingLines(items), zone),
	}
}

// PlaceOrder turns the caller's cart into a cash-on-delivery order.
func (c *Checkout) PlaceOrder(ctx context.Context, p domain.Principal, in CheckoutInput) (*domain.Order, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}

	// a replayed key answers with its order even though the cart is empty by now
	key := in.IdempotencyKey
	if key != "" {
		if id, ok, err := c.Idem.Recall(ctx, p.UserID, key); err == nil && ok {
			return c.Orders.GetByID(ctx, id)
		}
	}

	items, err := c.cartItems(ctx, p.UserID)
	if err != nil {
		observ.CheckoutResult(resultLabel(err))
		return nil, err
	}
	in.Shipping = domain.Shipping{
		Name:    strings.TrimSpace(in.Shipping.Name),
		Phone:   strings.TrimSpace(in.Shipping.Phone),
		Address: strings.TrimSpace(in.Shipping.Address),
	}
	if err := validateShipping(in.Shipping); err != nil {
		return nil, err
	}
	zone, err := c.Zones.Lookup(in.Zone)
	if err != nil {
		return nil, err
	}

	if key != "" {
		ok, err := c.Idem.TryLock(ctx, p.UserID, key)
		if err != nil {
			return nil, fmt.Errorf("%w: idempotency lock: %w", ErrCheckoutFailed, err)
		}
		if !ok {
			return nil, ErrDuplicate
		}
	}

	order, outboxed, err := c.place(ctx, p.UserID, in.Shipping, c.price(items, zone))
	if err != nil {
		observ.CheckoutResult(resultLabel(err))
		// a partially applied order keeps its key locked
		if key != "" && !errors.Is(err, ErrPartialFailure) {
			if rerr := c.Idem.Release(ctx, p.UserID, key); rerr != nil {
				logging.FromCtx(ctx).Warn("release idempotency key", "user_id", p.UserID, "err", rerr)
			}
		}
		return nil, err
	}
	observ.CheckoutResult("ok")

	if key != "" {
		if err := c.Idem.Remember(ctx, p.UserID, key, order.ID); err != nil {
			logging.FromCtx(ctx).Warn("remember idempotency key", "order_id", order.ID, "err", err)
		}
	}
	c.publishPlaced(ctx, order, outboxed)
	return order, nil
}

func (c *Checkout) place(ctx context.Context, userID string, ship domain.Shipping, q Quote) (*domain.Order, *OutboxMessage, error) {
	// only the priced lines are removed; a line added meanwhile stays in the cart
	lineIDs := make([]string, 0, len(q.Items))
	for _, it := range q.Items {
		lineIDs = append(lineIDs, it.ID)
	}

	now := c.now()
	order := &domain.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		Status:         domain.InitialStatus(domain.PaymentCOD),
		PaymentMethod:  domain.PaymentCOD,
		Subtotal:       q.Subtotal,
		DeliveryCharge: q.DeliveryCharge,
		TotalPrice:     q.Subtotal,
		GrandTotal:     q.GrandTotal,
		Customer:       ship,
		DeliveryZone:   q.Zone.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := order.Validate(); err != nil {
		return nil, nil, err
	}
	payment := &domain.Payment{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		Amount:        order.GrandTotal,
		Status:        domain.PaymentStatusPending,
		PaymentMethod: domain.PaymentCOD,
		CreatedAt:     now,
	}
	payload, err := json.Marshal(placedMsg(order))
	if err != nil {
		return nil, nil, err
	}
	msg := &OutboxMessage{ID: uuid.NewString(), Channel: ChannelOrderPlaced, Payload: payload}

	if c.Tx.Atomic() {
		err := c.Tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
			if err := r.Orders.Create(ctx, order); err != nil {
				return fmt.Errorf("create order: %w", err)
			}
			if err := r.Payments.Create(ctx, payment); err != nil {
				return fmt.Errorf("create payment: %w", err)
			}
			if err := r.Outbox.Insert(ctx, *msg); err != nil {
				return fmt.Errorf("insert outbox: %w", err)
			}
			if err := r.Carts.DeleteLines(ctx, userID, lineIDs); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
		}
		return order, msg, nil
	}

	err = c.Tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		if err := r.Orders.Create(ctx, order); err != nil {
			return fmt.Errorf("%w: create order: %w", ErrCheckoutFailed, err)
		}
		if err := r.Payments.Create(ctx, payment); err != nil {
			pf := &PartialFailureError{OrderID: order.ID, Step: StepPayment, Err: err}
			c.incident(ctx, userID, pf)
			return pf
		}
		if err := r.Outbox.Insert(ctx, *msg); err != nil {
			c.incident(ctx, userID, &PartialFailureError{OrderID: order.ID, Step: StepOutbox, Err: err})
			msg = nil
		}
		if err := r.Carts.DeleteLines(ctx, userID, lineIDs); err != nil {
			logging.FromCtx(ctx).Warn("cart clear deferred", "user_id", userID, "order_id", order.ID, "err", err)
			if merr := c.deferClear(ctx, userID, now); merr != nil {
				c.incident(ctx, userID, &PartialFailureError{OrderID: order.ID, Step: StepCartClear, Err: errors.Join(err, merr)})
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, msg, nil
}

func (c *Checkout) deferClear(ctx context.Context, userID string, at time.Time) error {
	if c.Marker == nil {
		return errors.New("no cart clear marker configured")
	}
	return c.Marker.MarkPending(ctx, userID, at)
}

// incident reports a partially applied checkout to operators.
func (c *Checkout) incident(ctx context.Context, userID string, pf *PartialFailureError) {
	logging.FromCtx(ctx).Error("checkout partial failure",
		"order_id", pf.OrderID, "user_id", userID, "step", pf.Step, "err", pf.Err)
	observ.PartialFailure(pf.Step)
	if c.Incidents == nil {
		return
	}
	err := c.Incidents.Record(ctx, Incident{
		ID:        uuid.NewString(),
		OrderID:   pf.OrderID,
		UserID:    userID,
		Step:      pf.Step,
		Detail:    pf.Err.Error(),
		CreatedAt: c.now(),
	})
	if err != nil {
		logging.FromCtx(ctx).Error("record checkout incident", "order_id", pf.OrderID, "err", err)
	}
}

// publishPlaced is best effort; an unsent outbox row stays pending for a relay.
func (c *Checkout) publishPlaced(ctx context.Context, o *domain.Order, outboxed *OutboxMessage) {
	if c.Events == nil {
		return
	}
	if err := c.Events.PublishPlaced(ctx, placedMsg(o)); err != nil {
		logging.FromCtx(ctx).Warn("publish order.placed", "order_id", o.ID, "err", err)
		return
	}
	if outboxed == nil {
		return
	}
	if err := c.Outbox.MarkSent(ctx, outboxed.ID); err != nil {
		logging.FromCtx(ctx).Warn("mark outbox sent", "outbox_id", outboxed.ID, "err", err)
	}
}

func placedMsg(o *domain.Order) OrderPlacedMsg {
	return OrderPlacedMsg{
		OrderID:      o.ID,
		UserID:       o.UserID,
		Status:       string(o.Status),
		CustomerName: o.Customer.Name,
		DeliveryZone: o.DeliveryZone,
		GrandTotal:   o.GrandTotal,
		PlacedAt:     o.CreatedAt,
	}
}

func validateShipping(s domain.Shipping) error {
	verr := &ValidationError{}
	if s.Name == "" {
		verr.Add("customer_name", "required")
	}
	if s.Phone == "" {
		verr.Add("customer_phone", "required")
	}
	if s.Address == "" {
		verr.Add("customer_address", "required")
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrPartialFailure):
		return "partial"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrCheckoutFailed):
		return "failed"
	default:
		return "rejected"
	}
}
