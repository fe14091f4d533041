package domain

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPaymentPending Status = "payment_pending"
	StatusCODPending     Status = "cod_pending"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// rank orders the fulfillment stages; both pending states share the first stage.
var rank = map[Status]int{
	StatusPaymentPending: 0,
	StatusCODPending:     0,
	StatusProcessing:     1,
	StatusShipped:        2,
	StatusDelivered:      3,
}

type PaymentMethod string

const PaymentCOD PaymentMethod = "cod"

var (
	ErrInvalidStatus = errors.New("invalid order status")
	ErrInvalidTotals = errors.New("grand total must equal subtotal plus delivery charge")
)

// ParseStatus maps a wire value onto the enumeration.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := rank[st]; ok || st == StatusCancelled {
		return st, nil
	}
	return "", ErrInvalidStatus
}

// InitialStatus is the status a freshly placed order starts in.
func InitialStatus(m PaymentMethod) Status {
	if m == PaymentCOD {
		return StatusCODPending
	}
	return StatusPaymentPending
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an admin may move an order from s to next.
// Orders only move forward; cancellation is allowed until the order is terminal.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	from, ok1 := rank[s]
	to, ok2 := rank[next]
	return ok1 && ok2 && to > from
}

type Shipping struct {
	Name    string
	Phone   string
	Address string
}

type Order struct {
	ID             string
	UserID         string
	Status         Status
	PaymentMethod  PaymentMethod
	Subtotal       int64
	DeliveryCharge int64
	TotalPrice     int64
	GrandTotal     int64
	Customer       Shipping
	DeliveryZone   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (o *Order) Validate() error {
	if o.GrandTotal != o.Subtotal+o.DeliveryCharge {
		return ErrInvalidTotals
	}
	if _, err := ParseStatus(string(o.Status)); err != nil {
		return err
	}
	return nil
}

// AdminOrder is an order row of the admin view, joined with the customer's email.
type AdminOrder struct {
	Order
	CustomerEmail string
}
