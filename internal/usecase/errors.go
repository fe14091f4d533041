package usecase

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aq2208/storefront-api/internal/pricing"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidZone       = pricing.ErrInvalidZone
	ErrOutOfStock        = errors.New("product out of stock")
	ErrDuplicate         = errors.New("duplicate idempotency key")
	ErrConflict          = errors.New("order was modified concurrently")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCheckoutFailed    = errors.New("checkout failed")
	ErrUnauthorized      = errors.New("not allowed")
	ErrValidation        = errors.New("validation failed")
	ErrPartialFailure    = errors.New("checkout partially applied")
	ErrUnknownChannel    = errors.New("unknown outbox channel")
)

// ValidationError carries one message per offending input field.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Checkout steps that can fail after the order row exists.
const (
	StepPayment   = "payment"
	StepOutbox    = "outbox"
	StepCartClear = "cart_clear"
)

// PartialFailureError reports a checkout whose order was written but a later step was not.
type PartialFailureError struct {
	OrderID string
	Step    string
	Err     error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("checkout partially applied: order %s, step %s: %v", e.OrderID, e.Step, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

func (e *PartialFailureError) Is(target error) bool { return target == ErrPartialFailure }
