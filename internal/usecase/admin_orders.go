package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	domain "github.com/aq2208/storefront-api/internal/entity"
)

const (
	defaultAdminListLimit = 200
	maxAdminListLimit     = 1000
)

type AdminOrders struct {
	view      AdminOrderRepo
	lifecycle *OrderLifecycle
	sheet     OrderSheetRenderer
}

func NewAdminOrders(view AdminOrderRepo, lifecycle *OrderLifecycle, sheet OrderSheetRenderer) *AdminOrders {
	return &AdminOrders{view: view, lifecycle: lifecycle, sheet: sheet}
}

// List returns orders from the admin view, newest first.
// Search matches id, customer name, phone or email, ignoring case.
func (a *AdminOrders) List(ctx context.Context, p domain.Principal, f AdminOrderFilter) ([]domain.AdminOrder, error) {
	if !p.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}
	f, err := normalizeFilter(f)
	if err != nil {
		return nil, err
	}
	orders, err := a.view.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("admin orders: %w", err)
	}
	return orders, nil
}

func (a *AdminOrders) Stats(ctx context.Context, p domain.Principal) (DashboardStats, error) {
	if !p.IsAdmin() {
		return DashboardStats{}, fmt.Errorf("%w: admin role required", ErrUnauthorized)
	}
	st, err := a.view.Stats(ctx)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	return st, nil
}

// Export writes the filtered listing as a spreadsheet.
func (a *AdminOrders) Export(ctx context.Context, p domain.Principal, f AdminOrderFilter, w io.Writer) error {
	if a.sheet == nil {
		return errors.New("export not configured")
	}
	f.Limit = maxAdminListLimit
	orders, err := a.List(ctx, p, f)
	if err != nil {
		return err
	}
	return a.sheet.Render(w, orders)
}

func (a *AdminOrders) SetStatus(ctx context.Context, p domain.Principal, orderID, status string) (*domain.Order, error) {
	return a.lifecycle.SetStatus(ctx, p, orderID, status)
}

func normalizeFilter(f AdminOrderFilter) (AdminOrderFilter, error) {
	f.Search = strings.TrimSpace(f.Search)
	if f.Status != "" {
		st, err := domain.ParseStatus(string(f.Status))
		if err != nil {
			return f, NewValidationError("status", fmt.Sprintf("unknown status %q", f.Status))
		}
		f.Status = st
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultAdminListLimit
	case f.Limit > maxAdminListLimit:
		f.Limit = maxAdminListLimit
	}
	return f, nil
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
