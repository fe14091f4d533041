package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/pricing"
	"github.com/google/uuid"
)

type CartView struct {
	Items    []domain.CartItem
	Subtotal int64
}

type CartManager struct {
	carts   CartRepo
	catalog CatalogReader
	marker  CartClearMarker
	calc    pricing.Calculator
	now     func() time.Time
}

func NewCartManager(carts CartRepo, catalog CatalogReader, marker CartClearMarker, calc pricing.Calculator) *CartManager {
	return &CartManager{carts: carts, catalog: catalog, marker: marker, calc: calc, now: time.Now}
}

// AddItem increments the caller's line for productID, creating it when absent.
func (m *CartManager) AddItem(ctx context.Context, p domain.Principal, productID string, qty int) (*domain.CartLine, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if productID == "" {
		return nil, NewValidationError("product_id", "required")
	}
	if qty < 1 {
		return nil, NewValidationError("quantity", "must be at least 1")
	}

	prod, err := m.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", productID, err)
	}
	if !prod.InStock() {
		return nil, fmt.Errorf("product %s: %w", productID, ErrOutOfStock)
	}

	if err := m.applyPendingClear(ctx, p.UserID); err != nil {
		return nil, err
	}

	line, err := m.carts.FindByProduct(ctx, p.UserID, productID)
	switch {
	case err == nil:
		line.Quantity += qty
		if err := m.carts.SetQuantity(ctx, p.UserID, line.ID, line.Quantity); err != nil {
			return nil, fmt.Errorf("increment line: %w", err)
		}
		line.UpdatedAt = m.now()
		return line, nil
	case errors.Is(err, ErrNotFound):
	default:
		return nil, fmt.Errorf("find line: %w", err)
	}

	now := m.now()
	line = &domain.CartLine{
		ID:        uuid.NewString(),
		UserID:    p.UserID,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.carts.Insert(ctx, line); err != nil {
		return nil, fmt.Errorf("insert line: %w", err)
	}
	return line, nil
}

// UpdateQuantity overwrites the quantity of one of the caller's lines.
func (m *CartManager) UpdateQuantity(ctx context.Context, p domain.Principal, lineID string, qty int) (*domain.CartLine, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if qty < 1 {
		return nil, NewValidationError("quantity", "must be at least 1")
	}
	if err := m.applyPendingClear(ctx, p.UserID); err != nil {
		return nil, err
	}

	line, err := m.carts.Get(ctx, p.UserID, lineID)
	if err != nil {
		return nil, fmt.Errorf("cart line %s: %w", lineID, err)
	}
	if err := m.carts.SetQuantity(ctx, p.UserID, lineID, qty); err != nil {
		return nil, fmt.Errorf("update line: %w", err)
	}
	line.Quantity = qty
	line.UpdatedAt = m.now()
	return line, nil
}

func (m *CartManager) RemoveItem(ctx context.Context, p domain.Principal, lineID string) error {
	if err := requireUser(p); err != nil {
		return err
	}
	if err := m.carts.Delete(ctx, p.UserID, lineID); err != nil {
		return fmt.Errorf("delete line: %w", err)
	}
	return nil
}

// ListItems returns the caller's cart priced with live catalog data.
func (m *CartManager) ListItems(ctx context.Context, p domain.Principal) (CartView, error) {
	if err := requireUser(p); err != nil {
		return CartView{}, err
	}
	items, missing, err := m.load(ctx, p.UserID)
	if err != nil {
		return CartView{}, err
	}
	if len(missing) > 0 {
		logging.FromCtx(ctx).Warn("cart references unknown products", "user_id", p.UserID, "product_ids", missing)
	}
	return CartView{Items: items, Subtotal: m.calc.Subtotal(pricingLines(items))}, nil
}

// load applies any deferred clear, then joins the user's lines with the catalog.
// Lines whose product no longer exists are left out and their product ids returned.
func (m *CartManager) load(ctx context.Context, userID string) ([]domain.CartItem, []string, error) {
	if err := m.applyPendingClear(ctx, userID); err != nil {
		return nil, nil, err
	}
	lines, err := m.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil, nil
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := m.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}

	items := make([]domain.CartItem, 0, len(lines))
	var missing []string
	for _, l := range lines {
		prod, ok := products[l.ProductID]
		if !ok {
			missing = append(missing, l.ProductID)
			continue
		}
		items = append(items, domain.CartItem{
			CartLine:  l,
			Name:      prod.Name,
			UnitPrice: prod.Price,
			ImageURL:  prod.ImageURL,
			Stock:     prod.Stock,
		})
	}
	return items, missing, nil
}

func (m *CartManager) applyPendingClear(ctx context.Context, userID string) error {
	if m.marker == nil {
		return nil
	}
	at, ok, err := m.marker.Pending(ctx, userID)
	if err != nil {
		logging.FromCtx(ctx).Warn("read cart clear marker", "user_id", userID, "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	if err := m.carts.ClearUserBefore(ctx, userID, at); err != nil {
		return fmt.Errorf("apply deferred cart clear: %w", err)
	}
	if err := m.marker.Done(ctx, userID); err != nil {
		logging.FromCtx(ctx).Warn("drop cart clear marker", "user_id", userID, "err", err)
	}
	return nil
}

func pricingLines(items []domain.CartItem) []pricing.Line {
	out := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		out = append(out, pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return out
}

func requireUser(p domain.Principal) error {
	if p.UserID == "" {
		return fmt.Errorf("%w: no authenticated user", ErrUnauthorized)
	}
	return nil
}
