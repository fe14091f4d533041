package http

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/shopspring/decimal"
)

// memDB backs every repository port with maps for handler tests.
type memDB struct {
	mu       sync.Mutex
	lines    map[string]domain.CartLine
	orders   map[string]domain.Order
	payments map[string]domain.Payment
	outbox   map[string]usecase.OutboxMessage
	products map[string]domain.Product
	emails   map[string]string
}

func newMemDB() *memDB {
	return &memDB{
		lines:    map[string]domain.CartLine{},
		orders:   map[string]domain.Order{},
		payments: map[string]domain.Payment{},
		outbox:   map[string]usecase.OutboxMessage{},
		products: map[string]domain.Product{
			"p1": {ID: "p1", Name: "Tea", Price: decimal.RequireFromString("500"), Stock: 10, CategoryID: "c1"},
			"p2": {ID: "p2", Name: "Mug", Price: decimal.RequireFromString("1500"), Stock: 3, CategoryID: "c2"},
			"p0": {ID: "p0", Name: "Gone", Price: decimal.RequireFromString("99"), Stock: 0},
		},
		emails: map[string]string{},
	}
}

type memCarts struct{ db *memDB }

func (r memCarts) ListByUser(_ context.Context, userID string) ([]domain.CartLine, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.CartLine
	for _, l := range r.db.lines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memCarts) Get(_ context.Context, userID, lineID string) (*domain.CartLine, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.lines[lineID]
	if !ok || l.UserID != userID {
		return nil, fmt.Errorf("cart line %s: %w", lineID, usecase.ErrNotFound)
	}
	return &l, nil
}

func (r memCarts) FindByProduct(_ context.Context, userID, productID string) (*domain.CartLine, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, l := range r.db.lines {
		if l.UserID == userID && l.ProductID == productID {
			return &l, nil
		}
	}
	return nil, usecase.ErrNotFound
}

func (r memCarts) Insert(_ context.Context, l *domain.CartLine) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.lines[l.ID] = *l
	return nil
}

func (r memCarts) SetQuantity(_ context.Context, userID, lineID string, qty int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.lines[lineID]
	if !ok || l.UserID != userID {
		return usecase.ErrNotFound
	}
	l.Quantity = qty
	r.db.lines[lineID] = l
	return nil
}

func (r memCarts) Delete(_ context.Context, userID, lineID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if l, ok := r.db.lines[lineID]; ok && l.UserID == userID {
		delete(r.db.lines, lineID)
	}
	return nil
}

func (r memCarts) DeleteLines(ctx context.Context, userID string, lineIDs []string) error {
	for _, id := range lineIDs {
		if err := r.Delete(ctx, userID, id); err != nil {
			return err
		}
	}
	return nil
}

func (r memCarts) ClearUserBefore(_ context.Context, userID string, cutoff time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, l := range r.db.lines {
		if l.UserID == userID && !l.CreatedAt.After(cutoff) {
			delete(r.db.lines, id)
		}
	}
	return nil
}

type memOrders struct{ db *memDB }

func (r memOrders) Create(_ context.Context, o *domain.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.orders[o.ID] = *o
	return nil
}

func (r memOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, usecase.ErrNotFound)
	}
	return &o, nil
}

func (r memOrders) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Order
	for _, o := range r.db.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memOrders) UpdateStatusIf(_ context.Context, id string, from, to domain.Status) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	r.db.orders[id] = o
	return true, nil
}

type memPayments struct{ db *memDB }

func (r memPayments) Create(_ context.Context, p *domain.Payment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.payments[p.OrderID] = *p
	return nil
}

func (r memPayments) GetByOrderID(_ context.Context, orderID string) (*domain.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[orderID]
	if !ok {
		return nil, usecase.ErrNotFound
	}
	return &p, nil
}

type memOutbox struct{ db *memDB }

func (r memOutbox) Insert(_ context.Context, m usecase.OutboxMessage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.outbox[m.ID] = m
	return nil
}

func (r memOutbox) MarkSent(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.outbox, id)
	return nil
}

func (r memOutbox) ListPending(context.Context, int) ([]usecase.OutboxMessage, error) {
	return nil, nil
}

func (r memOutbox) Retry(context.Context, string, time.Time) error { return nil }

type memTx struct{ db *memDB }

func (t memTx) Atomic() bool { return false }

func (t memTx) RunInTx(ctx context.Context, fn func(ctx context.Context, r usecase.Repos) error) error {
	return fn(ctx, usecase.Repos{
		Orders:   memOrders{t.db},
		Payments: memPayments{t.db},
		Outbox:   memOutbox{t.db},
		Carts:    memCarts{t.db},
	})
}

type memIncidents struct{}

func (memIncidents) Record(context.Context, usecase.Incident) error { return nil }

type memCatalog struct{ db *memDB }

func (c memCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	p, ok := c.db.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, usecase.ErrNotFound)
	}
	return &p, nil
}

func (c memCatalog) GetProducts(_ context.Context, ids []string) (map[string]domain.Product, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	out := map[string]domain.Product{}
	for _, id := range ids {
		if p, ok := c.db.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (c memCatalog) ListProducts(_ context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	var out []domain.Product
	for _, p := range c.db.products {
		if f.CategoryID == "" || p.CategoryID == f.CategoryID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c memCatalog) ListCategories(context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: "c1", Name: "Drinks"}, {ID: "c2", Name: "Kitchen"}}, nil
}

type memAdmin struct{ db *memDB }

func (a memAdmin) List(_ context.Context, f usecase.AdminOrderFilter) ([]domain.AdminOrder, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	q := strings.ToLower(f.Search)
	var out []domain.AdminOrder
	for _, o := range a.db.orders {
		ao := domain.AdminOrder{Order: o, CustomerEmail: a.db.emails[o.UserID]}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(o.ID+" "+o.Customer.Name+" "+o.Customer.Phone+" "+ao.CustomerEmail), q) {
			continue
		}
		out = append(out, ao)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (a memAdmin) Stats(context.Context) (usecase.DashboardStats, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	st := usecase.DashboardStats{Products: int64(len(a.db.products)), Orders: int64(len(a.db.orders))}
	for _, o := range a.db.orders {
		st.Revenue += o.GrandTotal
	}
	st.Customers = int64(len(a.db.emails))
	return st, nil
}
