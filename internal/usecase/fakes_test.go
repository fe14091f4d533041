package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for the relational store.
type memStore struct {
	mu        sync.Mutex
	lines     map[string]domain.CartLine
	orders    map[string]domain.Order
	payments  map[string]domain.Payment
	outbox    map[string]outboxRow
	incidents []Incident
	fail      map[string]error
}

type outboxRow struct {
	OutboxMessage
	Sent    bool
	Retries int
}

func newMemStore() *memStore {
	return &memStore{
		lines:    map[string]domain.CartLine{},
		orders:   map[string]domain.Order{},
		payments: map[string]domain.Payment{},
		outbox:   map[string]outboxRow{},
		fail:     map[string]error{},
	}
}

func (s *memStore) failOn(op string, err error) { s.fail[op] = err }

func (s *memStore) snapshot() *memStore {
	cp := newMemStore()
	for k, v := range s.lines {
		cp.lines[k] = v
	}
	for k, v := range s.orders {
		cp.orders[k] = v
	}
	for k, v := range s.payments {
		cp.payments[k] = v
	}
	for k, v := range s.outbox {
		cp.outbox[k] = v
	}
	cp.incidents = append(cp.incidents, s.incidents...)
	return cp
}

func (s *memStore) restore(cp *memStore) {
	s.lines, s.orders, s.payments, s.outbox, s.incidents = cp.lines, cp.orders, cp.payments, cp.outbox, cp.incidents
}

func (s *memStore) userLines(userID string) []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CartLine
	for _, l := range s.lines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out
}

type memCarts struct{ s *memStore }

func (r memCarts) ListByUser(_ context.Context, userID string) ([]domain.CartLine, error) {
	out := r.s.userLines(userID)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memCarts) Get(_ context.Context, userID, lineID string) (*domain.CartLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lines[lineID]
	if !ok || l.UserID != userID {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (r memCarts) FindByProduct(_ context.Context, userID, productID string) (*domain.CartLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.lines {
		if l.UserID == userID && l.ProductID == productID {
			return &l, nil
		}
	}
	return nil, ErrNotFound
}

func (r memCarts) Insert(_ context.Context, l *domain.CartLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.lines[l.ID] = *l
	return nil
}

func (r memCarts) SetQuantity(_ context.Context, userID, lineID string, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lines[lineID]
	if !ok || l.UserID != userID {
		return ErrNotFound
	}
	l.Quantity = qty
	r.s.lines[lineID] = l
	return nil
}

func (r memCarts) Delete(_ context.Context, userID, lineID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l, ok := r.s.lines[lineID]; ok && l.UserID == userID {
		delete(r.s.lines, lineID)
	}
	return nil
}

func (r memCarts) DeleteLines(_ context.Context, userID string, lineIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["carts.clear"]; err != nil {
		return err
	}
	for _, id := range lineIDs {
		if l, ok := r.s.lines[id]; ok && l.UserID == userID {
			delete(r.s.lines, id)
		}
	}
	return nil
}

func (r memCarts) ClearUserBefore(_ context.Context, userID string, cutoff time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, l := range r.s.lines {
		if l.UserID == userID && !l.CreatedAt.After(cutoff) {
			delete(r.s.lines, id)
		}
	}
	return nil
}

type memOrders struct{ s *memStore }

func (r memOrders) Create(_ context.Context, o *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["orders.create"]; err != nil {
		return err
	}
	r.s.orders[o.ID] = *o
	return nil
}

func (r memOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (r memOrders) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Order
	for _, o := range r.s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memOrders) UpdateStatusIf(_ context.Context, id string, from, to domain.Status) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	r.s.orders[id] = o
	return true, nil
}

type memPayments struct{ s *memStore }

func (r memPayments) Create(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["payments.create"]; err != nil {
		return err
	}
	r.s.payments[p.ID] = *p
	return nil
}

func (r memPayments) GetByOrderID(_ context.Context, orderID string) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.OrderID == orderID {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) paymentsFor(orderID string) []domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Payment
	for _, p := range s.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out
}

type memOutbox struct{ s *memStore }

func (r memOutbox) Insert(_ context.Context, m OutboxMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["outbox.insert"]; err != nil {
		return err
	}
	r.s.outbox[m.ID] = outboxRow{OutboxMessage: m}
	return nil
}

func (r memOutbox) MarkSent(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.outbox[id]
	if !ok {
		return ErrNotFound
	}
	row.Sent = true
	r.s.outbox[id] = row
	return nil
}

func (r memOutbox) ListPending(_ context.Context, limit int) ([]OutboxMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []OutboxMessage
	for _, row := range r.s.outbox {
		if !row.Sent && row.Retries < 3 {
			out = append(out, row.OutboxMessage)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memOutbox) Retry(_ context.Context, id string, _ time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.outbox[id]
	if !ok {
		return ErrNotFound
	}
	row.Retries++
	r.s.outbox[id] = row
	return nil
}

type memIncidents struct{ s *memStore }

func (r memIncidents) Record(_ context.Context, in Incident) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.incidents = append(r.s.incidents, in)
	return nil
}

func (s *memStore) repos() Repos {
	return Repos{Orders: memOrders{s}, Payments: memPayments{s}, Outbox: memOutbox{s}, Carts: memCarts{s}}
}

// memTx rolls the whole store back when fn fails in atomic mode.
type memTx struct {
	s      *memStore
	atomic bool
}

func (t memTx) Atomic() bool { return t.atomic }

func (t memTx) RunInTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	if !t.atomic {
		return fn(ctx, t.s.repos())
	}
	t.s.mu.Lock()
	cp := t.s.snapshot()
	t.s.mu.Unlock()
	if err := fn(ctx, t.s.repos()); err != nil {
		t.s.mu.Lock()
		t.s.restore(cp)
		t.s.mu.Unlock()
		return err
	}
	return nil
}

type memCatalog struct {
	products map[string]domain.Product
	// afterRead runs once after the next GetProducts call.
	afterRead func()
}

func newMemCatalog(ps ...domain.Product) *memCatalog {
	c := &memCatalog{products: map[string]domain.Product{}}
	for _, p := range ps {
		c.products[p.ID] = p
	}
	return c
}

func product(id string, price string, stock int) domain.Product {
	return domain.Product{ID: id, Name: "Product " + id, Price: decimal.RequireFromString(price), Stock: stock}
}

func (c *memCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (c *memCatalog) GetProducts(_ context.Context, ids []string) (map[string]domain.Product, error) {
	out := map[string]domain.Product{}
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	if hook := c.afterRead; hook != nil {
		c.afterRead = nil
		hook()
	}
	return out, nil
}

func (c *memCatalog) ListProducts(context.Context, domain.ProductFilter) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range c.products {
		out = append(out, p)
	}
	return out, nil
}

func (c *memCatalog) ListCategories(context.Context) ([]domain.Category, error) { return nil, nil }

type memIdem struct {
	mu      sync.Mutex
	locks   map[string]bool
	results map[string]string
}

func newMemIdem() *memIdem {
	return &memIdem{locks: map[string]bool{}, results: map[string]string{}}
}

func (m *memIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scope + ":" + key
	if m.locks[k] {
		return false, nil
	}
	m.locks[k] = true
	return true, nil
}

func (m *memIdem) Remember(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[scope+":"+key] = value
	return nil
}

func (m *memIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.results[scope+":"+key]
	return v, ok, nil
}

func (m *memIdem) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+":"+key)
	return nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]CachedStatus
	setErr  error
}

func newMemCache() *memCache { return &memCache{entries: map[string]CachedStatus{}} }

func (c *memCache) SetStatus(_ context.Context, orderID string, s CachedStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[orderID] = s
	return nil
}

func (c *memCache) GetStatus(_ context.Context, orderID string) (CachedStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[orderID]
	return s, ok, nil
}

func (c *memCache) Invalidate(_ context.Context, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, orderID)
	return nil
}

type memMarker struct {
	mu      sync.Mutex
	pending map[string]time.Time
}

func newMemMarker() *memMarker { return &memMarker{pending: map[string]time.Time{}} }

func (m *memMarker) MarkPending(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[userID] = at
	return nil
}

func (m *memMarker) Pending(_ context.Context, userID string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.pending[userID]
	return at, ok, nil
}

func (m *memMarker) Done(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, userID)
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	placed  []OrderPlacedMsg
	changed []OrderStatusChangedMsg
	err     error
}

func (p *recordingPublisher) PublishPlaced(_ context.Context, msg OrderPlacedMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.placed = append(p.placed, msg)
	return nil
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, msg OrderStatusChangedMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.changed = append(p.changed, msg)
	return nil
}

type memAdminView struct {
	s      *memStore
	emails map[string]string
	stats  DashboardStats
}

func (v memAdminView) List(_ context.Context, f AdminOrderFilter) ([]domain.AdminOrder, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	q := strings.ToLower(f.Search)
	var out []domain.AdminOrder
	for _, o := range v.s.orders {
		ao := domain.AdminOrder{Order: o, CustomerEmail: v.emails[o.UserID]}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if q != "" && !matchesSearch(ao, q) {
			continue
		}
		out = append(out, ao)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matchesSearch(o domain.AdminOrder, q string) bool {
	for _, field := range []string{o.ID, o.Customer.Name, o.Customer.Phone, o.CustomerEmail} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func (v memAdminView) Stats(context.Context) (DashboardStats, error) { return v.stats, nil }

type fakeSheet struct{ rows int }

func (f *fakeSheet) Render(w io.Writer, orders []domain.AdminOrder) error {
	f.rows = len(orders)
	_, err := fmt.Fprintf(w, "%d orders", len(orders))
	return err
}

// clock advances by one second per call so created_at values are ordered.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}
