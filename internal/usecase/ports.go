package usecase

import (
	"context"
	"io"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
)

// Lookups by id return an error wrapping ErrNotFound when nothing matches.

type CartRepo interface {
	ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error)
	Get(ctx context.Context, userID, lineID string) (*domain.CartLine, error)
	FindByProduct(ctx context.Context, userID, productID string) (*domain.CartLine, error)
	Insert(ctx context.Context, l *domain.CartLine) error
	SetQuantity(ctx context.Context, userID, lineID string, qty int) error
	// Delete is a no-op when the line does not exist.
	Delete(ctx context.Context, userID, lineID string) error
	// DeleteLines removes the given lines of the user; ids of other users are ignored.
	DeleteLines(ctx context.Context, userID string, lineIDs []string) error
	ClearUserBefore(ctx context.Context, userID string, cutoff time.Time) error
}

type OrderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// ListByUser returns newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	// UpdateStatusIf reports false when the row is no longer in status from.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.Status) (bool, error)
}

type PaymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
}

type OutboxMessage struct {
	ID      string
	Channel string
	Payload []byte
}

type OutboxRepo interface {
	Insert(ctx context.Context, m OutboxMessage) error
	MarkSent(ctx context.Context, id string) error
	// ListPending returns unsent rows whose next attempt is due, oldest first.
	ListPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Retry(ctx context.Context, id string, next time.Time) error
}

type Incident struct {
	ID        string
	OrderID   string
	UserID    string
	Step      string
	Detail    string
	CreatedAt time.Time
}

type IncidentRepo interface {
	Record(ctx context.Context, in Incident) error
}

type CatalogReader interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	// GetProducts omits unknown ids from the result.
	GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)
	ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// Repos is the set of writers a checkout unit of work operates on.
type Repos struct {
	Orders   OrderRepo
	Payments PaymentRepo
	Outbox   OutboxRepo
	Carts    CartRepo
}

type TxRunner interface {
	// RunInTx calls fn with repos bound to the unit of work. In atomic mode an error
	// from fn rolls back every write fn made.
	RunInTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
	Atomic() bool
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
	Release(ctx context.Context, scope, key string) error
}

type CachedStatus struct {
	UserID string
	Status domain.Status
}

type OrderCache interface {
	SetStatus(ctx context.Context, orderID string, s CachedStatus) error
	GetStatus(ctx context.Context, orderID string) (CachedStatus, bool, error)
	Invalidate(ctx context.Context, orderID string) error
}

// CartClearMarker remembers a cart clear that failed after checkout.
type CartClearMarker interface {
	MarkPending(ctx context.Context, userID string, at time.Time) error
	Pending(ctx context.Context, userID string) (time.Time, bool, error)
	Done(ctx context.Context, userID string) error
}

type OrderPlacedPublisher interface {
	PublishPlaced(ctx context.Context, msg OrderPlacedMsg) error
}

type StatusChangedPublisher interface {
	PublishStatusChanged(ctx context.Context, msg OrderStatusChangedMsg) error
}

// FeedEvent is pushed to live-feed subscribers.
type FeedEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type LiveFeed interface {
	NotifyAdmins(ev FeedEvent)
	NotifyUser(userID string, ev FeedEvent)
}

type AdminOrderFilter struct {
	Search string
	Status domain.Status
	Limit  int
}

type DashboardStats struct {
	Products  int64 `json:"products"`
	Orders    int64 `json:"orders"`
	Revenue   int64 `json:"revenue"`
	Customers int64 `json:"customers"`
}

type AdminOrderRepo interface {
	// List returns newest first.
	List(ctx context.Context, f AdminOrderFilter) ([]domain.AdminOrder, error)
	Stats(ctx context.Context) (DashboardStats, error)
}

type OrderSheetRenderer interface {
	Render(w io.Writer, orders []domain.AdminOrder) error
}
