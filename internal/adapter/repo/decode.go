package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/shopspring/decimal"
)

// ErrMalformedRecord is returned for rows that violate the domain invariants.
var ErrMalformedRecord = errors.New("malformed record")

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func malformed(table, id, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s: %s", ErrMalformedRecord, table, id, fmt.Sprintf(format, args...))
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, usecase.ErrNotFound)
	}
	return err
}

const cartColumns = `id,user_id,product_id,quantity,created_at,updated_at`

func scanCartLine(s scanner) (*domain.CartLine, error) {
	var l domain.CartLine
	if err := s.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	if l.ProductID == "" {
		return nil, malformed("cart_items", l.ID, "empty product_id")
	}
	if l.Quantity < 1 {
		return nil, malformed("cart_items", l.ID, "quantity %d", l.Quantity)
	}
	return &l, nil
}

const orderColumns = `id,user_id,status,payment_method,subtotal,delivery_charge,total_price,grand_total,` +
	`customer_name,customer_phone,customer_address,delivery_zone,created_at,updated_at`

type orderRow struct {
	id, userID, status, method string
	subtotal, delivery         int64
	total, grand               int64
	name, phone, address, zone string
	createdAt, updatedAt       time.Time
}

func (r *orderRow) dest() []any {
	return []any{&r.id, &r.userID, &r.status, &r.method, &r.subtotal, &r.delivery, &r.total, &r.grand,
		&r.name, &r.phone, &r.address, &r.zone, &r.createdAt, &r.updatedAt}
}

func (r *orderRow) decode() (*domain.Order, error) {
	if r.id == "" || r.userID == "" {
		return nil, malformed("orders", r.id, "missing id or user_id")
	}
	st, err := domain.ParseStatus(r.status)
	if err != nil {
		return nil, malformed("orders", r.id, "status %q", r.status)
	}
	if r.subtotal < 0 || r.delivery < 0 {
		return nil, malformed("orders", r.id, "negative amount")
	}
	o := &domain.Order{
		ID:             r.id,
		UserID:         r.userID,
		Status:         st,
		PaymentMethod:  domain.PaymentMethod(r.method),
		Subtotal:       r.subtotal,
		DeliveryCharge: r.delivery,
		TotalPrice:     r.total,
		GrandTotal:     r.grand,
		Customer:       domain.Shipping{Name: r.name, Phone: r.phone, Address: r.address},
		DeliveryZone:   r.zone,
		CreatedAt:      r.createdAt,
		UpdatedAt:      r.updatedAt,
	}
	if err := o.Validate(); err != nil {
		return nil, malformed("orders", r.id, "%v", err)
	}
	return o, nil
}

func scanOrder(s scanner) (*domain.Order, error) {
	var r orderRow
	if err := s.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.decode()
}

const paymentColumns = `id,order_id,amount,status,payment_method,created_at`

func scanPayment(s scanner) (*domain.Payment, error) {
	var p domain.Payment
	if err := s.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Status, &p.PaymentMethod, &p.CreatedAt); err != nil {
		return nil, err
	}
	if p.OrderID == "" || p.Amount < 0 {
		return nil, malformed("payments", p.ID, "order_id %q amount %d", p.OrderID, p.Amount)
	}
	return &p, nil
}

const productColumns = `id,name,COALESCE(description,''),price,stock,COALESCE(category_id,''),COALESCE(image_url,''),created_at`

func scanProduct(s scanner) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
		stock sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &price, &stock, &p.CategoryID, &p.ImageURL, &p.CreatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, malformed("products", p.ID, "price %q", price)
	}
	if d.IsNegative() {
		return nil, malformed("products", p.ID, "negative price")
	}
	p.Price = d
	p.Stock = int(stock.Int64)
	return &p, nil
}
