package repo

import (
	"context"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

type MySQLPaymentRepo struct{ db DBTX }

func NewMySQLPaymentRepo(db DBTX) *MySQLPaymentRepo { return &MySQLPaymentRepo{db: db} }

func (r *MySQLPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO payments (`+paymentColumns+`)
VALUES (?,?,?,?,?,?)`,
		p.ID, p.OrderID, p.Amount, p.Status, p.PaymentMethod, p.CreatedAt)
	return err
}

func (r *MySQLPaymentRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+paymentColumns+`
FROM payments WHERE order_id=?
ORDER BY created_at LIMIT 1`, orderID)
	p, err := scanPayment(row)
	if err != nil {
		return nil, notFound(err, "payment for order", orderID)
	}
	return p, nil
}

var _ usecase.PaymentRepo = (*MySQLPaymentRepo)(nil)
