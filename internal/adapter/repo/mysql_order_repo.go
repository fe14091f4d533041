package repo

import (
	"context"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

type MySQLOrderRepo struct{ db DBTX }

func NewMySQLOrderRepo(db DBTX) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

func (r *MySQLOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO orders (`+orderColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.ID, o.UserID, o.Status, o.PaymentMethod, o.Subtotal, o.DeliveryCharge, o.TotalPrice, o.GrandTotal,
		o.Customer.Name, o.Customer.Phone, o.Customer.Address, o.DeliveryZone, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *MySQLOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+orderColumns+`
FROM orders WHERE id=?`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return o, nil
}

func (r *MySQLOrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+orderColumns+`
FROM orders WHERE user_id=?
ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// UpdateStatusIf touches only status and updated_at.
func (r *MySQLOrderRepo) UpdateStatusIf(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders
SET status = ?, updated_at = NOW(6)
WHERE id = ? AND status = ?`,
		to, id, from,
	)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	// rows == 0 → either not found or status mismatch
	return rows > 0, nil
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)
