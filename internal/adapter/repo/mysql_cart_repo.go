package repo

import (
	"context"
	"strings"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

type MySQLCartRepo struct{ db DBTX }

func NewMySQLCartRepo(db DBTX) *MySQLCartRepo { return &MySQLCartRepo{db: db} }

func (r *MySQLCartRepo) ListByUser(ctx context.Context, userID string) ([]domain.CartLine, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+cartColumns+`
FROM cart_items WHERE user_id=?
ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CartLine
	for rows.Next() {
		l, err := scanCartLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *MySQLCartRepo) Get(ctx context.Context, userID, lineID string) (*domain.CartLine, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+cartColumns+`
FROM cart_items WHERE id=? AND user_id=?`, lineID, userID)
	l, err := scanCartLine(row)
	if err != nil {
		return nil, notFound(err, "cart line", lineID)
	}
	return l, nil
}

func (r *MySQLCartRepo) FindByProduct(ctx context.Context, userID, productID string) (*domain.CartLine, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+cartColumns+`
FROM cart_items WHERE user_id=? AND product_id=?
ORDER BY created_at LIMIT 1`, userID, productID)
	l, err := scanCartLine(row)
	if err != nil {
		return nil, notFound(err, "cart line for product", productID)
	}
	return l, nil
}

func (r *MySQLCartRepo) Insert(ctx context.Context, l *domain.CartLine) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO cart_items (id,user_id,product_id,quantity,created_at,updated_at)
VALUES (?,?,?,?,?,?)`,
		l.ID, l.UserID, l.ProductID, l.Quantity, l.CreatedAt, l.UpdatedAt)
	return err
}

func (r *MySQLCartRepo) SetQuantity(ctx context.Context, userID, lineID string, qty int) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE cart_items
SET quantity = ?, updated_at = NOW(6)
WHERE id = ? AND user_id = ?`,
		qty, lineID, userID)
	return err
}

func (r *MySQLCartRepo) Delete(ctx context.Context, userID, lineID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id=? AND user_id=?`, lineID, userID)
	return err
}

func (r *MySQLCartRepo) DeleteLines(ctx context.Context, userID string, lineIDs []string) error {
	if len(lineIDs) == 0 {
		return nil
	}
	q := `DELETE FROM cart_items WHERE user_id=? AND id IN (?` + strings.Repeat(",?", len(lineIDs)-1) + `)`
	args := make([]any, 0, len(lineIDs)+1)
	args = append(args, userID)
	for _, id := range lineIDs {
		args = append(args, id)
	}
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

func (r *MySQLCartRepo) ClearUserBefore(ctx context.Context, userID string, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id=? AND created_at<=?`, userID, cutoff)
	return err
}

var _ usecase.CartRepo = (*MySQLCartRepo)(nil)
