package repo

import (
	"context"
	"strings"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

// MySQLAdminOrderRepo reads the admin_orders view (orders joined with the customer's profile email).
type MySQLAdminOrderRepo struct{ db DBTX }

func NewMySQLAdminOrderRepo(db DBTX) *MySQLAdminOrderRepo { return &MySQLAdminOrderRepo{db: db} }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *MySQLAdminOrderRepo) List(ctx context.Context, f usecase.AdminOrderFilter) ([]domain.AdminOrder, error) {
	q := `SELECT ` + orderColumns + `,COALESCE(customer_email,'') FROM admin_orders WHERE 1=1`
	var args []any
	if f.Status != "" {
		q += ` AND status=?`
		args = append(args, f.Status)
	}
	if f.Search != "" {
		pat := "%" + likeEscaper.Replace(strings.ToLower(f.Search)) + "%"
		q += ` AND (LOWER(id) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(customer_phone) LIKE ? OR LOWER(customer_email) LIKE ?)`
		args = append(args, pat, pat, pat, pat)
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, f.Limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AdminOrder
	for rows.Next() {
		var (
			row   orderRow
			email string
		)
		if err := rows.Scan(append(row.dest(), &email)...); err != nil {
			return nil, err
		}
		o, err := row.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, domain.AdminOrder{Order: *o, CustomerEmail: email})
	}
	return out, rows.Err()
}

func (r *MySQLAdminOrderRepo) Stats(ctx context.Context) (usecase.DashboardStats, error) {
	var st usecase.DashboardStats
	err := r.db.QueryRowContext(ctx, `
SELECT
  (SELECT COUNT(*) FROM products),
  (SELECT COUNT(*) FROM orders),
  (SELECT COALESCE(SUM(grand_total),0) FROM orders),
  (SELECT COUNT(*) FROM profiles)`).Scan(&st.Products, &st.Orders, &st.Revenue, &st.Customers)
	return st, err
}

var _ usecase.AdminOrderRepo = (*MySQLAdminOrderRepo)(nil)
