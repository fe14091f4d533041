package repo

import (
	"context"
	"strings"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

const (
	defaultProductPage = 50
	maxProductPage     = 200
)

// MySQLCatalogRepo reads the products and categories tables owned by the catalog admin.
type MySQLCatalogRepo struct{ db DBTX }

func NewMySQLCatalogRepo(db DBTX) *MySQLCatalogRepo { return &MySQLCatalogRepo{db: db} }

func (r *MySQLCatalogRepo) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id=?`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return p, nil
}

func (r *MySQLCatalogRepo) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT ` + productColumns + ` FROM products WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = *p
	}
	return out, rows.Err()
}

func (r *MySQLCatalogRepo) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultProductPage
	}
	if limit > maxProductPage {
		limit = maxProductPage
	}
	offset := max(f.Offset, 0)

	q := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if f.CategoryID != "" {
		q += ` WHERE category_id=?`
		args = append(args, f.CategoryID)
	}
	q += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *MySQLCatalogRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id,name,created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ usecase.CatalogReader = (*MySQLCatalogRepo)(nil)
