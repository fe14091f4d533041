package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Catalog service methods. Requests and replies are google.protobuf.Struct.
const (
	MethodGetProduct     = "/storefront.catalog.v1.Catalog/GetProduct"
	MethodGetProducts    = "/storefront.catalog.v1.Catalog/GetProducts"
	MethodListProducts   = "/storefront.catalog.v1.Catalog/ListProducts"
	MethodListCategories = "/storefront.catalog.v1.Catalog/ListCategories"
)

var ErrMalformedReply = errors.New("malformed catalog reply")

// CatalogClient implements usecase.CatalogReader against the remote catalog service.
type CatalogClient struct {
	conn    grpc.ClientConnInterface
	timeout time.Duration
}

func NewCatalogClient(conn grpc.ClientConnInterface, timeout time.Duration) *CatalogClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CatalogClient{conn: conn, timeout: timeout}
}

func (c *CatalogClient) invoke(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	// ensure per-call timeout if caller didn't set one
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CatalogClient) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	out, err := c.invoke(ctx, MethodGetProduct, map[string]any{"id": id})
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("product %s: %w", id, usecase.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return decodeProduct(out)
}

func (c *CatalogClient) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	res := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	list := make([]any, len(ids))
	for i, id := range ids {
		list[i] = id
	}
	out, err := c.invoke(ctx, MethodGetProducts, map[string]any{"ids": list})
	if err != nil {
		return nil, err
	}
	products, err := decodeProducts(out)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		res[p.ID] = p
	}
	return res, nil
}

func (c *CatalogClient) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	req := map[string]any{"limit": f.Limit, "offset": f.Offset}
	if f.CategoryID != "" {
		req["category_id"] = f.CategoryID
	}
	out, err := c.invoke(ctx, MethodListProducts, req)
	if err != nil {
		return nil, err
	}
	return decodeProducts(out)
}

func (c *CatalogClient) ListCategories(ctx context.Context) ([]domain.Category, error) {
	out, err := c.invoke(ctx, MethodListCategories, map[string]any{})
	if err != nil {
		return nil, err
	}
	var cats []domain.Category
	for _, v := range out.GetFields()["categories"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		cat := domain.Category{ID: f["id"].GetStringValue(), Name: f["name"].GetStringValue()}
		if cat.ID == "" {
			return nil, fmt.Errorf("%w: category without id", ErrMalformedReply)
		}
		cat.CreatedAt = parseTime(f["created_at"])
		cats = append(cats, cat)
	}
	return cats, nil
}

func decodeProducts(s *structpb.Struct) ([]domain.Product, error) {
	var out []domain.Product
	for _, v := range s.GetFields()["products"].GetListValue().GetValues() {
		p, err := decodeProduct(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func decodeProduct(s *structpb.Struct) (*domain.Product, error) {
	f := s.GetFields()
	p := &domain.Product{
		ID:          f["id"].GetStringValue(),
		Name:        f["name"].GetStringValue(),
		Description: f["description"].GetStringValue(),
		Stock:       int(f["stock"].GetNumberValue()),
		CategoryID:  f["category_id"].GetStringValue(),
		ImageURL:    f["image_url"].GetStringValue(),
		CreatedAt:   parseTime(f["created_at"]),
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: product without id", ErrMalformedReply)
	}
	price, err := decimal.NewFromString(f["price"].GetStringValue())
	if err != nil || price.IsNegative() {
		return nil, fmt.Errorf("%w: product %s price %q", ErrMalformedReply, p.ID, f["price"].GetStringValue())
	}
	p.Price = price
	return p, nil
}

func parseTime(v *structpb.Value) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v.GetStringValue())
	return t
}

var _ usecase.CatalogReader = (*CatalogClient)(nil)
