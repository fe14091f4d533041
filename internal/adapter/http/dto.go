package http

import (
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

type cartItemResp struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice string    `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	ImageURL  string    `json:"image_url,omitempty"`
	Stock     int       `json:"stock"`
	AddedAt   time.Time `json:"added_at"`
}

type cartLineResp struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cartResp struct {
	Items    []cartItemResp `json:"items"`
	Subtotal int64          `json:"subtotal"`
}

type paymentResp struct {
	ID            string `json:"id"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
}

type orderResp struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	Status          string       `json:"status"`
	PaymentMethod   string       `json:"payment_method"`
	Subtotal        int64        `json:"subtotal"`
	DeliveryCharge  int64        `json:"delivery_charge"`
	TotalPrice      int64        `json:"total_price"`
	GrandTotal      int64        `json:"grand_total"`
	CustomerName    string       `json:"customer_name"`
	CustomerPhone   string       `json:"customer_phone"`
	CustomerAddress string       `json:"customer_address"`
	CustomerEmail   string       `json:"customer_email,omitempty"`
	DeliveryZone    string       `json:"delivery_zone"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	Payment         *paymentResp `json:"payment,omitempty"`
}

type productResp struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	InStock     bool      `json:"in_stock"`
	CategoryID  string    `json:"category_id,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type categoryResp struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toCartItems(items []domain.CartItem) []cartItemResp {
	out := make([]cartItemResp, 0, len(items))
	for _, it := range items {
		out = append(out, cartItemResp{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice.String(),
			Quantity:  it.Quantity,
			ImageURL:  it.ImageURL,
			Stock:     it.Stock,
			AddedAt:   it.CreatedAt,
		})
	}
	return out
}

func toCartLine(l *domain.CartLine) cartLineResp {
	return cartLineResp{ID: l.ID, ProductID: l.ProductID, Quantity: l.Quantity}
}

func toOrder(o domain.Order) orderResp {
	return orderResp{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		PaymentMethod:   string(o.PaymentMethod),
		Subtotal:        o.Subtotal,
		DeliveryCharge:  o.DeliveryCharge,
		TotalPrice:      o.TotalPrice,
		GrandTotal:      o.GrandTotal,
		CustomerName:    o.Customer.Name,
		CustomerPhone:   o.Customer.Phone,
		CustomerAddress: o.Customer.Address,
		DeliveryZone:    o.DeliveryZone,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toOrders(orders []domain.Order) []orderResp {
	out := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrder(o))
	}
	return out
}

func toAdminOrders(orders []domain.AdminOrder) []orderResp {
	out := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		r := toOrder(o.Order)
		r.CustomerEmail = o.CustomerEmail
		out = append(out, r)
	}
	return out
}

func toOrderDetail(d *usecase.OrderDetail) orderResp {
	r := toOrder(d.Order)
	if d.Payment != nil {
		r.Payment = &paymentResp{
			ID:            d.Payment.ID,
			Amount:        d.Payment.Amount,
			Status:        string(d.Payment.Status),
			PaymentMethod: string(d.Payment.PaymentMethod),
		}
	}
	return r
}

func toProduct(p domain.Product) productResp {
	return productResp{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		Stock:       p.Stock,
		InStock:     p.InStock(),
		CategoryID:  p.CategoryID,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
	}
}
