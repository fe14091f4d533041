package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  string
	ImageURL    string
	CreatedAt   time.Time
}

func (p Product) InStock() bool { return p.Stock > 0 }

type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type ProductFilter struct {
	CategoryID string
	Limit      int
	Offset     int
}
