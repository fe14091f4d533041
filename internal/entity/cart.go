package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine binds one user to one product. (UserID, ProductID) is unique.
type CartLine struct {
	ID        string
	UserID    string
	ProductID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is a cart line joined with the live catalog entry, for display only.
type CartItem struct {
	CartLine
	Name      string
	UnitPrice decimal.Decimal
	ImageURL  string
	Stock     int
}
