package domain

import "time"

type PaymentStatus string

const PaymentStatusPending PaymentStatus = "pending"

type Payment struct {
	ID            string
	OrderID       string
	Amount        int64
	Status        PaymentStatus
	PaymentMethod PaymentMethod
	CreatedAt     time.Time
}
