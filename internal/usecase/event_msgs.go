package usecase

import "time"

const (
	ChannelOrderPlaced        = "order.placed"
	ChannelOrderStatusChanged = "order.status_changed"
)

// Published on RabbitMQ after a checkout commits.
type OrderPlacedMsg struct {
	OrderID      string    `json:"orderId"`
	UserID       string    `json:"userId"`
	Status       string    `json:"status"`
	CustomerName string    `json:"customerName"`
	DeliveryZone string    `json:"deliveryZone"`
	GrandTotal   int64     `json:"grandTotal"`
	PlacedAt     time.Time `json:"placedAt"`
}

// Produced on Kafka after an admin moves an order.
type OrderStatusChangedMsg struct {
	OrderID   string    `json:"orderId"`
	UserID    string    `json:"userId"`
	From      string    `json:"from"`
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changedAt"`
}
