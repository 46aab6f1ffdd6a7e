package model

import "time"

// Order status values stored in the orders.status enum column.
const (
	OrderPending  = "pending"
	OrderPaid     = "paid"
	OrderCanceled = "canceled"
)

// Payment status values stored in the payments.status enum column.
const (
	PaymentSuccessful = "successful"
	PaymentCanceled   = "canceled"
	PaymentRefunded   = "refunded"
)

// Order mirrors the `orders` table.
type Order struct {
	ID          uint64      // orders.id
	UserID      uint64      // orders.user_id
	Status      string      // orders.status
	TotalAmount string      // orders.total_amount, DECIMAL(10,2)
	CreatedAt   time.Time   // orders.created_at
	Items       []OrderItem // joined from order_items
}

// OrderItem mirrors the `order_items` table. PriceAtOrder freezes the movie
// price at checkout time so later catalog edits do not change old orders.
type OrderItem struct {
	ID           uint64 // order_items.id
	OrderID      uint64 // order_items.order_id
	MovieID      uint64 // order_items.movie_id
	MovieName    string // movies.name, joined
	PriceAtOrder string // order_items.price_at_order
}

// Payment mirrors the `payments` table; one row per successful webhook event.
type Payment struct {
	ID                uint64    // payments.id
	UserID            uint64    // payments.user_id
	OrderID           uint64    // payments.order_id
	Amount            string    // payments.amount
	Status            string    // payments.status
	ExternalPaymentID string    // payments.external_payment_id
	CreatedAt         time.Time // payments.created_at
}
