package domain

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// CanTransitionTo enforces the fulfillment lifecycle: pending -> shipped ->
// delivered, with cancellation allowed from any non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderPending:
		return next == OrderShipped || next == OrderCancelled
	case OrderShipped:
		return next == OrderDelivered || next == OrderCancelled
	default:
		return false
	}
}

type Order struct {
	ID         int64       `json:"id"`
	CustomerID int64       `json:"customerId"`
	OrderDate  time.Time   `json:"orderDate"`
	Status     OrderStatus `json:"status"`
	Lines      []OrderLine `json:"orderDetails"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Total is always derived from the lines; there is no stored total to drift.
func (o *Order) Total() float64 {
	var sum float64
	for _, l := range o.Lines {
		sum += float64(l.Quantity) * l.Price
	}
	return sum
}

// OrderLine snapshots the unit price at purchase time so later catalog price
// changes do not rewrite history.
type OrderLine struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"orderId"`
	ProductID int64     `json:"productId"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
