package domain

import "time"

// Location is the shipper's reported position. Kept as an explicit pair
// rather than an untyped json blob.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type OrderTracking struct {
	ID          int64       `json:"id"`
	OrderID     int64       `json:"orderId"`
	Status      OrderStatus `json:"status"`
	Note        string      `json:"note,omitempty"`
	UpdatedByID int64       `json:"updatedById"`
	Location    *Location   `json:"location,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}
