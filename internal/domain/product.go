package domain

import "time"

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	UnitPrice   float64   `json:"unitPrice"`
	ProductCode int64     `json:"productCode"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProductPage is the wire shape of a paginated catalog read.
type ProductPage struct {
	Data  []Product `json:"data"`
	Total int       `json:"total"`
}
