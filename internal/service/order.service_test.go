package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"shop-api/internal/domain"
)

// Validation failures must be rejected before any database work. The nil db
// would panic if PlaceOrder ever reached BeginTx.
func TestPlaceOrderRejectsBadInputBeforeAnyWrite(t *testing.T) {
	svc := NewOrderService(nil, nil, nil, nil, nil)

	cases := []struct {
		name  string
		lines []OrderLineInput
	}{
		{"empty lines", []OrderLineInput{}},
		{"nil lines", nil},
		{"zero quantity", []OrderLineInput{{ProductID: 1, Quantity: 0, Price: 10}}},
		{"negative quantity", []OrderLineInput{{ProductID: 1, Quantity: -2, Price: 10}}},
		{"negative price", []OrderLineInput{{ProductID: 1, Quantity: 1, Price: -0.5}}},
		{"missing product id", []OrderLineInput{{Quantity: 1, Price: 10}}},
		{"bad line after good one", []OrderLineInput{
			{ProductID: 1, Quantity: 1, Price: 10},
			{ProductID: 2, Quantity: 0, Price: 5},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order, err := svc.PlaceOrder(context.Background(), 1, tc.lines)
			assert.Nil(t, order)
			assert.True(t, errors.Is(err, domain.ErrValidation), "want ErrValidation, got %v", err)
		})
	}
}

func TestValidateLinesAcceptsZeroPrice(t *testing.T) {
	// Free items are allowed; only negative prices are rejected.
	err := validateLines([]OrderLineInput{{ProductID: 1, Quantity: 1, Price: 0}})
	assert.NoError(t, err)
}

func TestInsufficientStockErrorNamesTheShortfall(t *testing.T) {
	err := domain.InsufficientStock(7, 10, 5)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Contains(t, err.Error(), "product 7")
	assert.Contains(t, err.Error(), "requested 10")
	assert.Contains(t, err.Error(), "available 5")
	// Distinguishable from a missing product.
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}
