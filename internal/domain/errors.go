package domain

import (
	"errors"
	"fmt"
)

// Error kinds the API layer maps to HTTP statuses. Services wrap these
// with %w so callers can match with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

func ProductNotFound(id int64) error {
	return fmt.Errorf("%w: product %d", ErrNotFound, id)
}

func CustomerNotFound(userID int64) error {
	return fmt.Errorf("%w: customer for user %d", ErrNotFound, userID)
}

func OrderNotFound(id int64) error {
	return fmt.Errorf("%w: order %d", ErrNotFound, id)
}

// InsufficientStock names the product, the requested quantity and what is
// actually available, so the client can tell it apart from a missing product.
func InsufficientStock(productID int64, requested, available int) error {
	return fmt.Errorf("%w: product %d: requested %d, available %d",
		ErrInsufficientStock, productID, requested, available)
}
