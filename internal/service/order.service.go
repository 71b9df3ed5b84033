package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shop-api/internal/database"
	"shop-api/internal/domain"
	"shop-api/internal/repo"
)

// OrderLineInput is one requested (product, quantity, price) tuple. Price is
// the unit price the caller asserts; it is persisted as the snapshot.
type OrderLineInput struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type OrderService interface {
	PlaceOrder(ctx context.Context, userID int64, lines []OrderLineInput) (*domain.Order, error)
	GetOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error)
	ListCustomerOrders(ctx context.Context, userID int64) ([]domain.Order, error)
}

type orderService struct {
	db           *sql.DB
	orderRepo    repo.OrderRepo
	productRepo  repo.ProductRepo
	customerRepo repo.CustomerRepo
	trackingRepo repo.TrackingRepo
}

func NewOrderService(
	db *sql.DB,
	orderRepo repo.OrderRepo,
	productRepo repo.ProductRepo,
	customerRepo repo.CustomerRepo,
	trackingRepo repo.TrackingRepo,
) OrderService {
	return &orderService{
		db:           db,
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		trackingRepo: trackingRepo,
	}
}

func validateLines(lines []OrderLineInput) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: order must contain at least one line", domain.ErrValidation)
	}
	for i, line := range lines {
		if line.ProductID <= 0 {
			return fmt.Errorf("%w: line %d: productId is required", domain.ErrValidation, i)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %d: quantity must be positive", domain.ErrValidation, i)
		}
		if line.Price < 0 {
			return fmt.Errorf("%w: line %d: price must not be negative", domain.ErrValidation, i)
		}
	}
	return nil
}

// PlaceOrder runs the whole placement as one transaction. Product rows are
// locked with SELECT ... FOR UPDATE before the stock check, so two concurrent
// orders on the same product serialize and stock can never go below zero.
// Any failure rolls back every decrement along with the order rows.
func (s *orderService) PlaceOrder(ctx context.Context, userID int64, lines []OrderLineInput) (*domain.Order, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	tx, err := database.BeginTx(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	customer, err := s.customerRepo.FindByUserIdTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.CustomerNotFound(userID)
	}

	// Check and decrement stock line by line, in input order. The row lock
	// held by FindByIdForUpdate makes the read-check-write atomic.
	for _, line := range lines {
		product, err := s.productRepo.FindByIdForUpdate(ctx, tx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, domain.ProductNotFound(line.ProductID)
		}
		if product.Quantity < line.Quantity {
			return nil, domain.InsufficientStock(line.ProductID, line.Quantity, product.Quantity)
		}
		if err := s.productRepo.DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
	}

	order := &domain.Order{
		CustomerID: customer.ID,
		OrderDate:  time.Now(),
		Status:     domain.OrderPending,
	}
	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	orderLines := make([]domain.OrderLine, len(lines))
	for i, line := range lines {
		orderLines[i] = domain.OrderLine{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		}
	}
	if err := s.orderRepo.CreateLines(ctx, tx, orderLines); err != nil {
		return nil, err
	}
	order.Lines = orderLines

	tracking := &domain.OrderTracking{
		OrderID:     order.ID,
		Status:      domain.OrderPending,
		Note:        "order placed",
		UpdatedByID: userID,
	}
	if err := s.trackingRepo.Create(ctx, tx, tracking); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	customer, err := s.customerRepo.FindByUserId(ctx, userID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.CustomerNotFound(userID)
	}

	order, err := s.orderRepo.FindById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.CustomerID != customer.ID {
		// A foreign order reads the same as a missing one.
		return nil, domain.OrderNotFound(orderID)
	}
	return order, nil
}

func (s *orderService) ListCustomerOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	customer, err := s.customerRepo.FindByUserId(ctx, userID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.CustomerNotFound(userID)
	}
	return s.orderRepo.FindByCustomer(ctx, customer.ID)
}
