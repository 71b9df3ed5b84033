package service

import (
	"context"
	"database/sql"
	"fmt"

	"shop-api/internal/database"
	"shop-api/internal/domain"
	"shop-api/internal/repo"
)

type AdvanceStatusInput struct {
	Status   domain.OrderStatus `json:"status"`
	Note     string             `json:"note"`
	Location *domain.Location   `json:"location"`
}

type TrackingService interface {
	AdvanceStatus(ctx context.Context, orderID int64, input AdvanceStatusInput, byUserID int64) (*domain.Order, error)
	History(ctx context.Context, orderID, userID int64, isAdmin bool) ([]domain.OrderTracking, error)
}

type trackingService struct {
	db           *sql.DB
	orderRepo    repo.OrderRepo
	productRepo  repo.ProductRepo
	customerRepo repo.CustomerRepo
	trackingRepo repo.TrackingRepo
}

func NewTrackingService(db *sql.DB, orderRepo repo.OrderRepo, productRepo repo.ProductRepo, customerRepo repo.CustomerRepo, trackingRepo repo.TrackingRepo) TrackingService {
	return &trackingService{
		db:           db,
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		trackingRepo: trackingRepo,
	}
}

// AdvanceStatus moves an order through its lifecycle and appends a tracking
// row, in one transaction. Cancelling also returns every line's quantity to
// stock, pairing the compensation with the status change.
func (s *trackingService) AdvanceStatus(ctx context.Context, orderID int64, input AdvanceStatusInput, byUserID int64) (*domain.Order, error) {
	switch input.Status {
	case domain.OrderShipped, domain.OrderDelivered, domain.OrderCancelled:
	default:
		return nil, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, input.Status)
	}

	order, err := s.orderRepo.FindById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.OrderNotFound(orderID)
	}
	if !order.Status.CanTransitionTo(input.Status) {
		return nil, fmt.Errorf("%w: cannot move order %d from %s to %s",
			domain.ErrValidation, orderID, order.Status, input.Status)
	}

	tx, err := database.BeginTx(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// The update is conditional on the status we validated against. If a
	// concurrent actor moved the order first, zero rows match and nothing
	// here applies, so the compensation below can never run twice.
	applied, err := s.orderRepo.UpdateOrderStatus(ctx, tx, orderID, order.Status, input.Status)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: order %d is no longer %s", domain.ErrConflict, orderID, order.Status)
	}

	if input.Status == domain.OrderCancelled {
		for _, line := range order.Lines {
			if err := s.productRepo.Restock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return nil, err
			}
		}
	}

	tracking := &domain.OrderTracking{
		OrderID:     orderID,
		Status:      input.Status,
		Note:        input.Note,
		UpdatedByID: byUserID,
		Location:    input.Location,
	}
	if err := s.trackingRepo.Create(ctx, tx, tracking); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	order.Status = input.Status
	return order, nil
}

// History returns an order's tracking trail. Customers only see their own
// orders; a foreign order reads the same as a missing one. Admins see all.
func (s *trackingService) History(ctx context.Context, orderID, userID int64, isAdmin bool) ([]domain.OrderTracking, error) {
	order, err := s.orderRepo.FindById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.OrderNotFound(orderID)
	}
	if !isAdmin {
		customer, err := s.customerRepo.FindByUserId(ctx, userID)
		if err != nil {
			return nil, err
		}
		if customer == nil || order.CustomerID != customer.ID {
			return nil, domain.OrderNotFound(orderID)
		}
	}
	return s.trackingRepo.ListByOrder(ctx, orderID)
}
