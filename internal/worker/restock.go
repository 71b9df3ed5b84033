package worker

import (
	"context"
	"database/sql"
	"log"
	"time"

	"shop-api/internal/database"
	"shop-api/internal/domain"
	"shop-api/internal/repo"
)

const sweepBatchSize = 100

// RestockWorker cancels orders that sat in pending longer than the TTL and
// returns their stock. Each order is repaired in its own transaction so one
// bad order does not block the rest of the sweep.
type RestockWorker struct {
	db           *sql.DB
	orderRepo    repo.OrderRepo
	productRepo  repo.ProductRepo
	trackingRepo repo.TrackingRepo
	interval     time.Duration
	ttl          time.Duration
}

func NewRestockWorker(
	db *sql.DB,
	orderRepo repo.OrderRepo,
	productRepo repo.ProductRepo,
	trackingRepo repo.TrackingRepo,
	interval time.Duration,
	ttl time.Duration,
) *RestockWorker {
	return &RestockWorker{
		db:           db,
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		trackingRepo: trackingRepo,
		interval:     interval,
		ttl:          ttl,
	}
}

func (rw *RestockWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	log.Println("Restock worker started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rw.Process(ctx); err != nil {
				log.Printf("Restock sweep failed: %v", err)
			}
		}
	}
}

// Process runs a single sweep.
func (rw *RestockWorker) Process(ctx context.Context) error {
	stuck, err := rw.orderRepo.FindStuckPending(ctx, rw.ttl, sweepBatchSize)
	if err != nil {
		return err
	}

	if len(stuck) == 0 {
		return nil
	}

	log.Printf("Found %d abandoned pending orders. Cancelling...", len(stuck))

	for _, orderID := range stuck {
		if err := rw.cancelAndRestock(ctx, orderID); err != nil {
			// Skip and let the next sweep pick it up.
			log.Printf("Failed to cancel order %d: %v", orderID, err)
			continue
		}
		log.Printf("Cancelled abandoned order %d and returned its stock", orderID)
	}
	return nil
}

func (rw *RestockWorker) cancelAndRestock(ctx context.Context, orderID int64) error {
	order, err := rw.orderRepo.FindById(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil || order.Status != domain.OrderPending {
		return nil // already handled
	}

	tx, err := database.BeginTx(ctx, rw.db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Conditional on the order still being pending: if an admin cancelled or
	// shipped it since the snapshot above, zero rows match and the restock
	// must not run.
	applied, err := rw.orderRepo.UpdateOrderStatus(ctx, tx, orderID, domain.OrderPending, domain.OrderCancelled)
	if err != nil {
		return err
	}
	if !applied {
		return nil // someone else moved it; their transaction owns the compensation
	}

	for _, line := range order.Lines {
		if err := rw.productRepo.Restock(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}

	tracking := &domain.OrderTracking{
		OrderID:     orderID,
		Status:      domain.OrderCancelled,
		Note:        "cancelled automatically: pending past TTL",
		UpdatedByID: 0,
	}
	if err := rw.trackingRepo.Create(ctx, tx, tracking); err != nil {
		return err
	}

	return tx.Commit()
}
