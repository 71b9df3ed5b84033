package repo

import (
	"context"
	"database/sql"
	"time"

	"shop-api/internal/domain"
)

type OrderRepo interface {
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	CreateLines(ctx context.Context, tx *sql.Tx, lines []domain.OrderLine) error
	FindById(ctx context.Context, id int64) (*domain.Order, error)
	FindByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error)
	// UpdateOrderStatus applies the transition only while the row still
	// holds the expected status; reports whether a row was updated.
	UpdateOrderStatus(ctx context.Context, tx *sql.Tx, id int64, from, to domain.OrderStatus) (bool, error)
	// FindStuckPending returns ids of pending orders older than the cutoff,
	// for the restock sweeper.
	FindStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]int64, error)
	LinesByOrder(ctx context.Context, tx *sql.Tx, orderID int64) ([]domain.OrderLine, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

func (or *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	return tx.QueryRowContext(ctx,
		`INSERT INTO orders (customer_id, order_date, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		order.CustomerID, order.OrderDate, order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
}

func (or *orderRepo) CreateLines(ctx context.Context, tx *sql.Tx, lines []domain.OrderLine) error {
	for i := range lines {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO order_details (order_id, product_id, quantity, price)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, created_at, updated_at`,
			lines[i].OrderID, lines[i].ProductID, lines[i].Quantity, lines[i].Price,
		).Scan(&lines[i].ID, &lines[i].CreatedAt, &lines[i].UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (or *orderRepo) FindById(ctx context.Context, id int64) (*domain.Order, error) {
	var order domain.Order
	err := or.db.QueryRowContext(ctx,
		"SELECT id, customer_id, order_date, status, created_at, updated_at FROM orders WHERE id = $1", id,
	).Scan(
		&order.ID,
		&order.CustomerID,
		&order.OrderDate,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err // system error
	}

	lines, err := or.LinesByOrder(ctx, nil, order.ID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return &order, nil
}

func (or *orderRepo) LinesByOrder(ctx context.Context, tx *sql.Tx, orderID int64) ([]domain.OrderLine, error) {
	query := "SELECT id, order_id, product_id, quantity, price, created_at, updated_at FROM order_details WHERE order_id = $1 ORDER BY id"

	var rows *sql.Rows
	var err error
	if tx != nil {
		rows, err = tx.QueryContext(ctx, query, orderID)
	} else {
		rows, err = or.db.QueryContext(ctx, query, orderID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.Price, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (or *orderRepo) FindByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	rows, err := or.db.QueryContext(ctx,
		"SELECT id, customer_id, order_date, status, created_at, updated_at FROM orders WHERE customer_id = $1 ORDER BY order_date DESC",
		customerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.CustomerID,
			&order.OrderDate,
			&order.Status,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		lines, err := or.LinesByOrder(ctx, nil, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

func (or *orderRepo) UpdateOrderStatus(ctx context.Context, tx *sql.Tx, id int64, from, to domain.OrderStatus) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = now() WHERE id = $2 AND status = $3",
		to, id, from,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (or *orderRepo) FindStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]int64, error) {
	rows, err := or.db.QueryContext(ctx,
		"SELECT id FROM orders WHERE status = 'pending' AND created_at < $1 ORDER BY id LIMIT $2",
		time.Now().Add(-olderThan), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
