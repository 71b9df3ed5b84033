package repo

import (
	"context"
	"database/sql"
	"time"

	"shop-api/internal/domain"
)

// TopCustomer is a derived analytics row: a customer whose spend exceeds the
// revenue threshold.
type TopCustomer struct {
	CustomerID        int64   `json:"customerId"`
	CustomerName      string  `json:"customerName"`
	ContactName       string  `json:"contactName"`
	Country           string  `json:"country"`
	TotalSpent        float64 `json:"totalSpent"`
	PercentageOfTotal float64 `json:"percentageOfTotal"`
}

// OrderSummary is an order with its derived total, for the admin listing.
type OrderSummary struct {
	OrderID      int64     `json:"orderId"`
	OrderDate    time.Time `json:"orderDate"`
	CustomerName string    `json:"customerName"`
	TotalAmount  float64   `json:"totalAmount"`
}

type CustomerRepo interface {
	FindById(ctx context.Context, id int64) (*domain.Customer, error)
	FindByUserId(ctx context.Context, userID int64) (*domain.Customer, error)
	// FindByUserIdTx resolves the customer inside the order-placement
	// transaction so the whole flow sees one consistent snapshot.
	FindByUserIdTx(ctx context.Context, tx *sql.Tx, userID int64) (*domain.Customer, error)
	Create(ctx context.Context, tx *sql.Tx, customer *domain.Customer) error
	TopSpending(ctx context.Context, thresholdShare float64) ([]TopCustomer, error)
	OrderSummaries(ctx context.Context) ([]OrderSummary, error)
}

type customerRepo struct {
	db *sql.DB
}

func NewCustomerRepo(db *sql.DB) CustomerRepo {
	return &customerRepo{db: db}
}

const customerColumns = "id, name, contact_name, country, user_id, created_at, updated_at"

func scanCustomer(row interface{ Scan(...any) error }) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.ContactName,
		&c.Country,
		&c.UserID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *customerRepo) FindById(ctx context.Context, id int64) (*domain.Customer, error) {
	return scanCustomer(r.db.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE id = $1", id,
	))
}

func (r *customerRepo) FindByUserId(ctx context.Context, userID int64) (*domain.Customer, error) {
	return scanCustomer(r.db.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE user_id = $1", userID,
	))
}

func (r *customerRepo) FindByUserIdTx(ctx context.Context, tx *sql.Tx, userID int64) (*domain.Customer, error) {
	return scanCustomer(tx.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE user_id = $1", userID,
	))
}

func (r *customerRepo) Create(ctx context.Context, tx *sql.Tx, customer *domain.Customer) error {
	return tx.QueryRowContext(ctx,
		`INSERT INTO customers (name, contact_name, country, user_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		customer.Name, customer.ContactName, customer.Country, customer.UserID,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
}

// TopSpending returns customers whose derived spend exceeds thresholdShare of
// total revenue, sorted by spend descending. Totals are always computed from
// order lines.
func (r *customerRepo) TopSpending(ctx context.Context, thresholdShare float64) ([]TopCustomer, error) {
	rows, err := r.db.QueryContext(ctx, `
		WITH revenue AS (
			SELECT COALESCE(SUM(od.price * od.quantity), 0) AS total FROM order_details od
		),
		spending AS (
			SELECT c.id, c.name, c.contact_name, c.country,
			       COALESCE(SUM(od.price * od.quantity), 0) AS spent
			FROM customers c
			LEFT JOIN orders o ON o.customer_id = c.id
			LEFT JOIN order_details od ON od.order_id = o.id
			GROUP BY c.id, c.name, c.contact_name, c.country
		)
		SELECT s.id, s.name, s.contact_name, s.country, s.spent,
		       CASE WHEN r.total > 0 THEN s.spent / r.total * 100 ELSE 0 END
		FROM spending s, revenue r
		WHERE r.total > 0 AND s.spent > r.total * $1
		ORDER BY s.spent DESC`,
		thresholdShare,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []TopCustomer
	for rows.Next() {
		var tc TopCustomer
		if err := rows.Scan(&tc.CustomerID, &tc.CustomerName, &tc.ContactName, &tc.Country, &tc.TotalSpent, &tc.PercentageOfTotal); err != nil {
			return nil, err
		}
		customers = append(customers, tc)
	}
	return customers, rows.Err()
}

func (r *customerRepo) OrderSummaries(ctx context.Context) ([]OrderSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.order_date, c.name,
		       COALESCE(SUM(od.price * od.quantity), 0)
		FROM orders o
		JOIN customers c ON o.customer_id = c.id
		LEFT JOIN order_details od ON od.order_id = o.id
		GROUP BY o.id, o.order_date, c.name
		ORDER BY o.order_date DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []OrderSummary
	for rows.Next() {
		var s OrderSummary
		if err := rows.Scan(&s.OrderID, &s.OrderDate, &s.CustomerName, &s.TotalAmount); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
