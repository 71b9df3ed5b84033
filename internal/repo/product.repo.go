package repo

import (
	"context"
	"database/sql"

	"shop-api/internal/domain"
)

type ProductRepo interface {
	List(ctx context.Context, offset, limit int) ([]domain.Product, int, error)
	Search(ctx context.Context, query string, offset, limit int) ([]domain.Product, int, error)
	FindById(ctx context.Context, id int64) (*domain.Product, error)
	// FindByIdForUpdate locks the product row for the lifetime of tx so the
	// stock check and decrement are atomic against concurrent orders.
	FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Product, error)
	DecrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int) error
	Restock(ctx context.Context, tx *sql.Tx, id int64, quantity int) error
	Create(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) (bool, error)
}

type productRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepo {
	return &productRepo{db: db}
}

const productColumns = "id, name, unit_price, product_code, quantity, created_at, updated_at"

func scanProduct(row interface{ Scan(...any) error }, p *domain.Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.UnitPrice,
		&p.ProductCode,
		&p.Quantity,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func (r *productRepo) List(ctx context.Context, offset, limit int) ([]domain.Product, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY id LIMIT $1 OFFSET $2",
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepo) Search(ctx context.Context, query string, offset, limit int) ([]domain.Product, int, error) {
	pattern := "%" + query + "%"

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE name ILIKE $1", pattern,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE name ILIKE $1 ORDER BY id LIMIT $2 OFFSET $3",
		pattern, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func collectProducts(rows *sql.Rows) ([]domain.Product, error) {
	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepo) FindById(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := scanProduct(r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id,
	), &p)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Product, error) {
	var p domain.Product
	err := scanProduct(tx.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", id,
	), &p)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) DecrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE products SET quantity = quantity - $1, updated_at = now() WHERE id = $2",
		quantity, id,
	)
	return err
}

func (r *productRepo) Restock(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE products SET quantity = quantity + $1, updated_at = now() WHERE id = $2",
		quantity, id,
	)
	return err
}

func (r *productRepo) Create(ctx context.Context, p *domain.Product) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO products (name, unit_price, product_code, quantity)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.UnitPrice, p.ProductCode, p.Quantity,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *productRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
