package repo

import (
	"context"
	"database/sql"

	"shop-api/internal/domain"
)

type AdminRepo interface {
	Create(ctx context.Context, tx *sql.Tx, admin *domain.Admin) error
	FindByUserId(ctx context.Context, userID int64) (*domain.Admin, error)
}

type adminRepo struct {
	db *sql.DB
}

func NewAdminRepo(db *sql.DB) AdminRepo {
	return &adminRepo{db: db}
}

func (r *adminRepo) Create(ctx context.Context, tx *sql.Tx, admin *domain.Admin) error {
	return tx.QueryRowContext(ctx,
		`INSERT INTO admins (user_id) VALUES ($1) RETURNING id, created_at, updated_at`,
		admin.UserID,
	).Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
}

func (r *adminRepo) FindByUserId(ctx context.Context, userID int64) (*domain.Admin, error) {
	var a domain.Admin
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, created_at, updated_at FROM admins WHERE user_id = $1", userID,
	).Scan(&a.ID, &a.UserID, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
