package repo

import (
	"context"
	"database/sql"
	"time"

	"shop-api/internal/domain"
)

type UserRepo interface {
	FindById(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// ExistsByUsernameOrEmail backs the duplicate check at registration.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, tx *sql.Tx, user *domain.User) error
	UpdateLoginState(ctx context.Context, id int64, lastLogin time.Time, refreshToken string) error
	ClearRefreshToken(ctx context.Context, id int64) error
	CountByRole(ctx context.Context, role domain.UserRole) (int, error)
}

type userRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

const userColumns = "id, username, email, password, full_name, role, is_active, last_login, refresh_token, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Password,
		&u.FullName,
		&u.Role,
		&u.IsActive,
		&u.LastLogin,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) FindById(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id,
	))
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username,
	))
}

func (r *userRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)",
		username, email,
	).Scan(&exists)
	return exists, err
}

func (r *userRepo) Create(ctx context.Context, tx *sql.Tx, user *domain.User) error {
	return tx.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password, full_name, role, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		user.Username, user.Email, user.Password, user.FullName, user.Role, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepo) UpdateLoginState(ctx context.Context, id int64, lastLogin time.Time, refreshToken string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET last_login = $1, refresh_token = $2, updated_at = now() WHERE id = $3",
		lastLogin, refreshToken, id,
	)
	return err
}

func (r *userRepo) ClearRefreshToken(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET refresh_token = '', updated_at = now() WHERE id = $1", id,
	)
	return err
}

func (r *userRepo) CountByRole(ctx context.Context, role domain.UserRole) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role = $1", role,
	).Scan(&count)
	return count, err
}
