package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"shop-api/internal/database"
	"shop-api/internal/domain"
	"shop-api/internal/repo"
)

type AdminRegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type DashboardData struct {
	AdminCount    int `json:"adminCount"`
	CustomerCount int `json:"customerCount"`
}

type AdminService interface {
	Register(ctx context.Context, input AdminRegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Dashboard(ctx context.Context) (*DashboardData, error)
}

type adminService struct {
	db        *sql.DB
	userRepo  repo.UserRepo
	adminRepo repo.AdminRepo
	auth      AuthService
}

func NewAdminService(db *sql.DB, userRepo repo.UserRepo, adminRepo repo.AdminRepo, auth AuthService) AdminService {
	return &adminService{db: db, userRepo: userRepo, adminRepo: adminRepo, auth: auth}
}

func (s *adminService) Register(ctx context.Context, input AdminRegisterInput) (*domain.User, error) {
	switch {
	case strings.TrimSpace(input.Username) == "":
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	case !strings.Contains(input.Email, "@"):
		return nil, fmt.Errorf("%w: email is not valid", domain.ErrValidation)
	case len(input.Password) < 6:
		return nil, fmt.Errorf("%w: password must be at least 6 characters", domain.ErrValidation)
	case strings.TrimSpace(input.FullName) == "":
		return nil, fmt.Errorf("%w: fullName is required", domain.ErrValidation)
	}

	exists, err := s.userRepo.ExistsByUsernameOrEmail(ctx, input.Username, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: username or email already exists", domain.ErrConflict)
	}

	hashed, err := s.auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	tx, err := database.BeginTx(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	user := &domain.User{
		Username: input.Username,
		Email:    input.Email,
		Password: hashed,
		FullName: input.FullName,
		Role:     domain.RoleAdmin,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, tx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username or email already exists", domain.ErrConflict)
		}
		return nil, err
	}

	admin := &domain.Admin{UserID: user.ID}
	if err := s.adminRepo.Create(ctx, tx, admin); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// Login is the regular login plus a role gate. The gate runs after the
// credential check and reuses its message, so a failed attempt reads the
// same whether the account is unknown, wrong-password, or not an admin.
func (s *adminService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	result, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if result.User.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	return result, nil
}

func (s *adminService) Dashboard(ctx context.Context) (*DashboardData, error) {
	adminCount, err := s.userRepo.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	customerCount, err := s.userRepo.CountByRole(ctx, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}
	return &DashboardData{AdminCount: adminCount, CustomerCount: customerCount}, nil
}
