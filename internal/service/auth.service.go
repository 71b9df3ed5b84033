package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"shop-api/internal/domain"
	"shop-api/internal/repo"
)

const (
	accessTokenTTL  = time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
	bcryptCost      = 10
)

// Claims is what a bearer token carries: enough to resolve the caller
// without a user lookup on every request.
type Claims struct {
	UserID   int64           `json:"-"`
	Username string          `json:"username"`
	Role     domain.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// LoginResult is the wire shape of a successful login.
type LoginResult struct {
	User        domain.User `json:"user"`
	AccessToken string      `json:"access_token"`
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(ctx context.Context, userID int64) error
	Verify(tokenString string) (*Claims, error)

	// Building blocks shared with registration.
	HashPassword(password string) (string, error)
	IssueAccessToken(user *domain.User) (string, error)
}

type authService struct {
	userRepo repo.UserRepo
	secret   []byte
}

func NewAuthService(userRepo repo.UserRepo, secret string) AuthService {
	return &authService{userRepo: userRepo, secret: []byte(secret)}
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	// Same message for unknown user and bad password.
	if user == nil || !user.IsActive {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	refreshToken, err := s.issueToken(user, refreshTokenTTL)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := s.userRepo.UpdateLoginState(ctx, user.ID, now, refreshToken); err != nil {
		return nil, err
	}
	user.LastLogin = &now
	user.RefreshToken = refreshToken

	accessToken, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: user.Sanitized(), AccessToken: accessToken}, nil
}

func (s *authService) Logout(ctx context.Context, userID int64) error {
	return s.userRepo.ClearRefreshToken(ctx, userID)
}

func (s *authService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *authService) IssueAccessToken(user *domain.User) (string, error) {
	return s.issueToken(user, accessTokenTTL)
}

func (s *authService) issueToken(user *domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *authService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthorized)
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil {
		return nil, fmt.Errorf("%w: malformed token subject", domain.ErrUnauthorized)
	}
	claims.UserID = userID
	return claims, nil
}
