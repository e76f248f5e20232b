package service

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// AuthProvider — источник учетных записей (Postgres)
type AuthProvider interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// AuthService выпускает RS256-токены доступа к движку.
// Scopes зашиваются в токен при выпуске, так что права на решение
// по заявкам проверяются без похода в БД.
type AuthService struct {
	repo       AuthProvider
	privateKey *rsa.PrivateKey
	tokenTTL   time.Duration
}

func NewAuthService(repo AuthProvider, privateKey *rsa.PrivateKey, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		repo:       repo,
		privateKey: privateKey,
		tokenTTL:   tokenTTL,
	}
}

// GenerateToken сверяет пару логин/пароль и подписывает токен закрытым ключом.
// Ответ на неизвестного пользователя и на неверный пароль одинаковый:
// нечего подсказывать перебору.
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (*domain.TokenResponse, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil || user == nil {
		return nil, errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := &domain.CustomClaims{
		UserID: user.ID,
		Scopes: user.Scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "teamspace-action-engine",
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: signedToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	}, nil
}
