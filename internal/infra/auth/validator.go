package auth

import (
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
)

// BaseValidator проверяет подпись JWT открытым ключом.
// Закрытый ключ движку не нужен: выпуск токенов живет в AuthService.
type BaseValidator struct {
	publicKey *rsa.PublicKey
}

func NewBaseValidator(pubKey *rsa.PublicKey) *BaseValidator {
	return &BaseValidator{publicKey: pubKey}
}

// keyfunc отсекает подмену алгоритма: принимаем только семейство RSA
func (v *BaseValidator) keyfunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return v.publicKey, nil
}

// VerifyToken разбирает строку заголовка Authorization (с префиксом
// "Bearer " или без) и возвращает клеймы валидного токена.
func (v *BaseValidator) VerifyToken(tokenStr string) (*domain.CustomClaims, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(tokenStr, "Bearer "))

	token, err := jwt.ParseWithClaims(raw, &domain.CustomClaims{}, v.keyfunc)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*domain.CustomClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims")
	}
	return claims, nil
}

// ParseRSAPublicKey читает PEM-блок ключа проверки подписи
func ParseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("public key data is empty")
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return key, nil
}

// ParseRSAPrivateKey читает PEM-блок ключа подписи
func ParseRSAPrivateKey(data []byte) (*rsa.PrivateKey, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("private key data is empty")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}
