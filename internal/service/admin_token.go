package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const RoleAdmin = "admin"

var ErrNotAdminToken = errors.New("token: роль не admin")

// AdminClaims: клеймы токена оператора.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminTokenManager выпускает и проверяет JWT администраторов (HS256).
type AdminTokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewAdminTokenManager(secret string, ttl time.Duration) *AdminTokenManager {
	return &AdminTokenManager{secret: []byte(secret), ttl: ttl}
}

// Generate выпускает токен для оператора subject.
func (m *AdminTokenManager) Generate(subject string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.ttl)

	claims := AdminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse проверяет подпись, срок действия и роль.
func (m *AdminTokenManager) Parse(token string) (*AdminClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &AdminClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*AdminClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Role != RoleAdmin {
		return nil, ErrNotAdminToken
	}
	return claims, nil
}
