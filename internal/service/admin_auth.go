package service

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/cityfix-backend/internal/logger"
)

// AdminAuthenticator решает, является ли вызывающий администратором.
// Регистрация и вход пользователей сюда не входят.
type AdminAuthenticator struct {
	passwordHash []byte
	tokens       *AdminTokenManager
}

// NewAdminAuthenticator принимает готовый bcrypt-хеш; если его нет, хеширует
// plainPassword. Пустые оба значения отключают вход по паролю.
func NewAdminAuthenticator(passwordHash, plainPassword string, tokens *AdminTokenManager) (*AdminAuthenticator, error) {
	a := &AdminAuthenticator{tokens: tokens}
	switch {
	case passwordHash != "":
		a.passwordHash = []byte(passwordHash)
	case plainPassword != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		a.passwordHash = hash
	}
	return a, nil
}

// CheckPassword сравнивает пароль с хешем за постоянное время.
func (a *AdminAuthenticator) CheckPassword(password string) bool {
	if password == "" || len(a.passwordHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
}

// CheckToken проверяет bearer-токен администратора.
func (a *AdminAuthenticator) CheckToken(token string) bool {
	if token == "" || a.tokens == nil {
		return false
	}
	if _, err := a.tokens.Parse(token); err != nil {
		logger.Log.WithError(err).Debug("admin: токен отклонён")
		return false
	}
	return true
}

// IsAdmin истинно, если подходит хотя бы один из способов.
func (a *AdminAuthenticator) IsAdmin(password, bearerToken string) bool {
	return a.CheckPassword(password) || a.CheckToken(bearerToken)
}
