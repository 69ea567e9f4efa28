package entity

import (
	"time"

	"github.com/google/uuid"
)

// User: участник с накопленными баллами. Регистрация и вход живут вне этого сервиса.
type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	Points    int
	CreatedAt time.Time
}

// UserStats дополняет пользователя счётчиками, которые вычисляются при чтении.
type UserStats struct {
	User
	TotalReports  int
	SolvedReports int
}
