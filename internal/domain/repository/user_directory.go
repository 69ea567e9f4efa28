package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/cityfix-backend/internal/domain/entity"
	"github.com/ignatzorin/cityfix-backend/internal/domain/valueobject"
)

// UserDirectory: внешний справочник пользователей.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID uuid.UUID) (string, error)
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
}

// CommunityReader обслуживает read-модели: профиль, рейтинг, статистику.
type CommunityReader interface {
	UserStats(ctx context.Context, userID uuid.UUID) (*entity.UserStats, error)
	Leaderboard(ctx context.Context, limit int) ([]entity.UserStats, error)
	ListUsers(ctx context.Context) ([]entity.UserStats, error)
	CountIssues(ctx context.Context, status *valueobject.IssueStatus) (int, error)
	CountUsers(ctx context.Context) (int, error)
	TotalPoints(ctx context.Context) (int, error)
}
