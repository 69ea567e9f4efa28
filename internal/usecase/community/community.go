// Package community содержит read-модели поверх баланса пользователей: профиль,
// рейтинг и административная статистика.
package community

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/cityfix-backend/internal/domain/entity"
	"github.com/ignatzorin/cityfix-backend/internal/domain/repository"
	"github.com/ignatzorin/cityfix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
)

const LeaderboardSize = 20

type GetUserProfileUseCase struct {
	reader repository.CommunityReader
}

func NewGetUserProfileUseCase(reader repository.CommunityReader) *GetUserProfileUseCase {
	return &GetUserProfileUseCase{reader: reader}
}

func (uc *GetUserProfileUseCase) Execute(ctx context.Context, userID uuid.UUID) (*entity.UserStats, error) {
	return uc.reader.UserStats(ctx, userID)
}

type LeaderboardUseCase struct {
	reader repository.CommunityReader
}

func NewLeaderboardUseCase(reader repository.CommunityReader) *LeaderboardUseCase {
	return &LeaderboardUseCase{reader: reader}
}

func (uc *LeaderboardUseCase) Execute(ctx context.Context) ([]entity.UserStats, error) {
	return uc.reader.Leaderboard(ctx, LeaderboardSize)
}

type ListUsersUseCase struct {
	reader repository.CommunityReader
}

func NewListUsersUseCase(reader repository.CommunityReader) *ListUsersUseCase {
	return &ListUsersUseCase{reader: reader}
}

func (uc *ListUsersUseCase) Execute(ctx context.Context, isAdmin bool) ([]entity.UserStats, error) {
	if !isAdmin {
		return nil, apperror.ErrAdminRequired
	}
	return uc.reader.ListUsers(ctx)
}

type Stats struct {
	TotalIssues            int
	Pending                int
	InProgress             int
	Solved                 int
	TotalUsers             int
	TotalPointsDistributed int
}

type AdminStatsUseCase struct {
	reader repository.CommunityReader
}

func NewAdminStatsUseCase(reader repository.CommunityReader) *AdminStatsUseCase {
	return &AdminStatsUseCase{reader: reader}
}

// Execute собирает счётчики параллельно; первая ошибка отменяет остальные запросы.
func (uc *AdminStatsUseCase) Execute(ctx context.Context, isAdmin bool) (*Stats, error) {
	if !isAdmin {
		return nil, apperror.ErrAdminRequired
	}

	var s Stats
	g, ctx := errgroup.WithContext(ctx)

	countByStatus := func(status *valueobject.IssueStatus, dst *int) func() error {
		return func() error {
			n, err := uc.reader.CountIssues(ctx, status)
			*dst = n
			return err
		}
	}
	pending := valueobject.IssueStatusPending
	inProgress := valueobject.IssueStatusInProgress
	solved := valueobject.IssueStatusSolved

	g.Go(countByStatus(nil, &s.TotalIssues))
	g.Go(countByStatus(&pending, &s.Pending))
	g.Go(countByStatus(&inProgress, &s.InProgress))
	g.Go(countByStatus(&solved, &s.Solved))
	g.Go(func() error {
		n, err := uc.reader.CountUsers(ctx)
		s.TotalUsers = n
		return err
	})
	g.Go(func() error {
		n, err := uc.reader.TotalPoints(ctx)
		s.TotalPointsDistributed = n
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &s, nil
}
