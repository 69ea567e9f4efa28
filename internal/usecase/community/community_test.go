package community_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/cityfix-backend/internal/domain/entity"
	"github.com/ignatzorin/cityfix-backend/internal/domain/repository"
	"github.com/ignatzorin/cityfix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/cityfix-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
	"github.com/ignatzorin/cityfix-backend/internal/usecase/community"
)

func seedIssue(t *testing.T, s *memory.Store, owner *uuid.UUID, status valueobject.IssueStatus) {
	t.Helper()
	issue, err := entity.NewIssue(entity.NewIssueParams{
		UserID: owner, Type: "Drain", Location: "Lane 3", Description: "Blocked drain",
	}, entity.DefaultIssuePolicy())
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), issue))
	if status == valueobject.IssueStatusPending {
		return
	}
	_, err = s.ApplyTransition(context.Background(), issue.ID, func(i *entity.Issue) (int, error) {
		return i.Transition(status)
	})
	require.NoError(t, err)
}

func TestLeaderboard_TopTwenty(t *testing.T) {
	s := memory.NewStore()
	for i := 0; i < 25; i++ {
		s.SeedUser(entity.User{Username: fmt.Sprintf("user%02d", i), Points: i})
	}

	board, err := community.NewLeaderboardUseCase(s).Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, board, community.LeaderboardSize)
	assert.Equal(t, 24, board[0].Points)
	assert.Equal(t, 5, board[len(board)-1].Points)
}

func TestUserProfile(t *testing.T) {
	s := memory.NewStore()
	u := s.SeedUser(entity.User{Username: "lata"})
	seedIssue(t, s, &u.ID, valueobject.IssueStatusSolved)
	seedIssue(t, s, &u.ID, valueobject.IssueStatusPending)

	profile, err := community.NewGetUserProfileUseCase(s).Execute(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, profile.TotalReports)
	assert.Equal(t, 1, profile.SolvedReports)
	assert.Equal(t, 20, profile.Points)

	_, err = community.NewGetUserProfileUseCase(s).Execute(context.Background(), uuid.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestAdminStats(t *testing.T) {
	s := memory.NewStore()
	u := s.SeedUser(entity.User{Username: "om", Points: 3})
	s.SeedUser(entity.User{Username: "zoya"})
	seedIssue(t, s, &u.ID, valueobject.IssueStatusPending)
	seedIssue(t, s, &u.ID, valueobject.IssueStatusInProgress)
	seedIssue(t, s, nil, valueobject.IssueStatusSolved)

	uc := community.NewAdminStatsUseCase(s)

	_, err := uc.Execute(context.Background(), false)
	assert.ErrorIs(t, err, apperror.ErrAdminRequired)

	stats, err := uc.Execute(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, community.Stats{
		TotalIssues:            3,
		Pending:                1,
		InProgress:             1,
		Solved:                 1,
		TotalUsers:             2,
		TotalPointsDistributed: 13,
	}, *stats)
}

type failingReader struct {
	repository.CommunityReader
}

func (failingReader) CountIssues(context.Context, *valueobject.IssueStatus) (int, error) {
	return 0, apperror.Persistence(errors.New("down"), "не удалось посчитать обращения")
}

func (failingReader) CountUsers(context.Context) (int, error) { return 1, nil }

func (failingReader) TotalPoints(context.Context) (int, error) { return 1, nil }

func TestAdminStats_PropagatesFailure(t *testing.T) {
	_, err := community.NewAdminStatsUseCase(failingReader{}).Execute(context.Background(), true)
	assert.True(t, apperror.IsPersistence(err))
}

func TestListUsers_RequiresAdmin(t *testing.T) {
	s := memory.NewStore()
	s.SeedUser(entity.User{Username: "a", Points: 1})
	s.SeedUser(entity.User{Username: "b", Points: 9})

	uc := community.NewListUsersUseCase(s)
	_, err := uc.Execute(context.Background(), false)
	assert.True(t, apperror.IsForbidden(err))

	users, err := uc.Execute(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "b", users[0].Username)
}
