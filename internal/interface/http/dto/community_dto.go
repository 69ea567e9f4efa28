package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/cityfix-backend/internal/domain/entity"
	"github.com/ignatzorin/cityfix-backend/internal/usecase/community"
)

type UserProfileResponse struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Points        int       `json:"points"`
	CreatedAt     time.Time `json:"created_at"`
	TotalReports  int       `json:"total_reports"`
	SolvedReports int       `json:"solved_reports"`
}

type LeaderboardEntry struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Points        int       `json:"points"`
	TotalReports  int       `json:"total_reports"`
	SolvedReports int       `json:"solved_reports"`
}

type AdminUserResponse struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Points       int       `json:"points"`
	CreatedAt    time.Time `json:"created_at"`
	TotalReports int       `json:"total_reports"`
}

type StatsResponse struct {
	TotalIssues            int `json:"total_issues"`
	Pending                int `json:"pending"`
	InProgress             int `json:"in_progress"`
	Solved                 int `json:"solved"`
	TotalUsers             int `json:"total_users"`
	TotalPointsDistributed int `json:"total_points_distributed"`
}

func ToUserProfileResponse(u *entity.UserStats) UserProfileResponse {
	return UserProfileResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Points:        u.Points,
		CreatedAt:     u.CreatedAt,
		TotalReports:  u.TotalReports,
		SolvedReports: u.SolvedReports,
	}
}

func ToLeaderboard(users []entity.UserStats) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(users))
	for _, u := range users {
		out = append(out, LeaderboardEntry{
			ID:            u.ID,
			Username:      u.Username,
			Points:        u.Points,
			TotalReports:  u.TotalReports,
			SolvedReports: u.SolvedReports,
		})
	}
	return out
}

func ToAdminUsers(users []entity.UserStats) []AdminUserResponse {
	out := make([]AdminUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, AdminUserResponse{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			Points:       u.Points,
			CreatedAt:    u.CreatedAt,
			TotalReports: u.TotalReports,
		})
	}
	return out
}

func ToStatsResponse(s *community.Stats) StatsResponse {
	return StatsResponse{
		TotalIssues:            s.TotalIssues,
		Pending:                s.Pending,
		InProgress:             s.InProgress,
		Solved:                 s.Solved,
		TotalUsers:             s.TotalUsers,
		TotalPointsDistributed: s.TotalPointsDistributed,
	}
}
