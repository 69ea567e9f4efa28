package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/cityfix-backend/internal/domain/entity"
	"github.com/ignatzorin/cityfix-backend/internal/domain/repository"
	"github.com/ignatzorin/cityfix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
)

var (
	_ repository.UserDirectory   = (*UserRepository)(nil)
	_ repository.CommunityReader = (*UserRepository)(nil)
)

// Счётчики обращений вычисляются при чтении, в таблице users они не хранятся.
const userStatsSelect = `
	SELECT u.id, u.username, u.email, u.points, u.created_at,
	       (SELECT COUNT(*) FROM issues WHERE user_id = u.id) AS total_reports,
	       (SELECT COUNT(*) FROM issues WHERE user_id = u.id AND status = 'solved') AS solved_reports
	FROM users u
`

type userStatsRow struct {
	ID            uuid.UUID `db:"id"`
	Username      string    `db:"username"`
	Email         string    `db:"email"`
	Points        int       `db:"points"`
	CreatedAt     time.Time `db:"created_at"`
	TotalReports  int       `db:"total_reports"`
	SolvedReports int       `db:"solved_reports"`
}

func (r userStatsRow) toEntity() entity.UserStats {
	return entity.UserStats{
		User: entity.User{
			ID:        r.ID,
			Username:  r.Username,
			Email:     r.Email,
			Points:    r.Points,
			CreatedAt: r.CreatedAt.UTC(),
		},
		TotalReports:  r.TotalReports,
		SolvedReports: r.SolvedReports,
	}
}

// UserRepository читает пользователей и агрегаты. Регистрация пользователей
// выполняется другим сервисом, поэтому записи здесь нет.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	var name string
	if err := r.db.GetContext(ctx, &name, `SELECT username FROM users WHERE id = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.ErrUserNotFound
		}
		return "", apperror.Persistence(err, "не удалось получить пользователя")
	}
	return name, nil
}

func (r *UserRepository) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var points int
	if err := r.db.GetContext(ctx, &points, `SELECT points FROM users WHERE id = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.ErrUserNotFound
		}
		return 0, apperror.Persistence(err, "не удалось получить баланс пользователя")
	}
	return points, nil
}

func (r *UserRepository) UserStats(ctx context.Context, userID uuid.UUID) (*entity.UserStats, error) {
	var row userStatsRow
	if err := r.db.GetContext(ctx, &row, userStatsSelect+` WHERE u.id = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, apperror.Persistence(err, "не удалось получить пользователя")
	}
	stats := row.toEntity()
	return &stats, nil
}

func (r *UserRepository) Leaderboard(ctx context.Context, limit int) ([]entity.UserStats, error) {
	return r.selectStats(ctx, userStatsSelect+` ORDER BY u.points DESC, u.created_at LIMIT $1`, limit)
}

func (r *UserRepository) ListUsers(ctx context.Context) ([]entity.UserStats, error) {
	return r.selectStats(ctx, userStatsSelect+` ORDER BY u.points DESC, u.created_at`)
}

func (r *UserRepository) CountIssues(ctx context.Context, status *valueobject.IssueStatus) (int, error) {
	var (
		n   int
		err error
	)
	if status == nil {
		err = r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM issues`)
	} else {
		err = r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM issues WHERE status = $1`, status.String())
	}
	if err != nil {
		return 0, apperror.Persistence(err, "не удалось посчитать обращения")
	}
	return n, nil
}

func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, apperror.Persistence(err, "не удалось посчитать пользователей")
	}
	return n, nil
}

func (r *UserRepository) TotalPoints(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COALESCE(SUM(points), 0) FROM users`); err != nil {
		return 0, apperror.Persistence(err, "не удалось посчитать баллы")
	}
	return n, nil
}

func (r *UserRepository) selectStats(ctx context.Context, query string, args ...interface{}) ([]entity.UserStats, error) {
	var rows []userStatsRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Persistence(err, "не удалось получить пользователей")
	}
	out := make([]entity.UserStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}
