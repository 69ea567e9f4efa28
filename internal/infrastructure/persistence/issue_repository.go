package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/cityfix-backend/internal/domain/entity"
	"github.com/ignatzorin/cityfix-backend/internal/domain/repository"
	"github.com/ignatzorin/cityfix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
)

var _ repository.IssueRepository = (*IssueRepository)(nil)

const issueColumns = `i.id, i.user_id, i.type, i.location, i.lat, i.lng, i.description, i.image, i.date, i.status, i.points_awarded`

type issueRow struct {
	ID            uuid.UUID  `db:"id"`
	UserID        *uuid.UUID `db:"user_id"`
	Type          string     `db:"type"`
	Location      string     `db:"location"`
	Lat           *float64   `db:"lat"`
	Lng           *float64   `db:"lng"`
	Description   string     `db:"description"`
	Image         *string    `db:"image"`
	Date          time.Time  `db:"date"`
	Status        string     `db:"status"`
	PointsAwarded int        `db:"points_awarded"`
}

type issueWithReporterRow struct {
	issueRow
	ReporterName *string `db:"reporter_name"`
}

func (r issueRow) toEntity() *entity.Issue {
	issue := &entity.Issue{
		ID:            r.ID,
		UserID:        r.UserID,
		Type:          r.Type,
		Location:      r.Location,
		Description:   r.Description,
		Image:         r.Image,
		Date:          r.Date.UTC(),
		Status:        valueobject.IssueStatus(r.Status),
		PointsAwarded: r.PointsAwarded,
	}
	if r.Lat != nil && r.Lng != nil {
		issue.Coordinates = &valueobject.Coordinates{Lat: *r.Lat, Lng: *r.Lng}
	}
	return issue
}

func issueToRow(issue *entity.Issue) issueRow {
	row := issueRow{
		ID:            issue.ID,
		UserID:        issue.UserID,
		Type:          issue.Type,
		Location:      issue.Location,
		Description:   issue.Description,
		Image:         issue.Image,
		Date:          issue.Date,
		Status:        issue.Status.String(),
		PointsAwarded: issue.PointsAwarded,
	}
	if issue.Coordinates != nil {
		lat, lng := issue.Coordinates.Lat, issue.Coordinates.Lng
		row.Lat, row.Lng = &lat, &lng
	}
	return row
}

// IssueRepository хранит обращения в PostgreSQL.
type IssueRepository struct {
	db *sqlx.DB
}

func NewIssueRepository(db *sqlx.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

func (r *IssueRepository) Create(ctx context.Context, issue *entity.Issue) error {
	query := `
		INSERT INTO issues (id, user_id, type, location, lat, lng, description, image, date, status, points_awarded)
		VALUES (:id, :user_id, :type, :location, :lat, :lng, :description, :image, :date, :status, :points_awarded)
	`
	if _, err := r.db.NamedExecContext(ctx, query, issueToRow(issue)); err != nil {
		return apperror.Persistence(err, "не удалось создать обращение")
	}
	return nil
}

func (r *IssueRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Issue, error) {
	var row issueRow
	query := `SELECT ` + issueColumns + ` FROM issues i WHERE i.id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrIssueNotFound
		}
		return nil, apperror.Persistence(err, "не удалось получить обращение")
	}
	return row.toEntity(), nil
}

func (r *IssueRepository) List(ctx context.Context, filter repository.IssueFilter) ([]*repository.IssueWithReporter, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM issues`); err != nil {
		return nil, 0, apperror.Persistence(err, "не удалось посчитать обращения")
	}

	query := `
		SELECT ` + issueColumns + `, u.username AS reporter_name
		FROM issues i
		LEFT JOIN users u ON u.id = i.user_id
		ORDER BY i.date DESC, i.id
		LIMIT $1 OFFSET $2
	`
	var rows []issueWithReporterRow
	if err := r.db.SelectContext(ctx, &rows, query, filter.Limit, filter.Offset); err != nil {
		return nil, 0, apperror.Persistence(err, "не удалось получить список обращений")
	}

	items := make([]*repository.IssueWithReporter, 0, len(rows))
	for _, row := range rows {
		items = append(items, &repository.IssueWithReporter{
			Issue:        row.toEntity(),
			ReporterName: row.ReporterName,
		})
	}
	return items, total, nil
}

func (r *IssueRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM issues WHERE id = $1`, id); err != nil {
		return apperror.Persistence(err, "не удалось удалить обращение")
	}
	return nil
}

// ApplyTransition блокирует строку обращения (SELECT ... FOR UPDATE), вызывает fn и
// в той же транзакции записывает статус, points_awarded и баланс автора.
func (r *IssueRepository) ApplyTransition(ctx context.Context, id uuid.UUID, fn repository.TransitionFunc) (*repository.TransitionResult, error) {
	var result *repository.TransitionResult

	err := withTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var row issueRow
		query := `SELECT ` + issueColumns + ` FROM issues i WHERE i.id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &row, query, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrIssueNotFound
			}
			return fmt.Errorf("lock issue: %w", err)
		}

		issue := row.toEntity()
		delta, err := fn(issue)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE issues SET status = $2, points_awarded = $3 WHERE id = $1`,
			issue.ID, issue.Status.String(), issue.PointsAwarded,
		); err != nil {
			return fmt.Errorf("update issue: %w", err)
		}

		result = &repository.TransitionResult{Issue: issue, Delta: delta}
		if delta <= 0 || issue.UserID == nil {
			return nil
		}

		var points int
		err = tx.GetContext(ctx, &points,
			`UPDATE users SET points = points + $2 WHERE id = $1 RETURNING points`,
			*issue.UserID, delta,
		)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Автор удалён вне сервиса: обращение всё равно переходит в новый статус.
			return nil
		case err != nil:
			return fmt.Errorf("credit owner: %w", err)
		}
		result.OwnerPoints = &points
		return nil
	})
	if err != nil {
		return nil, wrapDBError(err, "не удалось обновить статус обращения")
	}
	return result, nil
}
