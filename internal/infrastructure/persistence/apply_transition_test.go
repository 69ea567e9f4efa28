package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/cityfix-backend/internal/domain/entity"
	"github.com/ignatzorin/cityfix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
)

var (
	lockIssueSQL   = regexp.QuoteMeta(`FROM issues i WHERE i.id = $1 FOR UPDATE`)
	updateIssueSQL = regexp.QuoteMeta(`UPDATE issues SET status = $2, points_awarded = $3 WHERE id = $1`)
	creditOwnerSQL = regexp.QuoteMeta(`UPDATE users SET points = points + $2 WHERE id = $1 RETURNING points`)
)

func newMockRepo(t *testing.T) (*IssueRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewIssueRepository(sqlx.NewDb(db, "postgres")), mock
}

func issueRows(id uuid.UUID, owner *uuid.UUID, status string, awarded int) *sqlmock.Rows {
	var ownerVal interface{}
	if owner != nil {
		ownerVal = owner.String()
	}
	return sqlmock.NewRows([]string{
		"id", "user_id", "type", "location", "lat", "lng", "description", "image", "date", "status", "points_awarded",
	}).AddRow(
		id.String(), ownerVal, "Pothole", "MG Road", nil, nil, "Deep pothole", nil,
		time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), status, awarded,
	)
}

func transitionTo(status valueobject.IssueStatus) func(*entity.Issue) (int, error) {
	return func(issue *entity.Issue) (int, error) {
		return issue.Transition(status)
	}
}

func TestApplyTransition_CommitsIssueAndCreditTogether(t *testing.T) {
	repo, mock := newMockRepo(t)
	id, owner := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockIssueSQL).WithArgs(id.String()).WillReturnRows(issueRows(id, &owner, "pending", 0))
	mock.ExpectExec(updateIssueSQL).WithArgs(id.String(), "in-progress", 10).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(creditOwnerSQL).WithArgs(owner.String(), 10).WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(25))
	mock.ExpectCommit()

	res, err := repo.ApplyTransition(context.Background(), id, transitionTo(valueobject.IssueStatusInProgress))
	require.NoError(t, err)
	assert.Equal(t, 10, res.Delta)
	assert.Equal(t, 10, res.Issue.PointsAwarded)
	assert.Equal(t, valueobject.IssueStatusInProgress, res.Issue.Status)
	require.NotNil(t, res.OwnerPoints)
	assert.Equal(t, 25, *res.OwnerPoints)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_FailedCreditRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	id, owner := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockIssueSQL).WithArgs(id.String()).WillReturnRows(issueRows(id, &owner, "in-progress", 10))
	mock.ExpectExec(updateIssueSQL).WithArgs(id.String(), "solved", 30).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(creditOwnerSQL).WithArgs(owner.String(), 20).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	res, err := repo.ApplyTransition(context.Background(), id, transitionTo(valueobject.IssueStatusSolved))
	assert.Nil(t, res)
	assert.True(t, apperror.IsPersistence(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_ZeroDeltaSkipsCredit(t *testing.T) {
	repo, mock := newMockRepo(t)
	id, owner := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockIssueSQL).WithArgs(id.String()).WillReturnRows(issueRows(id, &owner, "solved", 30))
	mock.ExpectExec(updateIssueSQL).WithArgs(id.String(), "pending", 30).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.ApplyTransition(context.Background(), id, transitionTo(valueobject.IssueStatusPending))
	require.NoError(t, err)
	assert.Zero(t, res.Delta)
	assert.Nil(t, res.OwnerPoints)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_OwnerlessIssueSkipsCredit(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockIssueSQL).WithArgs(id.String()).WillReturnRows(issueRows(id, nil, "pending", 0))
	mock.ExpectExec(updateIssueSQL).WithArgs(id.String(), "in-progress", 0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.ApplyTransition(context.Background(), id, transitionTo(valueobject.IssueStatusInProgress))
	require.NoError(t, err)
	assert.Zero(t, res.Delta)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_DeletedOwnerStillCommits(t *testing.T) {
	repo, mock := newMockRepo(t)
	id, owner := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockIssueSQL).WithArgs(id.String()).WillReturnRows(issueRows(id, &owner, "pending", 0))
	mock.ExpectExec(updateIssueSQL).WithArgs(id.String(), "in-progress", 10).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(creditOwnerSQL).WithArgs(owner.String(), 10).WillReturnRows(sqlmock.NewRows([]string{"points"}))
	mock.ExpectCommit()

	res, err := repo.ApplyTransition(context.Background(), id, transitionTo(valueobject.IssueStatusInProgress))
	require.NoError(t, err)
	assert.Equal(t, 10, res.Delta)
	assert.Nil(t, res.OwnerPoints)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_MissingIssueRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockIssueSQL).WithArgs(id.String()).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.ApplyTransition(context.Background(), id, transitionTo(valueobject.IssueStatusSolved))
	assert.ErrorIs(t, err, apperror.ErrIssueNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_DecisionErrorWritesNothing(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	refused := apperror.Validation("переход запрещён")

	mock.ExpectBegin()
	mock.ExpectQuery(lockIssueSQL).WithArgs(id.String()).WillReturnRows(issueRows(id, nil, "pending", 0))
	mock.ExpectRollback()

	_, err := repo.ApplyTransition(context.Background(), id, func(*entity.Issue) (int, error) {
		return 0, refused
	})
	assert.ErrorIs(t, err, refused)

	assert.NoError(t, mock.ExpectationsWereMet())
}
