package issue

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/cityfix-backend/internal/domain/entity"
	"github.com/ignatzorin/cityfix-backend/internal/domain/event"
	"github.com/ignatzorin/cityfix-backend/internal/domain/repository"
	"github.com/ignatzorin/cityfix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/cityfix-backend/internal/logger"
	"github.com/ignatzorin/cityfix-backend/internal/metrics"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
)

type TransitionStatusInput struct {
	IssueID uuid.UUID
	Status  string
	IsAdmin bool
}

type TransitionStatusOutput struct {
	Issue *entity.Issue
	// Баллы, начисленные именно этим переходом.
	Delta int
	// Новый баланс автора, если он изменился.
	OwnerPoints *int
}

type TransitionStatusUseCase struct {
	issueRepo repository.IssueRepository
	publisher Publisher
	locks     *IssueLocks
	metrics   *metrics.Metrics
}

func NewTransitionStatusUseCase(
	issueRepo repository.IssueRepository,
	publisher Publisher,
	locks *IssueLocks,
	m *metrics.Metrics,
) *TransitionStatusUseCase {
	return &TransitionStatusUseCase{
		issueRepo: issueRepo,
		publisher: publisher,
		locks:     locks,
		metrics:   m,
	}
}

// Execute переводит обращение в новый статус и начисляет баллы автору не более
// одного раза за каждый квалифицирующий переход.
//
// После фиксации публикуется status_updated, а при ненулевом приросте ещё и points_updated.
// Ошибки не публикуют событий.
func (uc *TransitionStatusUseCase) Execute(ctx context.Context, input TransitionStatusInput) (*TransitionStatusOutput, error) {
	if !input.IsAdmin {
		return nil, apperror.ErrAdminRequired
	}
	status, err := valueobject.NewIssueStatus(input.Status)
	if err != nil {
		return nil, err
	}

	// Отмена запроса не должна обрывать атомарный шаг.
	ctx = context.WithoutCancel(ctx)

	unlock := uc.locks.Lock(input.IssueID)
	defer unlock()

	res, err := uc.issueRepo.ApplyTransition(ctx, input.IssueID, func(issue *entity.Issue) (int, error) {
		return issue.Transition(status)
	})
	if err != nil {
		if apperror.IsPersistence(err) {
			logger.Log.WithError(err).WithField("issue_id", input.IssueID).Error("issue: переход не зафиксирован")
		}
		return nil, err
	}

	uc.metrics.Transitions.WithLabelValues(status.String()).Inc()
	uc.metrics.PointsAwarded.Add(float64(res.Delta))

	fields := logrus.Fields{
		"issue_id": res.Issue.ID,
		"status":   status,
		"delta":    res.Delta,
	}
	if res.Issue.UserID != nil {
		fields["user_id"] = *res.Issue.UserID
	}
	logger.Log.WithFields(fields).Info("issue: статус изменён")

	uc.publisher.Publish(event.StatusUpdated{
		IssueID:       res.Issue.ID,
		Status:        res.Issue.Status,
		PointsAwarded: res.Delta,
	})
	if res.Delta > 0 && res.Issue.UserID != nil && res.OwnerPoints != nil {
		uc.publisher.Publish(event.PointsUpdated{
			UserID: *res.Issue.UserID,
			Points: *res.OwnerPoints,
			Added:  res.Delta,
		})
	}

	return &TransitionStatusOutput{
		Issue:       res.Issue,
		Delta:       res.Delta,
		OwnerPoints: res.OwnerPoints,
	}, nil
}
