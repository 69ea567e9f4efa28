package issue

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/cityfix-backend/internal/domain/event"
	"github.com/ignatzorin/cityfix-backend/internal/domain/repository"
	"github.com/ignatzorin/cityfix-backend/internal/logger"
	"github.com/ignatzorin/cityfix-backend/internal/metrics"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
)

type DeleteIssueInput struct {
	IssueID uuid.UUID
	IsAdmin bool
}

type DeleteIssueUseCase struct {
	issueRepo repository.IssueRepository
	publisher Publisher
	locks     *IssueLocks
	metrics   *metrics.Metrics
}

func NewDeleteIssueUseCase(
	issueRepo repository.IssueRepository,
	publisher Publisher,
	locks *IssueLocks,
	m *metrics.Metrics,
) *DeleteIssueUseCase {
	return &DeleteIssueUseCase{
		issueRepo: issueRepo,
		publisher: publisher,
		locks:     locks,
		metrics:   m,
	}
}

// Execute удаляет обращение и рассылает issue_deleted. Удаление несуществующего
// обращения не считается ошибкой. Начисленные баллы у автора остаются.
func (uc *DeleteIssueUseCase) Execute(ctx context.Context, input DeleteIssueInput) error {
	if !input.IsAdmin {
		return apperror.ErrAdminRequired
	}

	ctx = context.WithoutCancel(ctx)

	unlock := uc.locks.Lock(input.IssueID)
	defer unlock()

	if err := uc.issueRepo.Delete(ctx, input.IssueID); err != nil {
		logger.Log.WithError(err).WithField("issue_id", input.IssueID).Error("issue: не удалось удалить обращение")
		return err
	}

	uc.metrics.IssuesDeleted.Inc()
	logger.Log.WithField("issue_id", input.IssueID).Info("issue: обращение удалено")

	uc.publisher.Publish(event.IssueDeleted{IssueID: input.IssueID})
	return nil
}
