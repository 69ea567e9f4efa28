package issue

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/cityfix-backend/internal/domain/entity"
	"github.com/ignatzorin/cityfix-backend/internal/domain/event"
	"github.com/ignatzorin/cityfix-backend/internal/domain/repository"
	"github.com/ignatzorin/cityfix-backend/internal/logger"
	"github.com/ignatzorin/cityfix-backend/internal/metrics"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
)

type CreateIssueInput struct {
	UserID      *uuid.UUID
	Type        string
	Location    string
	Description string
	Lat         *float64
	Lng         *float64
	Image       string
}

type CreateIssueUseCase struct {
	issueRepo repository.IssueRepository
	users     repository.UserDirectory
	publisher Publisher
	policy    entity.IssuePolicy
	metrics   *metrics.Metrics
}

func NewCreateIssueUseCase(
	issueRepo repository.IssueRepository,
	users repository.UserDirectory,
	publisher Publisher,
	policy entity.IssuePolicy,
	m *metrics.Metrics,
) *CreateIssueUseCase {
	return &CreateIssueUseCase{
		issueRepo: issueRepo,
		users:     users,
		publisher: publisher,
		policy:    policy,
		metrics:   m,
	}
}

// Execute валидирует поля, сохраняет обращение в статусе pending и рассылает new_issue.
// При ошибке валидации ничего не сохраняется и событие не публикуется.
func (uc *CreateIssueUseCase) Execute(ctx context.Context, input CreateIssueInput) (*repository.IssueWithReporter, error) {
	issue, err := entity.NewIssue(entity.NewIssueParams{
		UserID:      input.UserID,
		Type:        input.Type,
		Location:    input.Location,
		Description: input.Description,
		Lat:         input.Lat,
		Lng:         input.Lng,
		Image:       input.Image,
	}, uc.policy)
	if err != nil {
		return nil, err
	}

	var reporterName *string
	if issue.UserID != nil {
		name, err := uc.users.DisplayName(ctx, *issue.UserID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.Validation("автор обращения не найден")
			}
			return nil, err
		}
		reporterName = &name
	}

	if err := uc.issueRepo.Create(ctx, issue); err != nil {
		logger.Log.WithError(err).WithField("issue_id", issue.ID).Error("issue: не удалось сохранить обращение")
		return nil, err
	}

	uc.metrics.IssuesCreated.Inc()
	fields := logrus.Fields{"issue_id": issue.ID, "type": issue.Type}
	if issue.UserID != nil {
		fields["user_id"] = *issue.UserID
	}
	logger.Log.WithFields(fields).Info("issue: обращение создано")

	uc.publisher.Publish(event.NewIssueFrom(issue, reporterName))

	return &repository.IssueWithReporter{Issue: issue, ReporterName: reporterName}, nil
}
