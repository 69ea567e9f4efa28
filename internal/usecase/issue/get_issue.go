package issue

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/ignatzorin/cityfix-backend/internal/domain/repository"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
)

const (
	DefaultPerPage = 50
	MaxPerPage     = 100
)

type GetIssueUseCase struct {
	issueRepo repository.IssueRepository
	users     repository.UserDirectory
}

func NewGetIssueUseCase(issueRepo repository.IssueRepository, users repository.UserDirectory) *GetIssueUseCase {
	return &GetIssueUseCase{issueRepo: issueRepo, users: users}
}

func (uc *GetIssueUseCase) Execute(ctx context.Context, issueID uuid.UUID) (*repository.IssueWithReporter, error) {
	issue, err := uc.issueRepo.FindByID(ctx, issueID)
	if err != nil {
		return nil, err
	}

	out := &repository.IssueWithReporter{Issue: issue}
	if issue.UserID == nil {
		return out, nil
	}

	name, err := uc.users.DisplayName(ctx, *issue.UserID)
	switch {
	case err == nil:
		out.ReporterName = &name
	case apperror.IsNotFound(err):
		// Автор удалён: обращение показываем без имени.
	default:
		return nil, err
	}
	return out, nil
}

type ListIssuesInput struct {
	Page    int
	PerPage int
}

type ListIssuesOutput struct {
	Items   []*repository.IssueWithReporter
	Total   int
	Page    int
	PerPage int
}

type ListIssuesUseCase struct {
	issueRepo repository.IssueRepository
}

func NewListIssuesUseCase(issueRepo repository.IssueRepository) *ListIssuesUseCase {
	return &ListIssuesUseCase{issueRepo: issueRepo}
}

// Execute возвращает страницу обращений, новые первыми.
func (uc *ListIssuesUseCase) Execute(ctx context.Context, input ListIssuesInput) (*ListIssuesOutput, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	perPage := input.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	items, total, err := uc.issueRepo.List(ctx, repository.IssueFilter{
		Limit:  perPage,
		Offset: pageOffset(page, perPage),
	})
	if err != nil {
		return nil, err
	}

	return &ListIssuesOutput{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// pageOffset насыщается на math.MaxInt: страница за пределами диапазона int
// возвращается пустой, а не переполняется в отрицательное смещение.
func pageOffset(page, perPage int) int {
	if page-1 > math.MaxInt/perPage {
		return math.MaxInt
	}
	return (page - 1) * perPage
}
