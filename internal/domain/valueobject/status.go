package valueobject

import "github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"

type IssueStatus string

const (
	IssueStatusPending    IssueStatus = "pending"
	IssueStatusInProgress IssueStatus = "in-progress"
	IssueStatusSolved     IssueStatus = "solved"
)

// AllIssueStatuses перечисляет статусы в порядке жизненного цикла.
var AllIssueStatuses = []IssueStatus{IssueStatusPending, IssueStatusInProgress, IssueStatusSolved}

func (s IssueStatus) IsValid() bool {
	switch s {
	case IssueStatusPending, IssueStatusInProgress, IssueStatusSolved:
		return true
	}
	return false
}

func (s IssueStatus) String() string {
	return string(s)
}

// NewIssueStatus разбирает статус из запроса. Любое значение вне набора считается
// ошибкой валидации, а не решением леджера.
func NewIssueStatus(status string) (IssueStatus, error) {
	s := IssueStatus(status)
	if !s.IsValid() {
		return "", apperror.ErrInvalidStatus
	}
	return s, nil
}
