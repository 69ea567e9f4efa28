package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/cityfix-backend/internal/domain/entity"
)

// TransitionFunc получает заблокированную копию обращения, изменяет её и возвращает
// прирост баллов. Возврат ошибки откатывает всю операцию.
type TransitionFunc func(issue *entity.Issue) (delta int, err error)

// TransitionResult описывает зафиксированный переход.
type TransitionResult struct {
	Issue *entity.Issue
	// Фактически начисленный прирост.
	Delta int
	// Баланс автора после фиксации; nil, если баланс не менялся.
	OwnerPoints *int
}

type IssueRepository interface {
	Create(ctx context.Context, issue *entity.Issue) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Issue, error)
	List(ctx context.Context, filter IssueFilter) ([]*IssueWithReporter, int, error)
	// Delete удаляет строку. Отсутствие строки ошибкой не считается.
	Delete(ctx context.Context, id uuid.UUID) error
	// ApplyTransition выполняет чтение, решение и запись как одну атомарную единицу:
	// статус, points_awarded и баланс автора фиксируются вместе или не фиксируются вовсе.
	// Конкурентные вызовы для одного id сериализуются; для разных id не блокируют друг друга.
	ApplyTransition(ctx context.Context, id uuid.UUID, fn TransitionFunc) (*TransitionResult, error)
}

// IssueWithReporter: обращение с именем автора из справочника пользователей.
type IssueWithReporter struct {
	*entity.Issue
	ReporterName *string
}

type IssueFilter struct {
	Limit  int
	Offset int
}
