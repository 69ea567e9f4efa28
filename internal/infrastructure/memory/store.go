// Package memory реализует хранилище обращений и пользователей в памяти процесса.
// Используется при STORAGE_DRIVER=memory и в тестах; данные теряются при перезапуске.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/cityfix-backend/internal/domain/entity"
	"github.com/ignatzorin/cityfix-backend/internal/domain/repository"
	"github.com/ignatzorin/cityfix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/keylock"
)

var (
	_ repository.IssueRepository = (*Store)(nil)
	_ repository.UserDirectory   = (*Store)(nil)
	_ repository.CommunityReader = (*Store)(nil)
)

type Store struct {
	mu     sync.RWMutex
	issues map[uuid.UUID]*entity.Issue
	users  map[uuid.UUID]*entity.User

	// Переходы одного обращения выполняются строго по очереди, как под FOR UPDATE.
	rows *keylock.KeyedMutex[uuid.UUID]
}

func NewStore() *Store {
	return &Store{
		issues: make(map[uuid.UUID]*entity.Issue),
		users:  make(map[uuid.UUID]*entity.User),
		rows:   keylock.New[uuid.UUID](),
	}
}

// SeedUser добавляет или заменяет пользователя.
func (s *Store) SeedUser(u entity.User) *entity.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := u
	s.users[u.ID] = &stored
	return &u
}

func (s *Store) Create(ctx context.Context, issue *entity.Issue) error {
	if err := ctx.Err(); err != nil {
		return apperror.Persistence(err, "не удалось создать обращение")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.issues[issue.ID]; exists {
		return apperror.Persistence(nil, "обращение с таким id уже существует")
	}
	if issue.UserID != nil {
		if _, ok := s.users[*issue.UserID]; !ok {
			return apperror.Persistence(nil, "автор обращения не найден")
		}
	}
	s.issues[issue.ID] = cloneIssue(issue)
	return nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*entity.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil, apperror.ErrIssueNotFound
	}
	return cloneIssue(issue), nil
}

func (s *Store) List(ctx context.Context, filter repository.IssueFilter) ([]*repository.IssueWithReporter, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*entity.Issue, 0, len(s.issues))
	for _, issue := range s.issues {
		all = append(all, issue)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.After(all[j].Date)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	total := len(all)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	out := make([]*repository.IssueWithReporter, 0, end-start)
	for _, issue := range all[start:end] {
		item := &repository.IssueWithReporter{Issue: cloneIssue(issue)}
		if issue.UserID != nil {
			if u, ok := s.users[*issue.UserID]; ok {
				name := u.Username
				item.ReporterName = &name
			}
		}
		out = append(out, item)
	}
	return out, total, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	unlock := s.rows.Lock(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.issues, id)
	return nil
}

func (s *Store) ApplyTransition(ctx context.Context, id uuid.UUID, fn repository.TransitionFunc) (*repository.TransitionResult, error) {
	unlock := s.rows.Lock(id)
	defer unlock()

	s.mu.RLock()
	current, ok := s.issues[id]
	var working *entity.Issue
	if ok {
		working = cloneIssue(current)
	}
	s.mu.RUnlock()
	if !ok {
		return nil, apperror.ErrIssueNotFound
	}

	delta, err := fn(working)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &repository.TransitionResult{Issue: cloneIssue(working), Delta: delta}
	if delta > 0 && working.UserID != nil {
		if owner, ok := s.users[*working.UserID]; ok {
			owner.Points += delta
			points := owner.Points
			result.OwnerPoints = &points
		}
	}
	s.issues[id] = working
	return result, nil
}

func (s *Store) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return "", apperror.ErrUserNotFound
	}
	return u.Username, nil
}

func (s *Store) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, apperror.ErrUserNotFound
	}
	return u.Points, nil
}

func (s *Store) UserStats(ctx context.Context, userID uuid.UUID) (*entity.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, apperror.ErrUserNotFound
	}
	stats := s.statsLocked(u)
	return &stats, nil
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]entity.UserStats, error) {
	users, _ := s.ListUsers(ctx)
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// ListUsers возвращает всех пользователей по убыванию баллов.
func (s *Store) ListUsers(ctx context.Context) ([]entity.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.UserStats, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, s.statsLocked(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CountIssues(ctx context.Context, status *valueobject.IssueStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status == nil {
		return len(s.issues), nil
	}
	n := 0
	for _, issue := range s.issues {
		if issue.Status == *status {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *Store) TotalPoints(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, u := range s.users {
		total += u.Points
	}
	return total, nil
}

func (s *Store) statsLocked(u *entity.User) entity.UserStats {
	stats := entity.UserStats{User: *u}
	for _, issue := range s.issues {
		if issue.UserID == nil || *issue.UserID != u.ID {
			continue
		}
		stats.TotalReports++
		if issue.Status == valueobject.IssueStatusSolved {
			stats.SolvedReports++
		}
	}
	return stats
}

func cloneIssue(i *entity.Issue) *entity.Issue {
	c := *i
	if i.UserID != nil {
		id := *i.UserID
		c.UserID = &id
	}
	if i.Coordinates != nil {
		coords := *i.Coordinates
		c.Coordinates = &coords
	}
	if i.Image != nil {
		img := *i.Image
		c.Image = &img
	}
	return &c
}
