package entity

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ignatzorin/cityfix-backend/internal/domain/ledger"
	"github.com/ignatzorin/cityfix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
)

const (
	MaxIssueTypeLength        = 100
	MaxIssueLocationLength    = 200
	MaxIssueDescriptionLength = 1000
)

type Issue struct {
	ID            uuid.UUID
	UserID        *uuid.UUID
	Type          string
	Location      string
	Description   string
	Coordinates   *valueobject.Coordinates
	Image         *string
	Date          time.Time
	Status        valueobject.IssueStatus
	PointsAwarded int
}

// IssuePolicy задаёт настраиваемые ограничения на входные данные обращения.
type IssuePolicy struct {
	Bounds         valueobject.Bounds
	MaxImageLength int
}

// DefaultIssuePolicy возвращает ограничения по умолчанию (границы Индии и лимит размера изображения).
func DefaultIssuePolicy() IssuePolicy {
	return IssuePolicy{
		Bounds:         valueobject.IndiaBounds,
		MaxImageLength: valueobject.DefaultMaxImageLength,
	}
}

type NewIssueParams struct {
	UserID      *uuid.UUID
	Type        string
	Location    string
	Description string
	Lat         *float64
	Lng         *float64
	Image       string
}

// NewIssue валидирует поля и создаёт обращение в статусе pending без начислений.
func NewIssue(p NewIssueParams, policy IssuePolicy) (*Issue, error) {
	issueType, err := requiredText("type", p.Type, MaxIssueTypeLength)
	if err != nil {
		return nil, err
	}
	location, err := requiredText("location", p.Location, MaxIssueLocationLength)
	if err != nil {
		return nil, err
	}
	description, err := requiredText("description", p.Description, MaxIssueDescriptionLength)
	if err != nil {
		return nil, err
	}

	coords, err := valueobject.NewCoordinates(p.Lat, p.Lng, policy.Bounds)
	if err != nil {
		return nil, err
	}

	var image *string
	img, err := valueobject.NewImageDataURL(p.Image, policy.MaxImageLength)
	if err != nil {
		return nil, err
	}
	if img != nil {
		raw := img.String()
		image = &raw
	}

	if p.UserID != nil && *p.UserID == uuid.Nil {
		return nil, apperror.Validation("некорректный идентификатор автора")
	}

	return &Issue{
		ID:          uuid.New(),
		UserID:      p.UserID,
		Type:        issueType,
		Location:    location,
		Description: description,
		Coordinates: coords,
		Image:       image,
		Date:        time.Now().UTC(),
		Status:      valueobject.IssueStatusPending,
	}, nil
}

func (i *Issue) HasOwner() bool {
	return i.UserID != nil && *i.UserID != uuid.Nil
}

// Transition переводит обращение в requested и возвращает начисленный прирост.
// Метод должен вызываться только внутри атомарной операции хранилища.
func (i *Issue) Transition(requested valueobject.IssueStatus) (int, error) {
	if !requested.IsValid() {
		return 0, apperror.ErrInvalidStatus
	}
	delta := ledger.DecideAward(i.Status, requested, i.PointsAwarded, i.HasOwner())
	i.Status = requested
	i.PointsAwarded += delta
	return delta, nil
}

// sanitizeText убирает нулевые байты и пробелы по краям.
func sanitizeText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

func requiredText(field, value string, max int) (string, error) {
	v := sanitizeText(value)
	if v == "" {
		return "", apperror.Validation(fmt.Sprintf("отсутствует обязательное поле: %s", field))
	}
	if utf8.RuneCountInString(v) > max {
		return "", apperror.Validation(fmt.Sprintf("поле %s должно быть не длиннее %d символов", field, max))
	}
	return v, nil
}
