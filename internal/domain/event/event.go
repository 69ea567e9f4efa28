// Package event описывает уведомления жизненного цикла обращений, которые рассылаются
// подключённым наблюдателям. События не сохраняются и не переотправляются.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/cityfix-backend/internal/domain/entity"
	"github.com/ignatzorin/cityfix-backend/internal/domain/valueobject"
)

type Kind string

const (
	KindNewIssue      Kind = "new_issue"
	KindStatusUpdated Kind = "status_updated"
	KindPointsUpdated Kind = "points_updated"
	KindIssueDeleted  Kind = "issue_deleted"
)

// Event: типизированная запись одного вида уведомления.
type Event interface {
	Kind() Kind
}

// NewIssue несёт полное денормализованное обращение вместе с именем автора.
type NewIssue struct {
	ID            uuid.UUID               `json:"id"`
	UserID        *uuid.UUID              `json:"user_id"`
	Type          string                  `json:"type"`
	Location      string                  `json:"location"`
	Lat           *float64                `json:"lat"`
	Lng           *float64                `json:"lng"`
	Description   string                  `json:"description"`
	Image         *string                 `json:"image"`
	Date          time.Time               `json:"date"`
	Status        valueobject.IssueStatus `json:"status"`
	PointsAwarded int                     `json:"points_awarded"`
	ReporterName  *string                 `json:"reporter_name"`
}

func (NewIssue) Kind() Kind { return KindNewIssue }

// NewIssueFrom строит событие из сохранённого обращения.
func NewIssueFrom(issue *entity.Issue, reporterName *string) NewIssue {
	e := NewIssue{
		ID:            issue.ID,
		UserID:        issue.UserID,
		Type:          issue.Type,
		Location:      issue.Location,
		Description:   issue.Description,
		Image:         issue.Image,
		Date:          issue.Date,
		Status:        issue.Status,
		PointsAwarded: issue.PointsAwarded,
		ReporterName:  reporterName,
	}
	if issue.Coordinates != nil {
		lat, lng := issue.Coordinates.Lat, issue.Coordinates.Lng
		e.Lat, e.Lng = &lat, &lng
	}
	return e
}

// StatusUpdated: в PointsAwarded прирост за этот переход, а не сумма.
type StatusUpdated struct {
	IssueID       uuid.UUID               `json:"issue_id"`
	Status        valueobject.IssueStatus `json:"status"`
	PointsAwarded int                     `json:"points_awarded"`
}

func (StatusUpdated) Kind() Kind { return KindStatusUpdated }

type PointsUpdated struct {
	UserID uuid.UUID `json:"user_id"`
	Points int       `json:"points"`
	Added  int       `json:"added"`
}

func (PointsUpdated) Kind() Kind { return KindPointsUpdated }

type IssueDeleted struct {
	IssueID uuid.UUID `json:"issue_id"`
}

func (IssueDeleted) Kind() Kind { return KindIssueDeleted }

// envelope строго следует контракту WebSocket API:
// поле "type" содержит имя события, "data" полезную нагрузку.
type envelope struct {
	Type Kind  `json:"type"`
	Data Event `json:"data"`
}

// Encode сериализует событие в конверт для отправки клиентам.
func Encode(e Event) ([]byte, error) {
	raw, err := json.Marshal(envelope{Type: e.Kind(), Data: e})
	if err != nil {
		return nil, fmt.Errorf("event: не удалось сериализовать %s: %w", e.Kind(), err)
	}
	return raw, nil
}
