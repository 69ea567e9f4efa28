package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/cityfix-backend/internal/domain/repository"
	"github.com/ignatzorin/cityfix-backend/internal/usecase/issue"
)

// CreateIssueRequest описывает тело POST /api/issues. Обязательность и длины полей
// проверяет домен, чтобы сообщения об ошибках были одинаковыми для всех клиентов.
type CreateIssueRequest struct {
	UserID      *string  `json:"user_id"`
	Type        string   `json:"type"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Image       string   `json:"image"`
	// Date принимается для совместимости со старыми клиентами и игнорируется:
	// дату создания назначает сервер.
	Date *string `json:"date"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type IssueResponse struct {
	ID            uuid.UUID  `json:"id"`
	UserID        *uuid.UUID `json:"user_id"`
	Type          string     `json:"type"`
	Location      string     `json:"location"`
	Lat           *float64   `json:"lat"`
	Lng           *float64   `json:"lng"`
	Description   string     `json:"description"`
	Image         *string    `json:"image"`
	Date          time.Time  `json:"date"`
	Status        string     `json:"status"`
	PointsAwarded int        `json:"points_awarded"`
	ReporterName  *string    `json:"reporter_name"`
}

type TransitionResponse struct {
	Issue IssueResponse `json:"issue"`
	// Прирост за этот переход.
	PointsAwarded int  `json:"points_awarded"`
	OwnerPoints   *int `json:"owner_points,omitempty"`
}

type DeleteIssueResponse struct {
	IssueID uuid.UUID `json:"issue_id"`
}

func ToIssueResponse(item *repository.IssueWithReporter) IssueResponse {
	resp := IssueResponse{
		ID:            item.ID,
		UserID:        item.UserID,
		Type:          item.Type,
		Location:      item.Location,
		Description:   item.Description,
		Image:         item.Image,
		Date:          item.Date,
		Status:        item.Status.String(),
		PointsAwarded: item.PointsAwarded,
		ReporterName:  item.ReporterName,
	}
	if item.Coordinates != nil {
		lat, lng := item.Coordinates.Lat, item.Coordinates.Lng
		resp.Lat, resp.Lng = &lat, &lng
	}
	return resp
}

func ToIssueListResponse(items []*repository.IssueWithReporter) []IssueResponse {
	out := make([]IssueResponse, 0, len(items))
	for _, item := range items {
		out = append(out, ToIssueResponse(item))
	}
	return out
}

func ToTransitionResponse(out *issue.TransitionStatusOutput) TransitionResponse {
	return TransitionResponse{
		Issue:         ToIssueResponse(&repository.IssueWithReporter{Issue: out.Issue}),
		PointsAwarded: out.Delta,
		OwnerPoints:   out.OwnerPoints,
	}
}
