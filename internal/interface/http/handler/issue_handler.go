package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/cityfix-backend/internal/http/middleware"
	"github.com/ignatzorin/cityfix-backend/internal/interface/http/dto"
	"github.com/ignatzorin/cityfix-backend/internal/interface/http/response"
	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
	"github.com/ignatzorin/cityfix-backend/internal/usecase/issue"
)

type IssueHandler struct {
	createIssueUC      *issue.CreateIssueUseCase
	transitionStatusUC *issue.TransitionStatusUseCase
	deleteIssueUC      *issue.DeleteIssueUseCase
	getIssueUC         *issue.GetIssueUseCase
	listIssuesUC       *issue.ListIssuesUseCase
}

func NewIssueHandler(
	createIssueUC *issue.CreateIssueUseCase,
	transitionStatusUC *issue.TransitionStatusUseCase,
	deleteIssueUC *issue.DeleteIssueUseCase,
	getIssueUC *issue.GetIssueUseCase,
	listIssuesUC *issue.ListIssuesUseCase,
) *IssueHandler {
	return &IssueHandler{
		createIssueUC:      createIssueUC,
		transitionStatusUC: transitionStatusUC,
		deleteIssueUC:      deleteIssueUC,
		getIssueUC:         getIssueUC,
		listIssuesUC:       listIssuesUC,
	}
}

// CreateIssue обрабатывает POST /api/issues.
func (h *IssueHandler) CreateIssue(c *gin.Context) {
	var req dto.CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	userID, err := parseOptionalUUID(req.UserID, "user_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	created, err := h.createIssueUC.Execute(c.Request.Context(), issue.CreateIssueInput{
		UserID:      userID,
		Type:        req.Type,
		Location:    req.Location,
		Description: req.Description,
		Lat:         req.Lat,
		Lng:         req.Lng,
		Image:       req.Image,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToIssueResponse(created))
}

// ListIssues обрабатывает GET /api/issues?page=&per_page=.
func (h *IssueHandler) ListIssues(c *gin.Context) {
	out, err := h.listIssuesUC.Execute(c.Request.Context(), issue.ListIssuesInput{
		Page:    parseIntQuery(c, "page", 1),
		PerPage: parseIntQuery(c, "per_page", issue.DefaultPerPage),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToIssueListResponse(out.Items), out.Total, out.Page, out.PerPage)
}

func (h *IssueHandler) GetIssue(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	item, err := h.getIssueUC.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToIssueResponse(item))
}

// UpdateStatus обрабатывает PUT /api/issues/:id/status (только администратор).
func (h *IssueHandler) UpdateStatus(c *gin.Context) {
	if !middleware.IsAdmin(c) {
		response.Error(c, apperror.ErrAdminRequired)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	out, err := h.transitionStatusUC.Execute(c.Request.Context(), issue.TransitionStatusInput{
		IssueID: id,
		Status:  req.Status,
		IsAdmin: true,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToTransitionResponse(out))
}

// DeleteIssue обрабатывает DELETE /api/issues/:id (только администратор).
func (h *IssueHandler) DeleteIssue(c *gin.Context) {
	if !middleware.IsAdmin(c) {
		response.Error(c, apperror.ErrAdminRequired)
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.deleteIssueUC.Execute(c.Request.Context(), issue.DeleteIssueInput{IssueID: id, IsAdmin: true}); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.DeleteIssueResponse{IssueID: id})
}
