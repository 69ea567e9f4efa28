package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/cityfix-backend/internal/http/middleware"
	"github.com/ignatzorin/cityfix-backend/internal/interface/http/dto"
	"github.com/ignatzorin/cityfix-backend/internal/interface/http/response"
	"github.com/ignatzorin/cityfix-backend/internal/usecase/community"
)

type CommunityHandler struct {
	profileUC     *community.GetUserProfileUseCase
	leaderboardUC *community.LeaderboardUseCase
	listUsersUC   *community.ListUsersUseCase
	statsUC       *community.AdminStatsUseCase
}

func NewCommunityHandler(
	profileUC *community.GetUserProfileUseCase,
	leaderboardUC *community.LeaderboardUseCase,
	listUsersUC *community.ListUsersUseCase,
	statsUC *community.AdminStatsUseCase,
) *CommunityHandler {
	return &CommunityHandler{
		profileUC:     profileUC,
		leaderboardUC: leaderboardUC,
		listUsersUC:   listUsersUC,
		statsUC:       statsUC,
	}
}

func (h *CommunityHandler) GetUser(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	profile, err := h.profileUC.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToUserProfileResponse(profile))
}

func (h *CommunityHandler) Leaderboard(c *gin.Context) {
	users, err := h.leaderboardUC.Execute(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToLeaderboard(users))
}

func (h *CommunityHandler) AdminUsers(c *gin.Context) {
	users, err := h.listUsersUC.Execute(c.Request.Context(), middleware.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToAdminUsers(users))
}

func (h *CommunityHandler) AdminStats(c *gin.Context) {
	stats, err := h.statsUC.Execute(c.Request.Context(), middleware.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToStatsResponse(stats))
}
