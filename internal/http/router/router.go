package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/cityfix-backend/internal/config"
	"github.com/ignatzorin/cityfix-backend/internal/http/middleware"
	"github.com/ignatzorin/cityfix-backend/internal/interface/http/handler"
)

// Handlers собирает все HTTP-обработчики сервиса.
type Handlers struct {
	Issue     *handler.IssueHandler
	Community *handler.CommunityHandler
	WS        *handler.WSHandler
	Health    *handler.HealthHandler
}

// SetupRouter собирает движок. Глобальные настройки gin (режим, строгий JSON)
// выставляются один раз при старте процесса, см. cmd/server.
func SetupRouter(
	cfg *config.Config,
	h Handlers,
	admin middleware.AdminChecker,
	limiterStore limiter.Store,
	gatherer prometheus.Gatherer,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	api.Use(middleware.RateLimitMiddleware(limiterStore, "api", cfg.RateLimitLimit, cfg.RateLimitPeriod))
	api.Use(middleware.AdminMiddleware(admin))
	{
		api.GET("/issues", h.Issue.ListIssues)
		api.GET("/issues/:id", middleware.UUIDValidator("id"), h.Issue.GetIssue)
		api.POST("/issues",
			middleware.RateLimitMiddleware(limiterStore, "create-issue", cfg.IssueRateLimit, cfg.IssueRatePeriod),
			h.Issue.CreateIssue,
		)
		api.PUT("/issues/:id/status", middleware.UUIDValidator("id"), h.Issue.UpdateStatus)
		api.DELETE("/issues/:id", middleware.UUIDValidator("id"), h.Issue.DeleteIssue)

		api.GET("/users/:id", middleware.UUIDValidator("id"), h.Community.GetUser)
		api.GET("/leaderboard", h.Community.Leaderboard)
	}

	adminGroup := api.Group("/admin")
	{
		adminGroup.GET("/users", h.Community.AdminUsers)
		adminGroup.GET("/stats", h.Community.AdminStats)
	}

	return r
}
