package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/skillswap-backend/internal/config"
	"github.com/ignatzorin/skillswap-backend/internal/http/handlers"
	"github.com/ignatzorin/skillswap-backend/internal/http/middleware"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	accountHandler *handlers.AccountHandler,
	matchHandler *handlers.MatchHandler,
	leaderboardHandler *handlers.LeaderboardHandler,
	rewardHandler *handlers.RewardHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/accounts", accountHandler.OpenAccount)
		protected.GET("/accounts/:id/balance", middleware.UUIDValidator("id"), accountHandler.GetBalance)
		protected.GET("/accounts/:id/entries", middleware.UUIDValidator("id"), accountHandler.ListEntries)
		protected.GET("/accounts/:id/feedback", middleware.UUIDValidator("id"), accountHandler.ListFeedback)

		protected.POST("/matches", matchHandler.CreateMatch)
		protected.GET("/matches/:id", middleware.UUIDValidator("id"), matchHandler.GetMatch)
		protected.PATCH("/matches/:id/accept", middleware.UUIDValidator("id"), matchHandler.AcceptMatch)
		protected.PATCH("/matches/:id/reject", middleware.UUIDValidator("id"), matchHandler.RejectMatch)
		protected.PATCH("/matches/:id/complete", middleware.UUIDValidator("id"), matchHandler.CompleteMatch)
		protected.GET("/matches/:id/feedback", middleware.UUIDValidator("id"), matchHandler.GetFeedback)

		protected.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		protected.GET("/leaderboard/me", leaderboardHandler.GetMyStanding)
	}

	// Административные маршруты
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(models.RoleAdmin))
	{
		adminRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)

		admin.POST("/accounts/:id/credit", middleware.UUIDValidator("id"), adminRateLimit, accountHandler.Credit)
		admin.POST("/accounts/:id/debit", middleware.UUIDValidator("id"), adminRateLimit, accountHandler.Debit)
		admin.GET("/accounts/:id/audit", middleware.UUIDValidator("id"), accountHandler.Audit)

		admin.POST("/rewards/weekly", adminRateLimit, rewardHandler.DistributeWeekly)
		admin.GET("/rewards/weekly/:weekStart", rewardHandler.GetRun)
	}

	return r
}
