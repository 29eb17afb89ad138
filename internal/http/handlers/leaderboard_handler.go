package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/skillswap-backend/internal/dto"
	"github.com/ignatzorin/skillswap-backend/internal/http/handlers/common"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
}

func NewLeaderboardHandler(leaderboard *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// GetLeaderboard GET /api/leaderboard?period=weekly&limit=10
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	period, limit, err := leaderboardQuery(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	board, err := h.leaderboard.Rank(c.Request.Context(), period, limit)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, board)
}

// GetMyStanding GET /api/leaderboard/me
// Вне лимита возвращается строка со standing=not_in_top без позиции.
func (h *LeaderboardHandler) GetMyStanding(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	period, limit, err := leaderboardQuery(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	row, err := h.leaderboard.RankOf(c.Request.Context(), period, limit, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.StandingResponse{Period: period, Row: row})
}

func leaderboardQuery(c *gin.Context) (models.LeaderboardPeriod, int, error) {
	period := models.LeaderboardPeriod(c.DefaultQuery("period", string(models.PeriodWeekly)))
	if !period.IsValid() {
		return "", 0, apperror.Validation("period", "период должен быть weekly, monthly или all-time")
	}
	limit, err := common.ParseIntQuery(c, "limit", 0)
	if err != nil {
		return "", 0, err
	}
	return period, limit, nil
}
