package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/skillswap-backend/internal/dto"
	"github.com/ignatzorin/skillswap-backend/internal/http/handlers/common"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

type RewardHandler struct {
	distribution *service.DistributionService
}

func NewRewardHandler(distribution *service.DistributionService) *RewardHandler {
	return &RewardHandler{distribution: distribution}
}

// DistributeWeekly POST /api/admin/rewards/weekly
// Без week_start обрабатывается последняя завершённая неделя.
func (h *RewardHandler) DistributeWeekly(c *gin.Context) {
	var req dto.DistributeRewardsRequest
	if c.Request.ContentLength != 0 {
		if err := common.BindJSON(c, &req); err != nil {
			common.Fail(c, err)
			return
		}
	}

	weekStart := h.distribution.PreviousWeekStart()
	if req.WeekStart != "" {
		parsed, err := h.distribution.ParseWeekStart(req.WeekStart)
		if err != nil {
			common.Fail(c, err)
			return
		}
		weekStart = parsed
	}

	report, err := h.distribution.DistributeWeeklyRewards(c.Request.Context(), weekStart)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetRun GET /api/admin/rewards/weekly/:weekStart
func (h *RewardHandler) GetRun(c *gin.Context) {
	weekStart, err := h.distribution.ParseWeekStart(c.Param("weekStart"))
	if err != nil {
		common.Fail(c, err)
		return
	}

	run, err := h.distribution.GetRun(c.Request.Context(), weekStart)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}
