package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/dto"
	"github.com/ignatzorin/skillswap-backend/internal/http/handlers/common"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

type MatchHandler struct {
	matches *service.MatchService
}

func NewMatchHandler(matches *service.MatchService) *MatchHandler {
	return &MatchHandler{matches: matches}
}

// CreateMatch POST /api/matches
// Инициатором считается пользователь из токена.
func (h *MatchHandler) CreateMatch(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.CreateMatchRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	match, err := h.matches.CreateMatch(c.Request.Context(), req.SkillOwnerID, req.RequesterID, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, match)
}

// GetMatch GET /api/matches/:id
func (h *MatchHandler) GetMatch(c *gin.Context) {
	matchID, userID, ok := h.matchAndUser(c)
	if !ok {
		return
	}

	match, err := h.matches.GetMatch(c.Request.Context(), matchID, userID, common.CurrentUserRole(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, match)
}

// AcceptMatch PATCH /api/matches/:id/accept
func (h *MatchHandler) AcceptMatch(c *gin.Context) {
	matchID, userID, ok := h.matchAndUser(c)
	if !ok {
		return
	}

	match, err := h.matches.AcceptMatch(c.Request.Context(), matchID, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, match)
}

// RejectMatch PATCH /api/matches/:id/reject
func (h *MatchHandler) RejectMatch(c *gin.Context) {
	matchID, userID, ok := h.matchAndUser(c)
	if !ok {
		return
	}

	match, err := h.matches.RejectMatch(c.Request.Context(), matchID, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, match)
}

// CompleteMatch PATCH /api/matches/:id/complete
// Тело необязательно: без оценки владелец навыка получает базовую награду.
func (h *MatchHandler) CompleteMatch(c *gin.Context) {
	matchID, userID, ok := h.matchAndUser(c)
	if !ok {
		return
	}

	var req dto.CompleteMatchRequest
	if c.Request.ContentLength != 0 {
		if err := common.BindJSON(c, &req); err != nil {
			common.Fail(c, err)
			return
		}
	}

	result, err := h.matches.CompleteMatch(c.Request.Context(), matchID, userID, req.Rating, common.IdempotencyKey(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetFeedback GET /api/matches/:id/feedback
func (h *MatchHandler) GetFeedback(c *gin.Context) {
	matchID, userID, ok := h.matchAndUser(c)
	if !ok {
		return
	}

	fb, err := h.matches.GetFeedback(c.Request.Context(), matchID, userID, common.CurrentUserRole(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, fb)
}

func (h *MatchHandler) matchAndUser(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	matchID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return matchID, userID, true
}
