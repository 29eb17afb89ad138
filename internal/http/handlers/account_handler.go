package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/dto"
	"github.com/ignatzorin/skillswap-backend/internal/http/handlers/common"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

type AccountHandler struct {
	ledger  *service.LedgerService
	matches *service.MatchService
}

func NewAccountHandler(ledger *service.LedgerService, matches *service.MatchService) *AccountHandler {
	return &AccountHandler{ledger: ledger, matches: matches}
}

// OpenAccount POST /api/accounts
// Аккаунт открывается для пользователя из токена, роль тоже берётся из токена.
func (h *AccountHandler) OpenAccount(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	account, created, err := h.ledger.OpenAccount(c.Request.Context(), userID, common.CurrentUserRole(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, account)
}

// GetBalance GET /api/accounts/:id/balance
func (h *AccountHandler) GetBalance(c *gin.Context) {
	accountID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	balance, err := h.ledger.BalanceOf(c.Request.Context(), accountID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{AccountID: accountID, Balance: balance})
}

// ListEntries GET /api/accounts/:id/entries
// История видна владельцу аккаунта и администраторам.
func (h *AccountHandler) ListEntries(c *gin.Context) {
	accountID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	if userID != accountID && common.CurrentUserRole(c) != models.RoleAdmin {
		common.Fail(c, apperror.ErrForbidden)
		return
	}

	limit, offset, err := common.GetPagination(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	entries, err := h.ledger.ListEntries(c.Request.Context(), accountID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EntriesResponse{Entries: entries, Limit: limit, Offset: offset})
}

// ListFeedback GET /api/accounts/:id/feedback
func (h *AccountHandler) ListFeedback(c *gin.Context) {
	accountID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	limit, offset, err := common.GetPagination(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	items, err := h.matches.ListFeedback(c.Request.Context(), accountID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FeedbackResponse{Feedback: items, Limit: limit, Offset: offset})
}

// Credit POST /api/admin/accounts/:id/credit
func (h *AccountHandler) Credit(c *gin.Context) {
	h.mutate(c, valueobject.EntryKindBonus, h.ledger.Credit)
}

// Debit POST /api/admin/accounts/:id/debit
func (h *AccountHandler) Debit(c *gin.Context) {
	h.mutate(c, valueobject.EntryKindSpent, h.ledger.Debit)
}

type ledgerOp func(ctx context.Context, accountID uuid.UUID, amount int64, kind valueobject.EntryKind, description, key string) (*models.LedgerResult, error)

func (h *AccountHandler) mutate(c *gin.Context, defaultKind valueobject.EntryKind, op ledgerOp) {
	accountID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.LedgerMutationRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	kind := defaultKind
	if req.Kind != "" {
		if kind, err = valueobject.NewEntryKind(req.Kind); err != nil {
			common.Fail(c, err)
			return
		}
	}

	result, err := op(c.Request.Context(), accountID, req.Amount, kind, req.Description, common.IdempotencyKey(c))
	if err != nil {
		common.Fail(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// Audit GET /api/admin/accounts/:id/audit
func (h *AccountHandler) Audit(c *gin.Context) {
	accountID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	audit, err := h.ledger.Audit(c.Request.Context(), accountID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, audit)
}
