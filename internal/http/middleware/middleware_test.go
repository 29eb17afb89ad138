package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Discard()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware(t *testing.T) {
	tokens := service.NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()
	valid, err := tokens.GenerateAccess(userID, models.RoleAdmin)
	require.NoError(t, err)
	foreign, err := service.NewTokenManager("other-secret", time.Hour).GenerateAccess(userID, models.RoleAdmin)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthMiddleware(tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.MustGet(ContextUserIDKey).(uuid.UUID).String(),
			"role":    c.GetString(ContextRoleKey),
		})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"без заголовка", "", http.StatusUnauthorized},
		{"не bearer", "Basic abc", http.StatusUnauthorized},
		{"чужая подпись", "Bearer " + foreign, http.StatusUnauthorized},
		{"валидный токен", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			if tt.status == http.StatusOK {
				assert.Equal(t, userID.String(), body["user_id"])
				assert.Equal(t, models.RoleAdmin, body["role"])
			} else {
				assert.Equal(t, string(apperror.ErrCodeUnauthorized), body["code"])
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextRoleKey, c.GetHeader("X-Test-Role"))
		c.Next()
	})
	r.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Test-Role", models.RoleStudent)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Test-Role", models.RoleAdmin)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/validation", func(c *gin.Context) {
		_ = c.Error(apperror.Validation("amount", "сумма должна быть положительной"))
	})
	r.GET("/storage", func(c *gin.Context) {
		_ = c.Error(apperror.Storage(errors.New("dial tcp 10.0.0.1:5432: connection refused")))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("sql: database is closed"))
	})
	r.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
		_ = c.Error(errors.New("ignored"))
	})

	t.Run("validation с полем", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/validation", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, string(apperror.ErrCodeValidation), body["code"])
		assert.Equal(t, "amount", body["field"])
	})

	t.Run("storage маскирует причину", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/storage", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NotContains(t, w.Body.String(), "10.0.0.1")
		assert.Equal(t, string(apperror.ErrCodeStorageFailure), decode(t, w)["code"])
	})

	t.Run("неизвестная ошибка становится internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "sql:")
	})

	t.Run("готовый ответ не перезаписывается", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/written", nil))
		assert.Equal(t, http.StatusAccepted, w.Code)
	})
}

func TestErrorHandler_LogsForbiddenWithUser(t *testing.T) {
	hook := logtest.NewLocal(logger.Log)
	defer hook.Reset()
	userID := uuid.New()

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/audit", func(c *gin.Context) {
		c.Set(ContextUserIDKey, userID)
		_ = c.Error(apperror.ErrForbidden)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, userID, entry.Data["user_id"])
	assert.Equal(t, apperror.ErrCodeForbidden, entry.Data["code"])
}

func TestUUIDValidator(t *testing.T) {
	r := gin.New()
	r.GET("/matches/:id", UUIDValidator("id"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/matches/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "id", decode(t, w)["field"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/matches/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/credit", RateLimitMiddleware(2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/credit", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://campus.example"}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "https://campus.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://campus.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
