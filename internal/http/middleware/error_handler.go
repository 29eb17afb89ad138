package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/dto"
	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Клиент получает код и сообщение AppError, внутренние причины только в логах.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			appErr = apperror.Wrap(err, apperror.ErrCodeInternal, "внутренняя ошибка сервера")
		}

		entry := logger.Log.WithFields(logrus.Fields{
			"code":   appErr.Code,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
		switch {
		case appErr.HTTPStatus >= http.StatusInternalServerError:
			entry.WithError(err).Error("Request error")
		case apperror.IsForbidden(appErr):
			userID, _ := c.Get(ContextUserIDKey)
			entry.WithField("user_id", userID).Warn("доступ запрещён")
		default:
			entry.Debug(appErr.Message)
		}

		c.JSON(appErr.HTTPStatus, dto.ErrorResponse{
			Error: appErr.Message,
			Code:  string(appErr.Code),
			Field: appErr.Field,
		})
	}
}
