package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound               ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized           ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden              ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest             ErrorCode = "BAD_REQUEST"
	ErrCodeConflict               ErrorCode = "CONFLICT"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation             ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidStateTransition ErrorCode = "INVALID_STATE_TRANSITION"
	ErrCodeInsufficientBalance    ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeStorageFailure         ErrorCode = "STORAGE_FAILURE"
	ErrCodeRateLimited            ErrorCode = "RATE_LIMITED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	Field      string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation создаёт ошибку валидации с именем поля.
func Validation(field, message string) *AppError {
	e := New(ErrCodeValidation, message)
	e.Field = field
	return e
}

// Storage оборачивает ошибку хранилища.
func Storage(err error) *AppError {
	return Wrap(err, ErrCodeStorageFailure, "хранилище временно недоступно")
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidStateTransition, ErrCodeInsufficientBalance:
		return http.StatusConflict
	case ErrCodeStorageFailure:
		return http.StatusServiceUnavailable
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или пустую строку для обычных ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	return CodeOf(err) == ErrCodeForbidden
}

func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

func IsInvalidStateTransition(err error) bool {
	return CodeOf(err) == ErrCodeInvalidStateTransition
}

func IsInsufficientBalance(err error) bool {
	return CodeOf(err) == ErrCodeInsufficientBalance
}

func IsStorageFailure(err error) bool {
	return CodeOf(err) == ErrCodeStorageFailure
}

var (
	ErrAccountNotFound     = New(ErrCodeNotFound, "аккаунт не найден")
	ErrMatchNotFound       = New(ErrCodeNotFound, "матч не найден")
	ErrRunNotFound         = New(ErrCodeNotFound, "распределение за эту неделю не найдено")
	ErrUnauthorized        = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden           = New(ErrCodeForbidden, "недостаточно прав")
	ErrInsufficientBalance = New(ErrCodeInsufficientBalance, "недостаточно токенов на балансе")
	ErrInvalidTransition   = New(ErrCodeInvalidStateTransition, "недопустимый переход статуса матча")
)
