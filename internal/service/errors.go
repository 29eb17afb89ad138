package service

import (
	"errors"

	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/repository"
)

// permanentRepoErrors не повторяются ретраером: это ответы, а не сбои.
var permanentRepoErrors = []error{
	repository.ErrAccountNotFound,
	repository.ErrInsufficientBalance,
	repository.ErrKeyConflict,
	repository.ErrEntryNotFound,
	repository.ErrMatchNotFound,
	repository.ErrInvalidTransition,
	repository.ErrFeedbackExists,
	repository.ErrFeedbackNotFound,
	repository.ErrRunNotFound,
}

// translate переводит ошибки репозиториев в AppError.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		return apperror.ErrAccountNotFound
	case errors.Is(err, repository.ErrMatchNotFound):
		return apperror.ErrMatchNotFound
	case errors.Is(err, repository.ErrRunNotFound):
		return apperror.ErrRunNotFound
	case errors.Is(err, repository.ErrEntryNotFound), errors.Is(err, repository.ErrFeedbackNotFound):
		return apperror.Wrap(err, apperror.ErrCodeNotFound, "запись не найдена")
	case errors.Is(err, repository.ErrInsufficientBalance):
		return apperror.ErrInsufficientBalance
	case errors.Is(err, repository.ErrInvalidTransition), errors.Is(err, repository.ErrFeedbackExists):
		return apperror.ErrInvalidTransition
	case errors.Is(err, repository.ErrKeyConflict):
		return apperror.Wrap(err, apperror.ErrCodeConflict, "ключ идемпотентности уже использован для другой операции")
	default:
		return apperror.Storage(err)
	}
}
