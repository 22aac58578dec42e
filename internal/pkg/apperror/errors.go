package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeSelfBid           ErrorCode = "SELF_BID"
	ErrCodeSelfModeration    ErrorCode = "SELF_MODERATION"
	ErrCodeInvalidAmount     ErrorCode = "INVALID_AMOUNT"
	ErrCodeBidTooLow         ErrorCode = "BID_TOO_LOW"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeUpstream          ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
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

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeSelfBid, ErrCodeSelfModeration:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeInvalidAmount, ErrCodeBidTooLow:
		return http.StatusBadRequest
	case ErrCodeInvalidTransition, ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return Is(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == ErrCodeForbidden || appErr.Code == ErrCodeSelfBid || appErr.Code == ErrCodeSelfModeration
}

func IsValidation(err error) bool {
	return Is(err, ErrCodeValidation)
}

// AsAppError извлекает *AppError из цепочки ошибок.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

var (
	ErrListingNotFound      = New(ErrCodeNotFound, "объявление не найдено")
	ErrBidNotFound          = New(ErrCodeNotFound, "ставка не найдена")
	ErrServiceNotFound      = New(ErrCodeNotFound, "услуга не найдена")
	ErrConversationNotFound = New(ErrCodeNotFound, "диалог не найден")
	ErrUserNotFound         = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden            = New(ErrCodeForbidden, "недостаточно прав")
	ErrSelfBid              = New(ErrCodeSelfBid, "нельзя делать ставку на собственное объявление")
	ErrSelfModeration       = New(ErrCodeSelfModeration, "нельзя модерировать собственное объявление")
	ErrInvalidAmount        = New(ErrCodeInvalidAmount, "сумма ставки должна быть больше нуля")
	ErrBidTooLow            = New(ErrCodeBidTooLow, "ставка должна быть строго выше текущей максимальной")
	ErrInvalidTransition    = New(ErrCodeInvalidTransition, "недопустимый переход статуса объявления")
	ErrInvalidCredentials   = New(ErrCodeUnauthorized, "неверные учетные данные")
	ErrUpstreamUnavailable  = New(ErrCodeUpstream, "внешний сервис временно недоступен")
)
