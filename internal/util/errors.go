package util

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindAuthorization      ErrorKind = "authorization"
	KindNotFound           ErrorKind = "not_found"
	KindDuplicateAttempt   ErrorKind = "duplicate_attempt"
	KindGenerationMismatch ErrorKind = "generation_mismatch"
	KindGenerationParse    ErrorKind = "generation_parse"
	KindConfiguration      ErrorKind = "configuration"
	KindExternalService    ErrorKind = "external_service"
)

// AppError 业务错误，Message 直接返回给调用方
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is 同类错误视为相等，便于 errors.Is(err, util.ErrNotFound) 之类的判断
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func (e *AppError) Status() int {
	switch e.Kind {
	case KindValidation, KindDuplicateAttempt:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newKind(kind ErrorKind) func(format string, args ...interface{}) *AppError {
	return func(format string, args ...interface{}) *AppError {
		return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
	}
}

var (
	NewValidationError         = newKind(KindValidation)
	NewAuthorizationError      = newKind(KindAuthorization)
	NewNotFoundError           = newKind(KindNotFound)
	NewDuplicateAttemptError   = newKind(KindDuplicateAttempt)
	NewGenerationMismatchError = newKind(KindGenerationMismatch)
	NewConfigurationError      = newKind(KindConfiguration)
)

// NewExternalServiceError 外部调用失败，原因只记录日志不返回给调用方
func NewExternalServiceError(err error) *AppError {
	return &AppError{Kind: KindExternalService, Message: "text generation service unavailable", Err: err}
}

func NewGenerationParseError(err error) *AppError {
	return &AppError{Kind: KindGenerationParse, Message: "failed to parse generated learning path", Err: err}
}

// 各类错误的哨兵值，只比较 Kind
var (
	ErrValidation         = &AppError{Kind: KindValidation}
	ErrAuthorization      = &AppError{Kind: KindAuthorization}
	ErrNotFound           = &AppError{Kind: KindNotFound}
	ErrDuplicateAttempt   = &AppError{Kind: KindDuplicateAttempt}
	ErrGenerationMismatch = &AppError{Kind: KindGenerationMismatch}
	ErrGenerationParse    = &AppError{Kind: KindGenerationParse}
	ErrConfiguration      = &AppError{Kind: KindConfiguration}
	ErrExternalService    = &AppError{Kind: KindExternalService}
)

var (
	ErrQuizNotFound     = NewNotFoundError("quiz not found")
	ErrClassNotFound    = NewNotFoundError("class not found")
	ErrAttemptNotFound  = NewNotFoundError("attempt not found")
	ErrNoQuizData       = NewNotFoundError("no quiz data available for this student")
	ErrNotClassOwner    = NewAuthorizationError("class does not belong to the current teacher")
	ErrNotQuizOwner     = NewAuthorizationError("quiz does not belong to the current teacher")
	ErrNotSubscribed    = NewAuthorizationError("no active subscription for this class")
	ErrAlreadyAttempted = NewDuplicateAttemptError("quiz already attempted")
	ErrAIKeyMissing     = NewConfigurationError("text generation API key is not configured")
)

// AsAppError 非 AppError 返回 nil
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
