package errors

import (
	"errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Message keys resolved against the i18n catalogs before anything reaches a customer.
const (
	MessageGeneric     = "ERROR_GENERIC"
	MessageRateLimited = "RATE_LIMITED"
	MessageInvalid     = "INVALID_INPUT"
)

// AppError carries a stable code plus the catalog key shown to the customer.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// CodeOf returns the AppError code in err's chain, or "" when there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Code
	}

	return ""
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: MessageInvalid,
		Severity:    SeverityLow,
	}
}

// NewExtractionError marks a fallback extraction that produced nothing usable.
func NewExtractionError(field string, cause error) *AppError {
	return &AppError{
		Code:        "E110",
		Message:     fmt.Sprintf("Extraction failed for %s", field),
		UserMessage: MessageInvalid,
		Severity:    SeverityLow,
		cause:       cause,
	}
}

func NewDatabaseError(cause error) *AppError {
	return &AppError{
		Code:        "E200",
		Message:     "Database error",
		UserMessage: MessageGeneric,
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewDependencyError wraps a failing backing service other than the database (redis, amqp, media storage).
func NewDependencyError(name string, cause error) *AppError {
	return &AppError{
		Code:        "E210",
		Message:     fmt.Sprintf("Dependency error: %s", name),
		UserMessage: MessageGeneric,
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("External API error: %s", apiName),
		UserMessage: MessageGeneric,
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewTranscriptionError(cause error) *AppError {
	return &AppError{
		Code:        "E310",
		Message:     "Voice transcription failed",
		UserMessage: MessageGeneric,
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: MessageGeneric,
		Severity:    SeverityMedium,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: MessageRateLimited,
		Severity:    SeverityLow,
	}
}
