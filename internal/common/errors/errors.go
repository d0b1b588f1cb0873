// Package errors provides standardized error handling for the matching engine.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeClaimFailed              ErrorCode = "CLAIM_FAILED"
	ErrCodeCatalogLoadFailed        ErrorCode = "CATALOG_LOAD_FAILED"
	ErrCodeMatchWriteFailed         ErrorCode = "MATCH_WRITE_FAILED"
	ErrCodeChunkRetriesExhausted    ErrorCode = "CHUNK_RETRIES_EXHAUSTED"

	ErrCodeJudgmentTimeout     ErrorCode = "JUDGMENT_TIMEOUT"
	ErrCodeJudgmentFailed      ErrorCode = "JUDGMENT_FAILED"
	ErrCodeJudgmentMalformed   ErrorCode = "JUDGMENT_MALFORMED"
	ErrCodeJudgmentCircuitOpen ErrorCode = "JUDGMENT_CIRCUIT_OPEN"

	ErrCodeMalformedRecord ErrorCode = "MALFORMED_RECORD"
	ErrCodeInvalidConfig   ErrorCode = "INVALID_CONFIG"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// EngineError represents a structured application error.
type EngineError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("EngineError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *EngineError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *EngineError {
	return &EngineError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewClaimFailedError creates a retryable chunk-claim error.
func NewClaimFailedError(batchID string, err error) *EngineError {
	return &EngineError{
		Code:      ErrCodeClaimFailed,
		Message:   "Failed to claim applicant chunk",
		Details:   fmt.Sprintf("batchId: %s, error: %s", batchID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewCatalogLoadFailedError creates a retryable product-catalog load error.
func NewCatalogLoadFailedError(err error) *EngineError {
	return &EngineError{
		Code:      ErrCodeCatalogLoadFailed,
		Message:   "Failed to load active loan products",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewMatchWriteFailedError creates a retryable match persistence error.
func NewMatchWriteFailedError(batchID string, err error) *EngineError {
	return &EngineError{
		Code:      ErrCodeMatchWriteFailed,
		Message:   "Failed to persist match results",
		Details:   fmt.Sprintf("batchId: %s, error: %s", batchID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewChunkRetriesExhaustedError creates a non-retryable error surfaced to the
// operator once a chunk has exceeded its retry budget.
func NewChunkRetriesExhaustedError(batchID string, attempts int, err error) *EngineError {
	return &EngineError{
		Code:      ErrCodeChunkRetriesExhausted,
		Message:   "Chunk retry budget exhausted",
		Details:   fmt.Sprintf("batchId: %s, attempts: %d, error: %s", batchID, attempts, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewJudgmentTimeoutError creates a judgment-call timeout error. The caller
// fails open, so the error is informational and never retried upstream.
func NewJudgmentTimeoutError() *EngineError {
	return &EngineError{
		Code:      ErrCodeJudgmentTimeout,
		Message:   "Judgment service timeout",
		Details:   "call exceeded the configured timeout budget",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewJudgmentFailedError creates a judgment-service failure error.
func NewJudgmentFailedError(err error) *EngineError {
	return &EngineError{
		Code:      ErrCodeJudgmentFailed,
		Message:   "Judgment service error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewJudgmentMalformedError creates an error for responses that fail schema
// validation.
func NewJudgmentMalformedError(details string) *EngineError {
	return &EngineError{
		Code:      ErrCodeJudgmentMalformed,
		Message:   "Judgment service returned a malformed response",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewJudgmentCircuitOpenError indicates the breaker is rejecting calls.
func NewJudgmentCircuitOpenError() *EngineError {
	return &EngineError{
		Code:      ErrCodeJudgmentCircuitOpen,
		Message:   "Judgment circuit breaker open",
		Details:   "consecutive failures exceeded the breaker threshold",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedRecordError creates a non-retryable applicant-record error.
func NewMalformedRecordError(userID, details string) *EngineError {
	return &EngineError{
		Code:      ErrCodeMalformedRecord,
		Message:   "Applicant record failed validation",
		Details:   fmt.Sprintf("userId: %s, %s", userID, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidConfigError creates a non-retryable configuration error.
func NewInvalidConfigError(details string) *EngineError {
	return &EngineError{
		Code:      ErrCodeInvalidConfig,
		Message:   "Invalid engine configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(batchID string, err error) *EngineError {
	return &EngineError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Batch completion signal failed",
		Details:   fmt.Sprintf("batchId: %s, error: %s", batchID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsRetryable reports whether the error carries a retryable classification.
// Unrecognized errors default to retryable so transient driver errors are
// not dropped on the floor.
func IsRetryable(err error) bool {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return engErr.Retryable
	}
	return true
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "CLAIM") ||
		strings.Contains(codeStr, "WRITE") || strings.Contains(codeStr, "CHUNK") ||
		strings.Contains(codeStr, "CATALOG"):
		return "STORAGE"
	case strings.Contains(codeStr, "JUDGMENT"):
		return "ESCALATION"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "MALFORMED") || strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
