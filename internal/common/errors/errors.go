// internal/common/errors/errors.go
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeSurfaceUnavailable ErrorCode = "SURFACE_UNAVAILABLE"
	ErrCodeStaffQueueMissing  ErrorCode = "STAFF_QUEUE_NOT_CONFIGURED"
	ErrCodeAlreadyDecided     ErrorCode = "ALREADY_DECIDED"
	ErrCodeNoteRequired       ErrorCode = "NOTE_REQUIRED"
	ErrCodeApplicationMissing ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeStaleStep          ErrorCode = "STALE_STEP"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseWriteFailed      ErrorCode = "DATABASE_WRITE_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeCatalogInvalid           ErrorCode = "CATALOG_INVALID"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewValidationFailedError reports an answer that failed its question's check.
// It is handled at the point of detection and never escalates.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Answer failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSurfaceUnavailableError reports that no conversation surface could be
// opened for the applicant. Details carry the actionable instruction.
func NewSurfaceUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSurfaceUnavailable,
		Message:   "Could not open a conversation surface",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStaffQueueMissingError reports the one error class requiring operator
// attention: a completed interview with nowhere to go.
func NewStaffQueueMissingError(communityID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStaffQueueMissing,
		Message:   "No staff queue channel is configured",
		Details:   fmt.Sprintf("communityId: %s", communityID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadyDecidedError reports a stale decision race as a no-op notice.
func NewAlreadyDecidedError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlreadyDecided,
		Message:   "Application has already been decided",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoteRequiredError reports a reject/adjust attempt without a note.
func NewNoteRequiredError(action string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoteRequired,
		Message:   "A non-empty note is required for this decision",
		Details:   fmt.Sprintf("action: %s", action),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicationMissingError reports a lookup miss on an application id.
func NewApplicationMissingError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationMissing,
		Message:   "Application not found",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseWriteFailedError creates a retryable store error.
func NewDatabaseWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseWriteFailed,
		Message:   "Store write operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a notification delivery error; the
// caller absorbs it, decisions never block on it.
func NewNotificationSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogInvalidError reports a catalog file that failed schema validation.
func NewCatalogInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogInvalid,
		Message:   "Question catalog failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// IsCode reports whether err is a StandardError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	se, ok := err.(*StandardError)
	return ok && se.Code == code
}
