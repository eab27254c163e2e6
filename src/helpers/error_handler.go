package helpers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"market-simulator/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type SimulatorError struct {
	Message string
	Cause   error
}

func (e *SimulatorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SimulatorError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ SimulatorError }
type ValidationError struct{ SimulatorError }
type DatabaseError struct{ SimulatorError }
type NotFoundError struct{ SimulatorError }

// NewValidationError reports a rejected input or a violated precondition
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{SimulatorError{Message: fmt.Sprintf(format, args...)}}
}

// NewNotFoundError reports an unknown market or book
func NewNotFoundError(format string, args ...interface{}) error {
	return &NotFoundError{SimulatorError{Message: fmt.Sprintf(format, args...)}}
}

// IsValidation reports whether err wraps a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err wraps a NotFoundError
func IsNotFound(err error) bool {
	var v *NotFoundError
	return errors.As(err, &v)
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger                 *logger.Logger
	ErrorCount             int
	MaxErrorsBeforeRestart int
	BaseDelay              time.Duration
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{
		Logger:                 log,
		ErrorCount:             0,
		MaxErrorsBeforeRestart: 10,
		BaseDelay:              time.Second,
	}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.ErrorCount = 0
}

// -----------------------------------------------------------------------------

// ExecuteWithRetry runs fn up to maxRetries times with exponential backoff and
// categorizes the final error by operation name.
func (e *ErrorHandler) ExecuteWithRetry(operation string, fn func() error, maxRetries int) error {
	if maxRetries <= 0 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			if e.ErrorCount > 0 {
				e.ErrorCount--
			}
			return nil
		}

		if attempt == maxRetries-1 {
			e.ErrorCount++
			e.Logger.Error("%s failed (attempt %d/%d): %v", operation, attempt+1, maxRetries, err)

			lowerOp := strings.ToLower(operation)
			if strings.Contains(lowerOp, "database") || strings.Contains(lowerOp, "save") || strings.Contains(lowerOp, "journal") {
				return &DatabaseError{SimulatorError{Message: fmt.Sprintf("%s failed", operation), Cause: err}}
			}
			return &SimulatorError{Message: fmt.Sprintf("%s failed", operation), Cause: err}
		}

		e.Logger.Warning("%s failed (attempt %d/%d): %v", operation, attempt+1, maxRetries, err)
		time.Sleep(e.BaseDelay * time.Duration(1<<attempt))
	}

	return &SimulatorError{Message: fmt.Sprintf("%s failed after %d attempts", operation, maxRetries)}
}

// -----------------------------------------------------------------------------

// TooManyErrors reports whether the handler crossed its restart threshold
func (e *ErrorHandler) TooManyErrors() bool {
	return e.ErrorCount >= e.MaxErrorsBeforeRestart
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) Handle(err error, context string) {
	if err != nil {
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
