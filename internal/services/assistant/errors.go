package assistant

import (
	"errors"
	"fmt"
)

// ErrTurnInFlight is returned when a turn is requested for a trip whose
// previous turn has not finished.
var ErrTurnInFlight = errors.New("a turn is already in progress for this trip")

// ErrorCategory buckets turn failures for client handling and metrics.
type ErrorCategory string

const (
	ErrorCategoryNetwork    ErrorCategory = "network"
	ErrorCategoryAI         ErrorCategory = "ai"
	ErrorCategoryDatabase   ErrorCategory = "database"
	ErrorCategoryValidation ErrorCategory = "validation"
)

// TurnError wraps a turn failure with its category and a user-safe
// message. The wrapped error keeps full detail for logs.
type TurnError struct {
	Category ErrorCategory
	Message  string
	Err      error
}

func (e *TurnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// newTurnError builds a categorized turn error
func newTurnError(category ErrorCategory, message string, err error) *TurnError {
	return &TurnError{Category: category, Message: message, Err: err}
}
