package planner

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrPlanNotFound    = errors.New("plan not found")
	ErrWorkoutNotFound = errors.New("workout not found")

	// ErrWorkoutCompleted guards the terminal state: a completed workout
	// can neither be completed again nor rescheduled.
	ErrWorkoutCompleted = errors.New("workout already completed")

	// ErrOwnershipMismatch - the acting user does not own the referenced
	// plan/workout.
	ErrOwnershipMismatch = errors.New("acting user does not own this workout")

	ErrCacheMiss = errors.New("cache miss")
)

// InvalidInputError carries field-level validation detail, it is always
// raised before any side effects.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input [%s]: %s", e.Field, e.Reason)
}

func invalidInput(field, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: reason}
}

// RateLimitedError short-circuits an operation before any persistence.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
