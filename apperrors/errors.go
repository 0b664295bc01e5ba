package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError reports missing or malformed input. No mutation happens
// before it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NotFoundError reports an absent issue or user.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// UnauthorizedError reports an actor lacking permission for a transition.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return e.Reason
}

// InvalidTransitionError reports an escalation requested out of hierarchy
// order or past the terminal tier.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid escalation from %q to %q", e.From, e.To)
}

// GeofenceViolationError reports a resolution location outside the allowed
// radius. DistanceMeters carries the computed distance for user feedback.
type GeofenceViolationError struct {
	DistanceMeters float64
	LimitMeters    float64
}

func (e *GeofenceViolationError) Error() string {
	return fmt.Sprintf("resolved location must be within %.0f meters of reported location, current distance: %.0fm",
		e.LimitMeters, e.DistanceMeters)
}

// ErrConflict is returned when a conditional write loses a concurrent race.
// The caller must re-read and retry.
var ErrConflict = errors.New("issue was modified concurrently, retry")

// IsConflict reports whether err is a lost-write conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
