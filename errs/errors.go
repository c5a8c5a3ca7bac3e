package errs

import "fmt"

// ValidationError reports malformed input. It is surfaced to the caller
// as-is and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError with a formatted reason.
func Validationf(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing issue, user, or comment.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// AuthorizationError reports that the actor lacks permission for the
// requested field or action. The denied field is carried for
// diagnostics; the request is never silently degraded to a partial
// success.
type AuthorizationError struct {
	Field string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized to modify or access %q", e.Field)
}

// InvalidTransitionError reports an out-of-order lifecycle step, such
// as verifying before resolution or closing an unresolved issue.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ConflictError reports that a concurrent mutation won the optimistic
// lifecycle append. The caller may safely retry the whole operation
// from fresh state.
type ConflictError struct {
	Resource string
	ID       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of %s %s", e.Resource, e.ID)
}
