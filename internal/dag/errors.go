package dag

import "fmt"

// ValidationError reports a malformed pipeline graph: a dependency cycle, a
// dangling reference, an empty matrix axis, an unregistered action, or a
// condition that does not evaluate to a boolean. It is always produced at
// materialization, before any instance executes.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid pipeline: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}
