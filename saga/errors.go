package saga

import (
	"errors"
	"fmt"
)

var (
	ErrStopped    = errors.New("saga stopped")
	ErrTakeFailed = errors.New("take failed")
	ErrPanicked   = errors.New("saga panicked")
	ErrNilSaga    = errors.New("nil saga")
	ErrBadEffect  = errors.New("bad effect")
	ErrTimeout    = errors.New("future timed out")
	ErrClosed     = errors.New("saga runtime closed")
)

// StopError is raised into a task's body when the task is stopped.
// It matches ErrStopped and, when set, its Cause.
type StopError struct {
	Cause error
}

func (e *StopError) Error() string {
	if e.Cause == nil {
		return ErrStopped.Error()
	}
	return fmt.Sprintf("%s: %s", ErrStopped, e.Cause)
}

func (e *StopError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrStopped}
	}
	return []error{ErrStopped, e.Cause}
}

// IsStop reports whether err is, or wraps, a stop error.
func IsStop(err error) bool {
	return errors.Is(err, ErrStopped)
}
