package multilock

import (
	"fmt"
	"time"
)

// TimeoutError reports that a barrier wait ran out of time before the
// lockgroup emptied.
type TimeoutError struct {
	Group   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("wait on lockgroup %s timed out after %v", e.Group, e.Timeout)
}

// DeniedError reports that a scoped Do call could not acquire its
// lock. Err carries the underlying filesystem failure when there was
// one; a plain race loss leaves it nil.
type DeniedError struct {
	Name string
	Err  error
}

func (e *DeniedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lock %s denied: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("lock %s denied: held elsewhere", e.Name)
}

func (e *DeniedError) Unwrap() error { return e.Err }
