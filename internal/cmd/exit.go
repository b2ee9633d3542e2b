package cmd

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes. A wrapped command's own exit status passes through
// unchanged, so runone reserves only the codes below for itself.
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitWaitTimeout = 2
)

// ExitError carries an exit code out through cobra's Execute.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return e.Cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Cause }

// HandleExitError prints err to stderr and exits with its code. An
// ExitError with no message and no cause exits silently; that is how
// a wrapped command's exit status propagates after the command has
// already written its own output.
func HandleExitError(err error) {
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, "Error:", msg)
		}
		os.Exit(exitErr.Code)
	}

	fmt.Fprintln(os.Stderr, "Error:", err.Error())
	os.Exit(ExitFailure)
}
