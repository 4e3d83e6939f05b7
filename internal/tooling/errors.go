package tooling

import (
	"errors"
	"fmt"
)

// Failure kinds for a tool invocation. Match with errors.Is.
var (
	ErrToolNotFound = errors.New("tool not found")
	ErrToolFailed   = errors.New("tool exited with non-zero status")
	ErrToolTimeout  = errors.New("tool timed out")
	ErrToolLaunch   = errors.New("tool could not be launched")
)

// ToolError describes why a platform utility produced no usable output
type ToolError struct {
	Tool     string
	Kind     error // One of the Err* kinds above
	ExitCode int   // -1 when the process never exited normally
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Tool, e.Kind)
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is this error's kind
func (e *ToolError) Is(target error) bool {
	return target == e.Kind
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Kind returns a short label for the failure, suitable as a log field
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrToolNotFound):
		return "not_found"
	case errors.Is(err, ErrToolTimeout):
		return "timeout"
	case errors.Is(err, ErrToolFailed):
		return "nonzero_exit"
	case errors.Is(err, ErrToolLaunch):
		return "launch"
	default:
		return "unknown"
	}
}
