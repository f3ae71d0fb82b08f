// Package errs defines the error kinds raised by the window tree and its
// collaborators.
//
// Kinds are distinguished with errors.As so callers can wrap freely:
//   - StructuralError: misuse of the window tree (bad WindowID, exhausted ids).
//   - BackendError: volume group or lock failures.
//   - ExternalToolError: a formatting tool exited non-zero or a device node never appeared.
package errs

import (
	"errors"
	"fmt"
)

// StructuralError reports a window tree invariant violation.
type StructuralError struct {
	Op  string
	Msg string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural: %s: %s", e.Op, e.Msg)
}

// Structural returns a StructuralError for op.
func Structural(op, format string, args ...any) error {
	return &StructuralError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// BackendError wraps a failure of the logical-volume backend or a shared resource.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Backend wraps err as a BackendError. It returns nil for a nil err.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Err: err}
}

// ExternalToolError reports a failed tool invocation or device wait.
type ExternalToolError struct {
	Tool   string
	Args   []string
	Output string
	Err    error
}

func (e *ExternalToolError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("tool %s: %v: %s", e.Tool, e.Err, e.Output)
	}
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

func IsStructural(err error) bool {
	var e *StructuralError
	return errors.As(err, &e)
}

func IsBackend(err error) bool {
	var e *BackendError
	return errors.As(err, &e)
}

func IsExternalTool(err error) bool {
	var e *ExternalToolError
	return errors.As(err, &e)
}

// Kind names the error kind for log lines.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case IsStructural(err):
		return "structural"
	case IsExternalTool(err):
		return "external-tool"
	case IsBackend(err):
		return "backend"
	default:
		return "unknown"
	}
}
