package command

import (
	"fmt"
	"strings"
)

// NotFoundError reports an id absent from the current tree or registry.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("command %q not found", e.ID)
}

// PermissionError reports that a command declared permissions that are not
// currently granted. Missing lists exactly the absent permissions so the
// host can render an actionable message.
type PermissionError struct {
	ID      string
	Missing []string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("command %q requires missing permissions: %s", e.ID, strings.Join(e.Missing, ", "))
}

// ExecutionError wraps a failure (or contained panic) from a command's own
// effect. It is surfaced to the caller as a structured result, never
// retried.
type ExecutionError struct {
	ID  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("command %q failed: %v", e.ID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ValidationError reports a malformed request: unexpected id format,
// oversized payload, unknown setting.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// ConflictError reports that a keybinding sequence is already owned by
// another command. It is advisory, not fatal; hosts surface it as a warning
// while the user is assigning a binding.
type ConflictError struct {
	Sequence string
	OwnerID  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("keybinding %q already bound to %q", e.Sequence, e.OwnerID)
}
