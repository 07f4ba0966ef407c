package pathutil

import (
	"errors"
	"fmt"
)

var (
	// ErrOutsideWorkspace is returned when a path escapes the workspace boundary.
	ErrOutsideWorkspace = errors.New("path is outside workspace root")
	// ErrWorkspaceRootNotSet is returned when the resolver has no root.
	ErrWorkspaceRootNotSet = errors.New("workspace root not set")
	// ErrNotADirectory is returned when the workspace root is not a directory.
	ErrNotADirectory = errors.New("not a directory")
)

// WorkspaceRootError is returned when the workspace root is invalid.
type WorkspaceRootError struct {
	Root  string
	Cause error
}

func (e *WorkspaceRootError) Error() string {
	return fmt.Sprintf("invalid workspace root %s: %v", e.Root, e.Cause)
}

func (e *WorkspaceRootError) Unwrap() error {
	return e.Cause
}
