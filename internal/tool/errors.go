package tool

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTool         = errors.New("unknown tool")
	ErrArgumentsNotObject  = errors.New("arguments must be a JSON object")
	ErrPathRequired        = errors.New("path is required")
	ErrOperationsRequired  = errors.New("operations is required")
	ErrCommandRequired     = errors.New("command is required")
	ErrPatternRequired     = errors.New("pattern is required")
	ErrInvalidOffset       = errors.New("offset must be >= 0")
	ErrInvalidLimit        = errors.New("limit must be >= 0")
	ErrInvalidTimeout      = errors.New("timeout must be >= 0")
	ErrInvalidReplacements = errors.New("expected_replacements must be >= 0")
	ErrEmptyEditOperation  = errors.New("edit operation must change something")
	ErrUnexpectedArgsType  = errors.New("unexpected argument type for tool")
)

// ArgumentError reports arguments that could not be decoded or validated.
// The dispatcher returns it to the model so it can retry with corrected input.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }
