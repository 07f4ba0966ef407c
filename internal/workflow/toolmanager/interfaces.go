package toolmanager

import (
	"context"

	"github.com/Cyclone1070/mini/internal/policy"
	"github.com/Cyclone1070/mini/internal/tool"
)

// toolImpl defines the interface for individual tools.
// Tool-level failures are reported in the Result; an error means the call
// could not be carried out at all.
type toolImpl interface {
	Name() string
	Declaration() tool.Declaration
	Execute(ctx context.Context, args tool.Args) (tool.Result, error)
}

// previewer is implemented by tools that can show what a call would do
// before it is approved.
type previewer interface {
	Preview(ctx context.Context, args tool.Args) (tool.ToolDisplay, error)
}

// policyEngine decides on commands and file paths.
type policyEngine interface {
	Evaluate(command string) policy.Decision
	ValidateFileOperation(path string) policy.OperationCheck
}
