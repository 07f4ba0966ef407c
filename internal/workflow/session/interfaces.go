package session

import (
	"context"

	"github.com/Cyclone1070/mini/internal/provider"
	"github.com/Cyclone1070/mini/internal/tool"
	"github.com/Cyclone1070/mini/internal/workflow"
)

// toolManager dispatches tool calls.
type toolManager interface {
	// Declarations returns all tool schemas for the LLM.
	Declarations() []tool.Declaration

	// Execute runs a tool call and returns the tool message for it.
	// It emits ToolStartEvent, ToolEndEvent and approval requests on events.
	Execute(ctx context.Context, tc provider.ToolCall, events chan<- workflow.Event) (provider.Message, tool.Result)
}

// recorder persists request/response pairs for debugging.
type recorder interface {
	Record(n int, req *provider.ChatRequest, resp *provider.ChatResponse, err error)
}
