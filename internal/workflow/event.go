// Package workflow defines the events an agent session emits to its front end.
package workflow

import (
	"github.com/Cyclone1070/mini/internal/policy"
	"github.com/Cyclone1070/mini/internal/provider"
	"github.com/Cyclone1070/mini/internal/tool"
)

// Event is the interface for all workflow events.
// UI handles events via type switch.
type Event interface {
	isEvent()
}

// ThinkingEvent is emitted before each model request.
type ThinkingEvent struct {
	Iteration int
}

func (ThinkingEvent) isEvent() {}

// ThinkingTextEvent carries assistant text that came with tool calls.
type ThinkingTextEvent struct {
	Text      string
	Reasoning string
}

func (ThinkingTextEvent) isEvent() {}

// FinalMessageEvent carries the assistant reply that ends a turn.
type FinalMessageEvent struct {
	Text      string
	Reasoning string
}

func (FinalMessageEvent) isEvent() {}

// ToolStartEvent is emitted when a tool call is dispatched.
type ToolStartEvent struct {
	ToolName       string
	RequestDisplay string // e.g. "src/index.ts"
}

func (ToolStartEvent) isEvent() {}

// ToolEndEvent is emitted when a tool call has a result, whether it ran or not.
type ToolEndEvent struct {
	ToolName string
	Args     tool.Args // nil when the arguments did not parse
	Result   tool.Result
	Display  tool.ToolDisplay
}

func (ToolEndEvent) isEvent() {}

// PolicyEvent reports the verdict for an execute_command call.
type PolicyEvent struct {
	Command string
	Verdict policy.Verdict
	Reason  string
}

func (PolicyEvent) isEvent() {}

// UsageEvent reports token usage of one request and the session total.
type UsageEvent struct {
	Usage provider.Usage
	Total provider.Usage
}

func (UsageEvent) isEvent() {}

// InterruptedEvent is emitted once when a turn is interrupted by the user.
type InterruptedEvent struct{}

func (InterruptedEvent) isEvent() {}

// ErrorEvent reports a turn-ending error.
type ErrorEvent struct {
	Err   error
	Fatal bool
}

func (ErrorEvent) isEvent() {}

// DoneEvent is emitted when a submitted turn has finished.
type DoneEvent struct {
	Err error
}

func (DoneEvent) isEvent() {}
