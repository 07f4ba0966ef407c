package workflow

import (
	"context"

	"github.com/Cyclone1070/mini/internal/tool"
)

// ApprovalDecision is the user's answer to an approval request.
// AutoApproveSession skips future prompts for approval-required tools.
type ApprovalDecision struct {
	Approved           bool
	AutoApproveSession bool
}

// ApprovalRequestEvent asks the user whether a tool call may run.
// The receiver must send exactly one decision on Reply.
type ApprovalRequestEvent struct {
	ToolName string
	Args     tool.Args
	Tier     tool.Tier
	Preview  tool.ToolDisplay
	Reply    chan<- ApprovalDecision
}

func (ApprovalRequestEvent) isEvent() {}

// MaxIterationsEvent asks whether to keep going after the iteration limit.
type MaxIterationsEvent struct {
	Limit int
	Reply chan<- bool
}

func (MaxIterationsEvent) isEvent() {}

// RetryRequestEvent asks whether to retry a failed model request.
type RetryRequestEvent struct {
	Err   error
	Reply chan<- bool
}

func (RetryRequestEvent) isEvent() {}

// Emit sends ev on events. A nil channel drops the event.
func Emit(events chan<- Event, ev Event) {
	if events != nil {
		events <- ev
	}
}

// RequestApproval emits req and waits for the decision. Without a receiver
// the call is rejected.
func RequestApproval(ctx context.Context, events chan<- Event, req ApprovalRequestEvent) (ApprovalDecision, error) {
	return ask(ctx, events, func(reply chan<- ApprovalDecision) Event {
		req.Reply = reply
		return req
	})
}

// ConfirmContinue asks whether to run past limit iterations.
func ConfirmContinue(ctx context.Context, events chan<- Event, limit int) (bool, error) {
	return ask(ctx, events, func(reply chan<- bool) Event {
		return MaxIterationsEvent{Limit: limit, Reply: reply}
	})
}

// ConfirmRetry asks whether a failed request should be retried.
func ConfirmRetry(ctx context.Context, events chan<- Event, err error) (bool, error) {
	return ask(ctx, events, func(reply chan<- bool) Event {
		return RetryRequestEvent{Err: err, Reply: reply}
	})
}

// ask emits a decision event and blocks until it is answered or ctx ends.
func ask[T any](ctx context.Context, events chan<- Event, build func(chan<- T) Event) (T, error) {
	var zero T
	if events == nil {
		return zero, nil
	}

	reply := make(chan T, 1)
	select {
	case events <- build(reply):
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
