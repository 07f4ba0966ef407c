// Package toolmanager dispatches model-issued tool calls through policy
// checks and the approval workflow, and turns every outcome into a tool
// message.
package toolmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/Cyclone1070/mini/internal/policy"
	"github.com/Cyclone1070/mini/internal/provider"
	"github.com/Cyclone1070/mini/internal/tool"
	"github.com/Cyclone1070/mini/internal/workflow"
)

// DefaultTimeout bounds a single tool execution when Options.Timeout is unset.
const DefaultTimeout = 10 * time.Minute

// abandonDelay is how long a canceled tool may take to return.
const abandonDelay = 5 * time.Second

const (
	rejectedMessage    = "User rejected tool execution."
	interruptedMessage = "Tool execution interrupted by user."
)

type ToolManager struct {
	registry    map[string]toolImpl
	policy      policyEngine
	logger      *slog.Logger
	timeout     time.Duration
	autoApprove atomic.Bool
}

// Options configures a ToolManager.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration // DefaultTimeout when zero
}

func NewToolManager(engine policyEngine, opts Options, tools ...toolImpl) *ToolManager {
	if engine == nil {
		panic("policy engine is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tm := &ToolManager{
		registry: make(map[string]toolImpl),
		policy:   engine,
		logger:   logger,
		timeout:  timeout,
	}
	for _, t := range tools {
		tm.Register(t)
	}
	return tm
}

func (m *ToolManager) Register(t toolImpl) {
	m.registry[t.Name()] = t
}

func (m *ToolManager) Declarations() []tool.Declaration {
	decls := make([]tool.Declaration, 0, len(m.registry))
	for _, t := range m.registry {
		decls = append(decls, t.Declaration())
	}
	sort.Slice(decls, func(i, j int) bool {
		return decls[i].Name < decls[j].Name
	})
	return decls
}

// Timeout returns the per-call execution bound.
func (m *ToolManager) Timeout() time.Duration { return m.timeout }

// AutoApprove reports whether session auto-approve is on.
func (m *ToolManager) AutoApprove() bool {
	return m.autoApprove.Load()
}

// EnableAutoApprove turns on session auto-approve. There is no way back.
func (m *ToolManager) EnableAutoApprove() {
	m.autoApprove.Store(true)
}

// Execute dispatches one tool call and returns the tool message for it
// together with the structured result. It never returns an error: malformed
// arguments, unknown tools, policy denials, rejections and tool failures all
// become failed results the model can read. A canceled ctx before approval
// or execution yields a rejected result.
func (m *ToolManager) Execute(ctx context.Context, tc provider.ToolCall, events chan<- workflow.Event) (provider.Message, tool.Result) {
	logger := m.logger.With("tool", tc.Name, "call_id", tc.ID)

	res, args, display := m.dispatch(ctx, tc, events, logger)

	if !res.Success {
		logger.Debug("tool call failed", "err", res.Error, "rejected", res.UserRejected)
	}
	workflow.Emit(events, workflow.ToolEndEvent{
		ToolName: tc.Name,
		Args:     args,
		Result:   res,
		Display:  display,
	})

	return provider.ToolMessage(tc.ID, res.LLMContent()), res
}

func (m *ToolManager) dispatch(ctx context.Context, tc provider.ToolCall, events chan<- workflow.Event, logger *slog.Logger) (tool.Result, tool.Args, tool.ToolDisplay) {
	t, ok := m.registry[tc.Name]
	if !ok {
		workflow.Emit(events, workflow.ToolStartEvent{ToolName: tc.Name})
		return tool.Errorf("Unknown tool: %s. Available tools: %s", tc.Name, m.toolNames()), nil, nil
	}

	args, err := tool.ParseArgs(tc.Name, tc.Input)
	if err != nil {
		workflow.Emit(events, workflow.ToolStartEvent{ToolName: tc.Name})
		schema, _ := json.Marshal(t.Declaration().Parameters)
		return tool.Errorf("%v. Expected schema: %s", err, schema), nil, nil
	}

	workflow.Emit(events, workflow.ToolStartEvent{ToolName: tc.Name, RequestDisplay: requestDisplay(args)})

	needsApproval := tool.TierOf(tc.Name) != tool.TierSafe

	if cmd, ok := args.(tool.ExecuteCommandArgs); ok {
		decision := m.policy.Evaluate(cmd.Command)
		logger.Debug("command policy", "verdict", decision.Verdict, "reason", decision.Reason)
		workflow.Emit(events, workflow.PolicyEvent{Command: cmd.Command, Verdict: decision.Verdict, Reason: decision.Reason})
		switch decision.Verdict {
		case policy.VerdictDeny:
			return tool.Errorf("Command denied by policy: %s", decision.Reason), args, nil
		case policy.VerdictAuto:
			needsApproval = false
		}
	}

	if path, ok := targetPath(args); ok {
		if check := m.policy.ValidateFileOperation(path); !check.Allowed {
			return tool.Errorf("Operation blocked by policy: %s", check.Reason), args, nil
		}
	}

	var display tool.ToolDisplay
	if p, ok := t.(previewer); ok {
		display, err = p.Preview(ctx, args)
		if err != nil {
			// A call that cannot be previewed would fail anyway; skip the prompt.
			return tool.Errorf("%v", err), args, nil
		}
	}

	if needsApproval {
		if res, approved := m.approve(ctx, tc.Name, args, display, events, logger); !approved {
			return res, args, display
		}
	}

	if ctx.Err() != nil {
		return tool.Rejected(interruptedMessage), args, display
	}

	res := m.run(ctx, t, args)
	if display == nil && res.Success {
		display = tool.StringDisplay("done")
	}
	return res, args, display
}

// approve runs the approval gate. Dangerous tools always prompt; session
// auto-approve only covers approval-required tools.
func (m *ToolManager) approve(ctx context.Context, name string, args tool.Args, display tool.ToolDisplay, events chan<- workflow.Event, logger *slog.Logger) (tool.Result, bool) {
	tier := tool.TierOf(name)
	if tier == tool.TierApprovalRequired && m.AutoApprove() {
		logger.Debug("auto-approved for session")
		return tool.Result{}, true
	}

	if ctx.Err() != nil {
		return tool.Rejected(interruptedMessage), false
	}

	decision, err := workflow.RequestApproval(ctx, events, workflow.ApprovalRequestEvent{
		ToolName: name,
		Args:     args,
		Tier:     tier,
		Preview:  display,
	})
	if err != nil {
		logger.Debug("approval interrupted", "err", err)
		return tool.Rejected(interruptedMessage), false
	}
	if !decision.Approved {
		return tool.Rejected(rejectedMessage), false
	}
	if decision.AutoApproveSession && tier == tool.TierApprovalRequired {
		m.EnableAutoApprove()
	}
	return tool.Result{}, true
}

// run executes the tool with a bounded timeout and converts errors and
// panics into failed results.
func (m *ToolManager) run(ctx context.Context, t toolImpl, args tool.Args) tool.Result {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	type outcome struct {
		res tool.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("tool %s panicked: %v", t.Name(), r)}
			}
		}()
		res, err := t.Execute(ctx, args)
		done <- outcome{res: res, err: err}
	}()

	var o outcome
	select {
	case o = <-done:
	case <-ctx.Done():
		// Give the tool a moment to report what it did before cancellation.
		select {
		case o = <-done:
		case <-time.After(abandonDelay):
			// The tool ignored cancellation; its goroutine is abandoned.
			return toolError(ctx.Err())
		}
	}
	if o.err != nil {
		return toolError(o.err)
	}
	return o.res
}

func toolError(err error) tool.Result {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return tool.Result{Success: false, Error: "tool execution timed out", TimedOut: true}
	case errors.Is(err, context.Canceled):
		return tool.Errorf("%s", interruptedMessage)
	default:
		return tool.Errorf("%v", err)
	}
}

func (m *ToolManager) toolNames() string {
	decls := m.Declarations()
	names := make([]string, 0, len(decls))
	for _, d := range decls {
		names = append(names, d.Name)
	}
	b, _ := json.Marshal(names)
	return string(b)
}

// targetPath returns the path a file tool call touches, if any.
func targetPath(args tool.Args) (string, bool) {
	switch a := args.(type) {
	case tool.ReadFileArgs:
		return a.Path, true
	case tool.WriteFileArgs:
		return a.Path, true
	case tool.EditFileArgs:
		return a.Path, true
	case tool.DeleteFileArgs:
		return a.Path, true
	case tool.ListDirectoryArgs:
		return a.Path, a.Path != ""
	case tool.SearchFilesArgs:
		return a.Path, a.Path != ""
	case tool.ExecuteCommandArgs:
		return a.Workdir, a.Workdir != ""
	default:
		return "", false
	}
}

func requestDisplay(args tool.Args) string {
	if s, ok := args.(fmt.Stringer); ok {
		return s.String()
	}
	return ""
}
