package toolmanager

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/mini/internal/policy"
	"github.com/Cyclone1070/mini/internal/provider"
	"github.com/Cyclone1070/mini/internal/tool"
	"github.com/Cyclone1070/mini/internal/workflow"
)

type mockTool struct {
	name        string
	executeFunc func(ctx context.Context, args tool.Args) (tool.Result, error)
	calls       atomic.Int32
}

func (m *mockTool) Name() string { return m.name }

func (m *mockTool) Declaration() tool.Declaration {
	return tool.Declaration{Name: m.name, Parameters: &tool.Schema{Type: tool.TypeObject}}
}

func (m *mockTool) Execute(ctx context.Context, args tool.Args) (tool.Result, error) {
	m.calls.Add(1)
	if m.executeFunc != nil {
		return m.executeFunc(ctx, args)
	}
	return tool.OK("ok"), nil
}

type mockPreviewTool struct {
	mockTool
	preview tool.ToolDisplay
}

func (m *mockPreviewTool) Preview(ctx context.Context, args tool.Args) (tool.ToolDisplay, error) {
	return m.preview, nil
}

// recorder drains events and answers approval requests with the queued
// decisions, rejecting once they run out.
type recorder struct {
	events    chan workflow.Event
	mu        sync.Mutex
	got       []workflow.Event
	decisions []workflow.ApprovalDecision
	done      chan struct{}
}

func newRecorder(decisions ...workflow.ApprovalDecision) *recorder {
	r := &recorder{events: make(chan workflow.Event, 16), decisions: decisions, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		for ev := range r.events {
			r.mu.Lock()
			r.got = append(r.got, ev)
			if req, ok := ev.(workflow.ApprovalRequestEvent); ok {
				var d workflow.ApprovalDecision
				if len(r.decisions) > 0 {
					d, r.decisions = r.decisions[0], r.decisions[1:]
				}
				req.Reply <- d
			}
			r.mu.Unlock()
		}
	}()
	return r
}

func (r *recorder) stop() []workflow.Event {
	close(r.events)
	<-r.done
	return r.got
}

func approvals(events []workflow.Event) []workflow.ApprovalRequestEvent {
	var out []workflow.ApprovalRequestEvent
	for _, ev := range events {
		if req, ok := ev.(workflow.ApprovalRequestEvent); ok {
			out = append(out, req)
		}
	}
	return out
}

func call(id, name, input string) provider.ToolCall {
	return provider.ToolCall{ID: id, Name: name, Input: json.RawMessage(input)}
}

func decode(t *testing.T, msg provider.Message) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(msg.Content), &m))
	return m
}

func newManager(tools ...toolImpl) *ToolManager {
	return NewToolManager(policy.Default(), Options{}, tools...)
}

func TestExecute_SafeToolRunsWithoutApproval(t *testing.T) {
	read := &mockTool{name: tool.NameReadFile, executeFunc: func(ctx context.Context, args tool.Args) (tool.Result, error) {
		assert.Equal(t, tool.ReadFileArgs{Path: "main.go"}, args)
		return tool.OK("package main"), nil
	}}
	m := newManager(read)
	rec := newRecorder()

	msg, res := m.Execute(context.Background(), call("c1", tool.NameReadFile, `{"path":"main.go"}`), rec.events)
	events := rec.stop()

	assert.True(t, res.Success)
	assert.Equal(t, provider.RoleTool, msg.Role)
	assert.Equal(t, "c1", msg.ToolCallID)
	assert.Equal(t, "package main", decode(t, msg)["content"])
	require.Len(t, events, 2)
	assert.Equal(t, workflow.ToolStartEvent{ToolName: tool.NameReadFile, RequestDisplay: "main.go"}, events[0])
	end := events[1].(workflow.ToolEndEvent)
	assert.Equal(t, tool.ReadFileArgs{Path: "main.go"}, end.Args)
	assert.True(t, end.Result.Success)
}

func TestExecute_UnknownTool(t *testing.T) {
	m := newManager(&mockTool{name: tool.NameReadFile})

	msg, res := m.Execute(context.Background(), call("c1", "launch_rocket", `{}`), nil)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Unknown tool")
	assert.Contains(t, res.Error, tool.NameReadFile)
	assert.Equal(t, "c1", msg.ToolCallID)
	assert.Equal(t, false, decode(t, msg)["success"])
}

func TestExecute_MalformedArguments(t *testing.T) {
	read := &mockTool{name: tool.NameReadFile}
	m := newManager(read)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"truncated json", `{"path": "a.go`, "malformed JSON"},
		{"missing path", `{}`, "path is required"},
		{"not an object", `[1,2]`, "must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := m.Execute(context.Background(), call("c1", tool.NameReadFile, tt.input), nil)
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, tt.want)
			assert.Contains(t, res.Error, "Expected schema")
		})
	}
	assert.Zero(t, read.calls.Load())
}

func TestExecute_ApprovalRequired(t *testing.T) {
	preview := tool.DiffDisplay{Path: "a.txt", Diff: "+x", AddedLines: 1}
	write := &mockPreviewTool{mockTool: mockTool{name: tool.NameWriteFile}, preview: preview}

	t.Run("approved", func(t *testing.T) {
		m := newManager(write)
		rec := newRecorder(workflow.ApprovalDecision{Approved: true})

		_, res := m.Execute(context.Background(), call("c1", tool.NameWriteFile, `{"path":"a.txt","content":"x"}`), rec.events)
		events := rec.stop()

		assert.True(t, res.Success)
		reqs := approvals(events)
		require.Len(t, reqs, 1)
		assert.Equal(t, tool.TierApprovalRequired, reqs[0].Tier)
		assert.Equal(t, preview, reqs[0].Preview)
		assert.False(t, m.AutoApprove())
	})

	t.Run("rejected", func(t *testing.T) {
		before := write.calls.Load()
		m := newManager(write)
		rec := newRecorder(workflow.ApprovalDecision{Approved: false})

		msg, res := m.Execute(context.Background(), call("c2", tool.NameWriteFile, `{"path":"a.txt","content":"x"}`), rec.events)
		rec.stop()

		assert.True(t, res.UserRejected)
		assert.False(t, res.Success)
		assert.Equal(t, true, decode(t, msg)["userRejected"])
		assert.Equal(t, before, write.calls.Load())
	})

	t.Run("no approver rejects", func(t *testing.T) {
		m := newManager(write)

		_, res := m.Execute(context.Background(), call("c3", tool.NameWriteFile, `{"path":"a.txt","content":"x"}`), nil)

		assert.True(t, res.UserRejected)
	})
}

func TestExecute_SessionAutoApprove(t *testing.T) {
	write := &mockTool{name: tool.NameWriteFile}
	del := &mockTool{name: tool.NameDeleteFile}
	m := newManager(write, del)
	rec := newRecorder(
		workflow.ApprovalDecision{Approved: true, AutoApproveSession: true},
		workflow.ApprovalDecision{Approved: true},
		workflow.ApprovalDecision{Approved: false},
	)

	_, first := m.Execute(context.Background(), call("c1", tool.NameWriteFile, `{"path":"a.txt","content":"1"}`), rec.events)
	_, second := m.Execute(context.Background(), call("c2", tool.NameWriteFile, `{"path":"b.txt","content":"2"}`), rec.events)
	_, third := m.Execute(context.Background(), call("c3", tool.NameDeleteFile, `{"path":"a.txt"}`), rec.events)
	_, fourth := m.Execute(context.Background(), call("c4", tool.NameDeleteFile, `{"path":"b.txt"}`), rec.events)
	events := rec.stop()

	assert.True(t, first.Success)
	assert.True(t, second.Success)
	assert.True(t, third.Success)
	assert.True(t, fourth.UserRejected)
	assert.True(t, m.AutoApprove())

	// the second write was not prompted; both deletes were
	reqs := approvals(events)
	require.Len(t, reqs, 3)
	assert.Equal(t, tool.NameWriteFile, reqs[0].ToolName)
	assert.Equal(t, tool.NameDeleteFile, reqs[1].ToolName)
	assert.Equal(t, tool.TierDangerous, reqs[1].Tier)
	assert.Equal(t, int32(2), write.calls.Load())
	assert.Equal(t, int32(1), del.calls.Load())
}

func TestExecute_DangerousApprovalDoesNotEnableAutoApprove(t *testing.T) {
	m := newManager(&mockTool{name: tool.NameDeleteFile})
	rec := newRecorder(workflow.ApprovalDecision{Approved: true, AutoApproveSession: true})

	_, res := m.Execute(context.Background(), call("c1", tool.NameDeleteFile, `{"path":"a.txt"}`), rec.events)
	rec.stop()

	assert.True(t, res.Success)
	assert.False(t, m.AutoApprove())
}

func TestExecute_CommandPolicy(t *testing.T) {
	tests := []struct {
		name        string
		command     string
		verdict     policy.Verdict
		wantPrompt  bool
		wantRan     bool
		wantErrPart string
	}{
		{"denied", "rm -rf /", policy.VerdictDeny, false, false, "denied by policy"},
		{"auto", "ls", policy.VerdictAuto, false, true, ""},
		{"ask", "make build", policy.VerdictAsk, true, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shell := &mockTool{name: tool.NameExecuteCommand}
			m := newManager(shell)
			rec := newRecorder(workflow.ApprovalDecision{Approved: true})
			input, _ := json.Marshal(map[string]string{"command": tt.command})

			_, res := m.Execute(context.Background(), call("c1", tool.NameExecuteCommand, string(input)), rec.events)
			events := rec.stop()

			var policyEvents []workflow.PolicyEvent
			for _, ev := range events {
				if pe, ok := ev.(workflow.PolicyEvent); ok {
					policyEvents = append(policyEvents, pe)
				}
			}
			require.Len(t, policyEvents, 1)
			assert.Equal(t, tt.verdict, policyEvents[0].Verdict)
			assert.Equal(t, tt.wantPrompt, len(approvals(events)) == 1)
			assert.Equal(t, tt.wantRan, shell.calls.Load() == 1)
			if tt.wantErrPart != "" {
				assert.Contains(t, res.Error, tt.wantErrPart)
				assert.False(t, res.UserRejected)
			}
		})
	}
}

func TestExecute_CommandDeniedEvenWithAutoApprove(t *testing.T) {
	shell := &mockTool{name: tool.NameExecuteCommand}
	m := newManager(shell)
	m.EnableAutoApprove()

	_, res := m.Execute(context.Background(), call("c1", tool.NameExecuteCommand, `{"command":"mkfs.ext4 /dev/sda1"}`), nil)

	assert.False(t, res.Success)
	assert.Zero(t, shell.calls.Load())
}

func TestExecute_ProtectedPath(t *testing.T) {
	read := &mockTool{name: tool.NameReadFile}
	m := newManager(read)

	_, res := m.Execute(context.Background(), call("c1", tool.NameReadFile, `{"path":"config/.env"}`), nil)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "blocked by policy")
	assert.Zero(t, read.calls.Load())
}

func TestExecute_CommandWorkdirProtected(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		blocked bool
	}{
		{"git metadata", `{"command":"cat config","workdir":".git"}`, true},
		{"nested credentials", `{"command":"ls","workdir":"home/.ssh"}`, true},
		{"plain directory", `{"command":"ls","workdir":"src"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shell := &mockTool{name: tool.NameExecuteCommand}
			m := newManager(shell)
			m.EnableAutoApprove()
			rec := newRecorder(workflow.ApprovalDecision{Approved: true})

			_, res := m.Execute(context.Background(), call("c1", tool.NameExecuteCommand, tt.input), rec.events)
			events := rec.stop()

			if tt.blocked {
				assert.False(t, res.Success)
				assert.Contains(t, res.Error, "blocked by policy")
				assert.Zero(t, shell.calls.Load())
				assert.Empty(t, approvals(events))
				return
			}
			assert.Equal(t, int32(1), shell.calls.Load())
		})
	}
}

func TestExecute_ToolFailuresBecomeResults(t *testing.T) {
	tests := []struct {
		name string
		fn   func(ctx context.Context, args tool.Args) (tool.Result, error)
		want string
	}{
		{"error", func(ctx context.Context, args tool.Args) (tool.Result, error) {
			return tool.Result{}, errors.New("disk on fire")
		}, "disk on fire"},
		{"panic", func(ctx context.Context, args tool.Args) (tool.Result, error) {
			panic("boom")
		}, "panicked: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager(&mockTool{name: tool.NameReadFile, executeFunc: tt.fn})

			msg, res := m.Execute(context.Background(), call("c1", tool.NameReadFile, `{"path":"a"}`), nil)

			assert.False(t, res.Success)
			assert.Contains(t, res.Error, tt.want)
			assert.Equal(t, "c1", msg.ToolCallID)
		})
	}
}

func TestExecute_Timeout(t *testing.T) {
	slow := &mockTool{name: tool.NameReadFile, executeFunc: func(ctx context.Context, args tool.Args) (tool.Result, error) {
		<-ctx.Done()
		return tool.Result{}, ctx.Err()
	}}
	m := NewToolManager(policy.Default(), Options{Timeout: 50 * time.Millisecond}, slow)

	_, res := m.Execute(context.Background(), call("c1", tool.NameReadFile, `{"path":"a"}`), nil)

	assert.False(t, res.Success)
	assert.True(t, res.TimedOut)
}

func TestNewToolManager_Timeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, newManager().Timeout())
	assert.Equal(t, 90*time.Second, NewToolManager(policy.Default(), Options{Timeout: 90 * time.Second}).Timeout())
}

func TestExecute_InterruptedBeforeApproval(t *testing.T) {
	write := &mockTool{name: tool.NameWriteFile}
	m := newManager(write)
	rec := newRecorder(workflow.ApprovalDecision{Approved: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, res := m.Execute(ctx, call("c1", tool.NameWriteFile, `{"path":"a.txt","content":"x"}`), rec.events)
	events := rec.stop()

	assert.True(t, res.UserRejected)
	assert.Empty(t, approvals(events))
	assert.Zero(t, write.calls.Load())
}

func TestDeclarations_Sorted(t *testing.T) {
	m := newManager(&mockTool{name: tool.NameWriteFile}, &mockTool{name: tool.NameReadFile})

	decls := m.Declarations()

	require.Len(t, decls, 2)
	assert.Equal(t, tool.NameReadFile, decls[0].Name)
	assert.Equal(t, tool.NameWriteFile, decls[1].Name)
}
