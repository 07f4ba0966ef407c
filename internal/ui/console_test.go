package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/mini/internal/policy"
	"github.com/Cyclone1070/mini/internal/provider"
	"github.com/Cyclone1070/mini/internal/tool"
	"github.com/Cyclone1070/mini/internal/tool/shell"
	"github.com/Cyclone1070/mini/internal/workflow"
)

func newTestConsole(input string) (*Console, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return New(strings.NewReader(input), out), out
}

func TestConsole_PlainMode(t *testing.T) {
	c, _ := newTestConsole("")
	assert.False(t, c.Interactive())
}

func TestReadLine(t *testing.T) {
	c, out := newTestConsole("first\r\nsecond")
	ctx := context.Background()

	line, err := c.ReadLine(ctx, "> ")
	require.NoError(t, err)
	assert.Equal(t, "first", line)

	line, err = c.ReadLine(ctx, "> ")
	require.NoError(t, err)
	assert.Equal(t, "second", line)

	_, err = c.ReadLine(ctx, "> ")
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "> > > ", out.String())
}

func TestReadSecret(t *testing.T) {
	c, _ := newTestConsole("  sk-123  \n")

	key, err := c.ReadSecret("API key: ")

	require.NoError(t, err)
	assert.Equal(t, "sk-123", key)
}

func TestConfirm(t *testing.T) {
	c, out := newTestConsole("y\nno\n")
	ctx := context.Background()

	assert.True(t, c.Confirm(ctx, "Continue?"))
	assert.False(t, c.Confirm(ctx, "Continue?"))
	assert.False(t, c.Confirm(ctx, "Continue?"))
	assert.Contains(t, out.String(), "Continue? [y/N]")
}

func TestApprove(t *testing.T) {
	tests := []struct {
		name  string
		input string
		tier  tool.Tier
		want  workflow.ApprovalDecision
	}{
		{"default yes", "\n", tool.TierApprovalRequired, workflow.ApprovalDecision{Approved: true}},
		{"always", "a\n", tool.TierApprovalRequired, workflow.ApprovalDecision{Approved: true, AutoApproveSession: true}},
		{"always refused for dangerous", "a\n", tool.TierDangerous, workflow.ApprovalDecision{}},
		{"no", "n\n", tool.TierApprovalRequired, workflow.ApprovalDecision{}},
		{"end of input", "", tool.TierApprovalRequired, workflow.ApprovalDecision{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out := newTestConsole(tt.input)

			got := c.Approve(context.Background(), workflow.ApprovalRequestEvent{
				ToolName: tool.NameWriteFile,
				Args:     tool.WriteFileArgs{Path: "a.txt"},
				Tier:     tt.tier,
				Preview:  tool.DiffDisplay{Path: "a.txt", Diff: "+x\n", AddedLines: 1},
			})

			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Write a.txt")
			assert.Contains(t, out.String(), "+x")
			if tt.tier == tool.TierDangerous {
				assert.Contains(t, out.String(), "[Y/n]")
				assert.Contains(t, out.String(), "cannot be undone")
			} else {
				assert.Contains(t, out.String(), "[Y/a/n]")
			}
		})
	}
}

func TestHandle_DecisionEvents(t *testing.T) {
	c, _ := newTestConsole("y\nn\ny\n")
	ctx := context.Background()

	approval := make(chan workflow.ApprovalDecision, 1)
	c.Handle(ctx, workflow.ApprovalRequestEvent{ToolName: tool.NameEditFile, Tier: tool.TierApprovalRequired, Reply: approval})
	assert.True(t, (<-approval).Approved)

	cont := make(chan bool, 1)
	c.Handle(ctx, workflow.MaxIterationsEvent{Limit: 25, Reply: cont})
	assert.False(t, <-cont)

	retry := make(chan bool, 1)
	c.Handle(ctx, workflow.RetryRequestEvent{Err: errors.New("rate limited"), Reply: retry})
	assert.True(t, <-retry)
}

func TestHandle_Rendering(t *testing.T) {
	tests := []struct {
		name string
		ev   workflow.Event
		want []string
	}{
		{
			"final message",
			workflow.FinalMessageEvent{Text: "# Done\n", Reasoning: "thought about it"},
			[]string{"thought about it", "# Done"},
		},
		{
			"tool start",
			workflow.ToolStartEvent{ToolName: tool.NameReadFile, RequestDisplay: "main.go"},
			[]string{"● read_file main.go"},
		},
		{
			"policy deny",
			workflow.PolicyEvent{Command: "rm -rf /", Verdict: policy.VerdictDeny, Reason: "matches deny pattern"},
			[]string{"denied by policy: matches deny pattern"},
		},
		{
			"command output",
			workflow.ToolEndEvent{
				ToolName: tool.NameExecuteCommand,
				Result: tool.Result{
					Success:  false,
					Content:  shell.CommandContent{Stdout: "out line\n", Stderr: "bad thing\n"},
					ExitCode: tool.IntPtr(2),
					Error:    "command exited with code 2",
				},
			},
			[]string{"  out line", "  bad thing", "✗ command exited with code 2"},
		},
		{
			"rejected",
			workflow.ToolEndEvent{ToolName: tool.NameWriteFile, Result: tool.Rejected("User rejected tool execution.")},
			[]string{"✗ User rejected tool execution."},
		},
		{
			"diff summary",
			workflow.ToolEndEvent{
				ToolName: tool.NameEditFile,
				Result:   tool.OK(nil),
				Display:  tool.DiffDisplay{Path: "a.go", AddedLines: 3, RemovedLines: 1},
			},
			[]string{"✓ a.go +3 -1"},
		},
		{
			"usage",
			workflow.UsageEvent{Usage: provider.Usage{PromptTokens: 10, CompletionTokens: 4}, Total: provider.Usage{TotalTokens: 99}},
			[]string{"[tokens] in:10 out:4 | session:99"},
		},
		{
			"interrupted",
			workflow.InterruptedEvent{},
			[]string{"Interrupted."},
		},
		{
			"fatal auth",
			workflow.ErrorEvent{Err: &provider.ProviderError{Code: provider.ErrorCodeAuth}, Fatal: true},
			[]string{"/login"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out := newTestConsole("")

			c.Handle(context.Background(), tt.ev)

			for _, want := range tt.want {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestTail(t *testing.T) {
	assert.Equal(t, "a\nb", tail("a\nb", 2))
	assert.Equal(t, "... (1 lines hidden)\nb\nc", tail("a\nb\nc", 2))
}
