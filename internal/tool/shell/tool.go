package shell

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Cyclone1070/mini/internal/config"
	"github.com/Cyclone1070/mini/internal/tool"
)

type pathResolver interface {
	Abs(path string) (string, error)
	Rel(path string) (string, error)
}

// CommandContent is the content of an execute_command result.
type CommandContent struct {
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	Truncated bool   `json:"truncated,omitempty"`
}

// ExecuteCommandTool runs model-issued shell commands in the workspace.
// Policy checks happen in the dispatcher before Execute is called.
type ExecuteCommandTool struct {
	executor *Executor
	paths    pathResolver
	cfg      config.ToolsConfig
}

// NewExecuteCommandTool creates an ExecuteCommandTool.
func NewExecuteCommandTool(executor *Executor, paths pathResolver, cfg config.ToolsConfig) *ExecuteCommandTool {
	return &ExecuteCommandTool{executor: executor, paths: paths, cfg: cfg}
}

func (t *ExecuteCommandTool) Name() string {
	return tool.NameExecuteCommand
}

func (t *ExecuteCommandTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        tool.NameExecuteCommand,
		Description: fmt.Sprintf("Execute a shell command in the workspace. Commands time out after %d seconds unless a timeout is given (max %d).", t.cfg.DefaultTimeoutSeconds, t.cfg.MaxTimeoutSeconds),
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"command": {Type: tool.TypeString, Description: "Shell command to run"},
				"timeout": {Type: tool.TypeInteger, Description: "Timeout in seconds"},
				"workdir": {Type: tool.TypeString, Description: "Working directory, relative to the workspace root"},
			},
			Required: []string{"command"},
		},
	}
}

// Timeout returns the effective timeout for a call.
func (t *ExecuteCommandTool) Timeout(a tool.ExecuteCommandArgs) time.Duration {
	seconds := a.Timeout
	if seconds <= 0 {
		seconds = t.cfg.DefaultTimeoutSeconds
	}
	seconds = min(seconds, t.cfg.MaxTimeoutSeconds)
	return time.Duration(seconds) * time.Second
}

func (t *ExecuteCommandTool) workdir(a tool.ExecuteCommandArgs) (abs, rel string, err error) {
	dir := a.Workdir
	if dir == "" {
		dir = "."
	}
	abs, err = t.paths.Abs(dir)
	if err != nil {
		return "", "", err
	}
	rel, _ = t.paths.Rel(abs)
	if rel == "" {
		rel = "."
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", "", fmt.Errorf("working directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("working directory %s is not a directory", dir)
	}
	return abs, rel, nil
}

// Preview shows the command with its working directory and timeout.
func (t *ExecuteCommandTool) Preview(ctx context.Context, args tool.Args) (tool.ToolDisplay, error) {
	a, ok := args.(tool.ExecuteCommandArgs)
	if !ok {
		return nil, fmt.Errorf("%w: %T", tool.ErrUnexpectedArgsType, args)
	}
	_, rel, err := t.workdir(a)
	if err != nil {
		return nil, err
	}
	return tool.CommandDisplay{
		Command:    a.Command,
		WorkingDir: rel,
		Timeout:    int(t.Timeout(a) / time.Second),
	}, nil
}

// Execute runs the command. A non-zero exit is a failed result carrying the
// output; a timeout reports timedOut with exit code 124.
func (t *ExecuteCommandTool) Execute(ctx context.Context, args tool.Args) (tool.Result, error) {
	a, ok := args.(tool.ExecuteCommandArgs)
	if !ok {
		return tool.Result{}, fmt.Errorf("%w: %T", tool.ErrUnexpectedArgsType, args)
	}

	abs, _, err := t.workdir(a)
	if err != nil {
		return tool.Errorf("%v", err), nil
	}

	timeout := t.Timeout(a)
	out, err := t.executor.Run(ctx, a.Command, abs, timeout)
	if err != nil {
		return tool.Errorf("%v", err), nil
	}

	res := tool.Result{
		Success:  out.ExitCode == 0 && !out.TimedOut && !out.Interrupted,
		Content:  CommandContent{Stdout: out.Stdout, Stderr: out.Stderr, Truncated: out.Truncated},
		ExitCode: tool.IntPtr(out.ExitCode),
		Signal:   out.Signal,
		TimedOut: out.TimedOut,
	}
	switch {
	case out.Interrupted:
		res.Error = "command interrupted"
	case out.TimedOut:
		res.Error = fmt.Sprintf("command timed out after %s", timeout)
	case out.ExitCode != 0:
		res.Error = fmt.Sprintf("command exited with code %d", out.ExitCode)
	}
	return res, nil
}
