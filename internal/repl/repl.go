// Package repl is the interactive read-eval loop: free text goes to the
// session, /commands control it and !commands run in the workspace shell.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Cyclone1070/mini/internal/config"
	"github.com/Cyclone1070/mini/internal/tool/shell"
	"github.com/Cyclone1070/mini/internal/ui"
	"github.com/Cyclone1070/mini/internal/workflow"
	"github.com/Cyclone1070/mini/internal/workflow/session"
)

const prompt = "> "

// Options configures a REPL. Agent, Console, Shell, Store, Config and
// NewProvider are required.
type Options struct {
	Agent       agent
	Console     console
	Shell       commandRunner
	Store       configStore
	Config      *config.Config
	NewProvider ProviderFactory

	// Provider is the name of the active variant.
	Provider     string
	Workspace    string
	ShellTimeout time.Duration
	Getenv       func(string) string
	Logger       *slog.Logger

	// Interrupts subscribes to ctrl+c while a turn or command runs.
	// Defaults to os.Interrupt via signal.Notify.
	Interrupts func() (<-chan os.Signal, func())
}

// REPL reads input until /exit, end of input or ctrl+c at the prompt.
type REPL struct {
	agent        agent
	console      console
	shell        commandRunner
	store        configStore
	cfg          *config.Config
	newProvider  ProviderFactory
	providerName string
	workspace    string
	shellTimeout time.Duration
	getenv       func(string) string
	logger       *slog.Logger
	interrupts   func() (<-chan os.Signal, func())

	// pending holds !command results not yet sent to the model.
	pending []string
}

// New creates a REPL.
func New(opts Options) *REPL {
	if opts.Agent == nil {
		panic("repl: agent is required")
	}
	if opts.Console == nil {
		panic("repl: console is required")
	}
	if opts.Shell == nil {
		panic("repl: shell is required")
	}
	if opts.Store == nil {
		panic("repl: config store is required")
	}
	if opts.Config == nil {
		panic("repl: config is required")
	}
	if opts.NewProvider == nil {
		panic("repl: provider factory is required")
	}

	r := &REPL{
		agent:        opts.Agent,
		console:      opts.Console,
		shell:        opts.Shell,
		store:        opts.Store,
		cfg:          opts.Config,
		newProvider:  opts.NewProvider,
		providerName: opts.Provider,
		workspace:    opts.Workspace,
		shellTimeout: opts.ShellTimeout,
		getenv:       opts.Getenv,
		logger:       opts.Logger,
		interrupts:   opts.Interrupts,
	}
	if r.providerName == "" {
		r.providerName = opts.Config.LLM.CurrentProvider
	}
	if r.shellTimeout <= 0 {
		r.shellTimeout = time.Duration(opts.Config.Tools.DefaultTimeoutSeconds) * time.Second
	}
	if r.getenv == nil {
		r.getenv = os.Getenv
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.interrupts == nil {
		r.interrupts = notifyInterrupt
	}
	return r
}

// Run reads and dispatches lines until the user leaves. It returns nil on
// a normal exit.
func (r *REPL) Run(ctx context.Context) error {
	for {
		if total := r.agent.Stats().Usage.TotalTokens; total > 0 {
			r.console.Println(r.console.Styles().Dim.Render(fmt.Sprintf("[session] %d tokens", total)))
		}

		line, err := r.console.ReadLine(ctx, prompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ui.ErrInterrupted) || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "!"):
			r.runCommand(ctx, strings.TrimSpace(strings.TrimPrefix(line, "!")))
		case strings.HasPrefix(line, "/"):
			if !r.handleCommand(ctx, line) {
				return nil
			}
		default:
			r.submit(ctx, r.takePending(line))
		}
	}
}

// submit runs one turn, rendering its events until the session returns.
// DoneEvent is always delivered before Submit returns, so every event has
// been handled once done fires.
func (r *REPL) submit(ctx context.Context, input string) {
	events := make(chan workflow.Event)
	done := make(chan error, 1)
	go func() {
		done <- r.agent.Submit(ctx, input, events)
	}()

	sigs, stop := r.interrupts()
	defer stop()

	for {
		select {
		case ev := <-events:
			r.console.Handle(ctx, ev)
		case <-sigs:
			if r.agent.Interrupt() {
				r.logger.Debug("turn interrupted by user")
			}
		case err := <-done:
			r.reportSubmitError(err)
			return
		}
	}
}

func (r *REPL) reportSubmitError(err error) {
	styles := r.console.Styles()
	switch {
	case err == nil:
	case errors.Is(err, session.ErrFatal):
		// The ErrorEvent has already been rendered.
		r.logger.Warn("session halted", "err", err)
	case errors.Is(err, session.ErrBusy):
		r.console.Println(styles.Error.Render("Error: a turn is already running"))
	default:
		r.logger.Error("turn failed", "err", err)
		r.console.Println(styles.Error.Render("Error: " + err.Error()))
	}
}

// runCommand executes a !command in the workspace without policy checks and
// buffers the result for the next message.
func (r *REPL) runCommand(ctx context.Context, command string) {
	if command == "" {
		return
	}
	styles := r.console.Styles()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigs, stop := r.interrupts()
	defer stop()
	go func() {
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
		}
	}()

	out, err := r.shell.Run(ctx, command, r.workspace, r.shellTimeout)
	if err != nil {
		r.console.Println(styles.Error.Render("Error: " + err.Error()))
		return
	}
	r.logger.Debug("direct command finished", "command", command, "exit_code", out.ExitCode)

	if s := strings.TrimRight(out.Stdout, "\n"); strings.TrimSpace(s) != "" {
		r.console.Println(s)
	}
	if s := strings.TrimRight(out.Stderr, "\n"); strings.TrimSpace(s) != "" {
		if out.ExitCode != 0 {
			r.console.Println(styles.Error.Render(s))
		} else {
			r.console.Println(s)
		}
	}
	switch {
	case out.Interrupted:
		r.console.Println(styles.Warning.Render("Interrupted."))
	case out.TimedOut:
		r.console.Println(styles.Warning.Render(fmt.Sprintf("Timed out after %s.", r.shellTimeout)))
	}

	r.pending = append(r.pending, shell.FormatCommandResult(command, out))
}

// takePending prepends buffered command output to text and clears the
// buffer.
func (r *REPL) takePending(text string) string {
	if len(r.pending) == 0 {
		return text
	}
	content := strings.Join(r.pending, "\n\n") + "\n\n" + text
	r.pending = nil
	return content
}

func notifyInterrupt() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch, func() { signal.Stop(ch) }
}
