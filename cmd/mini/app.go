package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Cyclone1070/mini/internal/config"
	"github.com/Cyclone1070/mini/internal/policy"
	"github.com/Cyclone1070/mini/internal/provider"
	"github.com/Cyclone1070/mini/internal/provider/factory"
	"github.com/Cyclone1070/mini/internal/repl"
	"github.com/Cyclone1070/mini/internal/tool/directory"
	"github.com/Cyclone1070/mini/internal/tool/file"
	"github.com/Cyclone1070/mini/internal/tool/gitutil"
	"github.com/Cyclone1070/mini/internal/tool/pathutil"
	"github.com/Cyclone1070/mini/internal/tool/search"
	"github.com/Cyclone1070/mini/internal/tool/shell"
	"github.com/Cyclone1070/mini/internal/ui"
	"github.com/Cyclone1070/mini/internal/workflow/session"
	"github.com/Cyclone1070/mini/internal/workflow/toolmanager"
)

const toolTimeoutSlack = 5 * time.Second

// run loads configuration, wires the session and blocks in the REPL.
func run(ctx context.Context, opts *options, in io.Reader, out io.Writer) error {
	loader := config.NewLoader()
	if opts.ConfigPath != "" {
		loader = loader.WithPath(opts.ConfigPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseDir, err := loader.Dir()
	if err != nil {
		baseDir = "."
	}
	logger, closeLog, err := openLogger(opts.Debug, baseDir)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	workspace := opts.Workspace
	if workspace == "" {
		if workspace, err = os.Getwd(); err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}
	workspace, err = pathutil.CanonicaliseRoot(workspace)
	if err != nil {
		return err
	}

	systemPrompt, err := loader.LoadSystemPrompt()
	if err != nil {
		return fmt.Errorf("load system prompt: %w", err)
	}

	console := ui.New(in, out)
	newProvider := providerFactory(logger)

	llm, err := resolveLLM(cfg, opts, loader, console, logger)
	if err != nil {
		return err
	}
	p, err := newProvider(ctx, llm)
	if err != nil {
		return err
	}

	executor := shell.NewExecutor(cfg.Tools.MaxCommandOutputSize, time.Duration(cfg.Tools.GracefulShutdownMs)*time.Millisecond)
	tools, err := buildTools(cfg, workspace, executor, logger)
	if err != nil {
		return err
	}

	sessOpts := session.Options{
		Provider:      p,
		Tools:         tools,
		SystemPrompt:  systemPrompt,
		Params:        session.Params{Model: llm.Model, Temperature: llm.Temperature, MaxTokens: llm.MaxTokens},
		MaxIterations: cfg.Session.MaxIterations,
		Logger:        logger,
	}
	if opts.Debug {
		sessOpts.Recorder = &session.FileRecorder{Dir: debugDir(cfg, baseDir), Logger: logger}
	}
	sess := session.New(sessOpts)

	logger.Info("session started",
		"session_id", sess.ID(),
		"provider", llm.Provider,
		"model", llm.Model,
		"workspace", workspace,
	)
	console.Banner(llm.Model, workspace)

	r := repl.New(repl.Options{
		Agent:       sess,
		Console:     console,
		Shell:       executor,
		Store:       loader,
		Config:      cfg,
		NewProvider: newProvider,
		Provider:    llm.Provider,
		Workspace:   workspace,
		Logger:      logger,
	})
	return r.Run(ctx)
}

func providerFactory(logger *slog.Logger) repl.ProviderFactory {
	return func(ctx context.Context, llm config.ResolvedLLM) (provider.Provider, error) {
		p, err := factory.New(ctx, llm, factory.Options{Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("create %s provider: %w", llm.Provider, err)
		}
		return p, nil
	}
}

type secretReader interface {
	ReadSecret(prompt string) (string, error)
	Println(a ...any)
}

type keyStore interface {
	SaveAPIKey(cfg *config.Config, variant, key string) error
}

// resolveLLM applies the CLI overrides. When only the key is missing it is
// asked for once and stored, the same as /login.
func resolveLLM(cfg *config.Config, opts *options, store keyStore, console secretReader, logger *slog.Logger) (config.ResolvedLLM, error) {
	llm, err := config.ResolveLLM(cfg, opts.Provider, opts.Model, os.Getenv)
	if err == nil || !errors.Is(err, config.ErrMissingAPIKey) {
		return llm, err
	}

	console.Println(fmt.Sprintf("No API key found for %s (set %s to skip this prompt).", llm.Provider, llm.APIKeyEnv))
	key, rerr := console.ReadSecret(fmt.Sprintf("API key for %s: ", llm.Provider))
	if rerr != nil || key == "" {
		return llm, err
	}
	if serr := store.SaveAPIKey(cfg, llm.Provider, key); serr != nil {
		logger.Warn("failed to persist API key", "provider", llm.Provider, "err", serr)
	}
	return config.ResolveLLM(cfg, opts.Provider, opts.Model, os.Getenv)
}

// buildTools registers the workspace tools behind the policy engine.
func buildTools(cfg *config.Config, workspace string, executor *shell.Executor, logger *slog.Logger) (*toolmanager.ToolManager, error) {
	engine, err := policy.New(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("build policy: %w", err)
	}

	fsys := file.OSFileSystem{}
	paths := pathutil.NewResolver(workspace)
	ignore, err := gitutil.NewMatcher(workspace, fsys)
	if err != nil {
		logger.Warn("gitignore unavailable, only .git is skipped", "err", err)
		ignore = nil
	}

	return toolmanager.NewToolManager(engine, toolmanager.Options{Logger: logger, Timeout: toolTimeout(cfg.Tools)},
		file.NewReadFileTool(fsys, paths, cfg.Tools),
		file.NewWriteFileTool(fsys, paths, cfg.Tools),
		file.NewEditFileTool(fsys, paths, cfg.Tools),
		file.NewDeleteFileTool(fsys, paths),
		directory.NewListDirectoryTool(paths, ignore, cfg.Tools),
		search.NewSearchFilesTool(paths, ignore, cfg.Tools),
		shell.NewExecuteCommandTool(executor, paths, cfg.Tools),
	), nil
}

// toolTimeout bounds one tool call. It outlasts the longest shell command
// plus its kill grace period, so the command's own timeout fires first.
func toolTimeout(cfg config.ToolsConfig) time.Duration {
	return time.Duration(cfg.MaxTimeoutSeconds)*time.Second +
		time.Duration(cfg.GracefulShutdownMs)*time.Millisecond +
		toolTimeoutSlack
}

func debugDir(cfg *config.Config, baseDir string) string {
	if cfg.Session.DebugDir != "" {
		return cfg.Session.DebugDir
	}
	return filepath.Join(baseDir, "debug")
}
