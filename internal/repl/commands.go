package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Cyclone1070/mini/internal/config"
	"github.com/Cyclone1070/mini/internal/ui"
	"github.com/Cyclone1070/mini/internal/workflow/session"
)

const skillPreviewLen = 200

// handleCommand runs a /command and reports whether the loop should go on.
func (r *REPL) handleCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return true
	}
	name, args := fields[0], fields[1:]

	switch name {
	case "exit", "quit":
		return false
	case "clear", "new":
		r.clear()
	case "help":
		r.printHelp()
	case "model":
		r.model(ctx, args)
	case "login":
		r.login(ctx, args)
	case "stats":
		r.printStats()
	case "skill":
		r.skill(ctx, strings.Join(args, " "))
	default:
		r.printError("Unknown command: /" + name)
		r.printHelp()
	}
	return true
}

func (r *REPL) clear() {
	if err := r.agent.Clear(); err != nil {
		r.printError(err.Error())
		return
	}
	r.pending = nil
	r.printSuccess("✓ Conversation cleared.")
}

// model lists the configured variants, switches to another one or changes
// the model of the current one.
func (r *REPL) model(ctx context.Context, args []string) {
	if len(args) == 0 {
		r.printModels()
		return
	}

	name, model := args[0], ""
	if len(args) > 1 {
		model = args[1]
	}
	if _, ok := r.cfg.LLM.Variants[name]; !ok {
		if len(args) > 1 {
			r.printError(fmt.Sprintf("unknown provider %q (available: %s)", name, strings.Join(config.VariantNames(r.cfg), ", ")))
			return
		}
		// A single unknown word is a model name for the current provider.
		if err := r.agent.SetModel(name); err != nil {
			r.printError(err.Error())
			return
		}
		r.printSuccess("✓ Model set to " + name)
		return
	}

	if err := r.switchProvider(ctx, name, model); err != nil {
		r.printError(err.Error())
		return
	}
	r.printSuccess(fmt.Sprintf("✓ Switched to %s (%s)", name, r.agent.Model()))
}

func (r *REPL) printModels() {
	styles := r.console.Styles()
	r.console.Println(styles.Prompt.Render("Providers:"))
	for _, name := range config.VariantNames(r.cfg) {
		v := r.cfg.LLM.Variants[name]
		marker, model := "  ", v.Model
		if name == r.providerName {
			marker, model = "* ", r.agent.Model()
		}
		r.console.Println(fmt.Sprintf("  %s%-12s %s", marker, name, styles.Dim.Render(fmt.Sprintf("%s (%s)", model, v.SchemaType))))
	}
	r.console.Println(styles.Dim.Render("Usage: /model <provider> [model] or /model <model>"))
}

// login reads an API key, persists it and rebuilds the provider so a
// session halted by an authentication failure can continue.
func (r *REPL) login(ctx context.Context, args []string) {
	name := r.providerName
	if len(args) > 0 {
		name = args[0]
	}
	if _, ok := r.cfg.LLM.Variants[name]; !ok {
		r.printError(fmt.Sprintf("unknown provider %q (available: %s)", name, strings.Join(config.VariantNames(r.cfg), ", ")))
		return
	}

	key, err := r.console.ReadSecret(fmt.Sprintf("API key for %s: ", name))
	if err != nil {
		r.printError(err.Error())
		return
	}
	if key == "" {
		r.console.Println(r.console.Styles().Warning.Render("No key entered."))
		return
	}

	// SaveAPIKey updates the in-memory config before writing, so the key is
	// usable for this run even if the file cannot be written.
	if err := r.store.SaveAPIKey(r.cfg, name, key); err != nil {
		r.logger.Warn("failed to persist API key", "provider", name, "err", err)
		r.printError("save API key: " + err.Error())
	}

	if err := r.switchProvider(ctx, name, ""); err != nil {
		r.printError(err.Error())
		return
	}
	r.printSuccess(fmt.Sprintf("✓ Logged in to %s (%s)", name, r.agent.Model()))
}

// switchProvider resolves name and installs a fresh adapter. Re-resolving
// the active variant without a model keeps the current model.
func (r *REPL) switchProvider(ctx context.Context, name, model string) error {
	if model == "" && name == r.providerName {
		model = r.agent.Model()
	}
	llm, err := config.ResolveLLM(r.cfg, name, model, r.getenv)
	if err != nil {
		return err
	}
	p, err := r.newProvider(ctx, llm)
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}
	params := session.Params{Model: llm.Model, Temperature: llm.Temperature, MaxTokens: llm.MaxTokens}
	if err := r.agent.SetProvider(p, params); err != nil {
		return err
	}
	r.providerName = name
	r.logger.Info("provider switched", "provider", name, "model", llm.Model)
	return nil
}

func (r *REPL) printStats() {
	st := r.agent.Stats()
	rows := [][2]string{
		{"Session", st.SessionID},
		{"Provider", st.Provider},
		{"Model", st.Model},
		{"Requests", fmt.Sprint(st.Requests)},
		{"Iterations", fmt.Sprint(st.Iterations)},
		{"Messages", fmt.Sprint(st.Messages)},
		{"Tokens", fmt.Sprintf("in:%d out:%d total:%d", st.Usage.PromptTokens, st.Usage.CompletionTokens, st.Usage.TotalTokens)},
	}
	dim := r.console.Styles().Dim
	for _, row := range rows {
		r.console.Println(dim.Render(fmt.Sprintf("%-11s", row[0])) + row[1])
	}
}

// skill lists skills, or loads one as the next user message together with
// optional extra input.
func (r *REPL) skill(ctx context.Context, name string) {
	if name == "" {
		r.printSkills()
		return
	}
	content, err := r.store.LoadSkill(name)
	if err != nil {
		r.printError("Skill not found: " + name)
		r.printSkills()
		return
	}

	styles := r.console.Styles()
	preview := content
	if len(preview) > skillPreviewLen {
		preview = preview[:skillPreviewLen] + "..."
	}
	rule := strings.Repeat("─", 40)
	r.printSuccess("✓ Loaded: " + name)
	r.console.Println(styles.Dim.Render(rule + "\n" + strings.TrimSpace(preview) + "\n" + rule))

	extra, err := r.console.ReadLine(ctx, "Additional input (optional): ")
	switch {
	case errors.Is(err, ui.ErrInterrupted) || errors.Is(err, context.Canceled):
		return
	case err != nil && !errors.Is(err, io.EOF):
		r.printError(err.Error())
		return
	}
	if extra = strings.TrimSpace(extra); extra != "" {
		content += "\n\n" + extra
	}
	r.submit(ctx, r.takePending(content))
}

func (r *REPL) printSkills() {
	styles := r.console.Styles()
	r.console.Println(styles.Prompt.Render("Available skills:"))
	skills := r.store.ListSkills()
	if len(skills) == 0 {
		r.console.Println(styles.Dim.Render("  (none)"))
	}
	for i, s := range skills {
		r.console.Println(fmt.Sprintf("  %d. %s", i+1, s))
	}
	r.console.Println(styles.Dim.Render("Usage: /skill <name>"))
}

var helpRows = [][2]string{
	{"/skill [name]", "Load a skill from the skills directory"},
	{"/model [provider] [model]", "List providers or switch provider/model"},
	{"/login [provider]", "Enter an API key"},
	{"/stats", "Show session statistics"},
	{"/clear, /new", "Reset the conversation"},
	{"/help", "Show this help"},
	{"/exit, /quit", "Exit"},
	{"!<command>", "Run a shell command; output is added to your next message"},
}

func (r *REPL) printHelp() {
	styles := r.console.Styles()
	r.console.Println(styles.Prompt.Render("Commands:"))
	for _, row := range helpRows {
		r.console.Println(fmt.Sprintf("  %-27s", row[0]) + styles.Dim.Render(row[1]))
	}
}

func (r *REPL) printError(msg string) {
	r.console.Println(r.console.Styles().Error.Render("Error: " + msg))
}

func (r *REPL) printSuccess(msg string) {
	r.console.Println(r.console.Styles().Success.Render(msg))
}
