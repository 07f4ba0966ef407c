package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Cyclone1070/mini/internal/policy"
	"github.com/Cyclone1070/mini/internal/provider"
	"github.com/Cyclone1070/mini/internal/tool"
	"github.com/Cyclone1070/mini/internal/tool/shell"
	"github.com/Cyclone1070/mini/internal/workflow"
)

// maxOutputLines caps command output echoed after a tool call.
const maxOutputLines = 20

// Handle renders one session event. Decision events are answered here too,
// so a front end can pass every event through it.
func (c *Console) Handle(ctx context.Context, ev workflow.Event) {
	switch e := ev.(type) {
	case workflow.ThinkingEvent:
		c.StartSpinner("Thinking...")

	case workflow.ThinkingTextEvent:
		c.printReasoning(e.Reasoning)
		if strings.TrimSpace(e.Text) != "" {
			c.Println(strings.TrimSpace(e.Text))
		}

	case workflow.FinalMessageEvent:
		c.printReasoning(e.Reasoning)
		c.Println(c.Markdown(e.Text))

	case workflow.ToolStartEvent:
		header := c.styles.Tool.Render("● " + e.ToolName)
		if e.RequestDisplay != "" {
			header += " " + e.RequestDisplay
		}
		c.Println(header)
		c.StartSpinner("Running " + e.ToolName + "...")

	case workflow.PolicyEvent:
		switch e.Verdict {
		case policy.VerdictAuto:
			c.Println(c.styles.Dim.Render("  auto-approved: " + e.Reason))
		case policy.VerdictDeny:
			c.Println(c.styles.Error.Render("  denied by policy: " + e.Reason))
		}

	case workflow.ToolEndEvent:
		c.printToolEnd(e)

	case workflow.ApprovalRequestEvent:
		e.Reply <- c.Approve(ctx, e)

	case workflow.MaxIterationsEvent:
		e.Reply <- c.Confirm(ctx, fmt.Sprintf("Reached %d iterations. Continue?", e.Limit))

	case workflow.RetryRequestEvent:
		c.Println(c.styles.Error.Render("Request failed: " + e.Err.Error()))
		e.Reply <- c.Confirm(ctx, "Retry?")

	case workflow.UsageEvent:
		c.Println(c.styles.Dim.Render(FormatUsage(e.Usage, e.Total)))

	case workflow.InterruptedEvent:
		c.Println(c.styles.Warning.Render("Interrupted."))

	case workflow.ErrorEvent:
		c.printError(e.Err, e.Fatal)

	case workflow.DoneEvent:
		c.StopSpinner()
	}
}

// Approve shows the preview of a gated call and asks for a decision.
// Session auto-approve is not offered for dangerous tools.
func (c *Console) Approve(ctx context.Context, req workflow.ApprovalRequestEvent) workflow.ApprovalDecision {
	c.StopSpinner()
	allowSession := req.Tier != tool.TierDangerous

	body := FormatToolDescription(req.ToolName, req.Args)
	if preview := RenderPreview(req.Preview, c.styles); preview != "" && preview != body {
		body += "\n\n" + preview
	}
	if req.Tier == tool.TierDangerous {
		body += "\n\n" + c.styles.Error.Render("This operation cannot be undone.")
	}
	c.Println(c.styles.Box.Render(body))

	question := c.styles.Warning.Render("Allow " + req.ToolName + "?")
	if !c.tty {
		opts := "[Y/n]"
		if allowSession {
			opts = "[Y/a/n]"
		}
		fmt.Fprintf(c.out, "%s %s ", question, opts)
		line, err := c.readPlainLine()
		if err != nil {
			return workflow.ApprovalDecision{}
		}
		return parseChoice(line, allowSession)
	}

	final, err := c.run(ctx, newChoiceModel(question, c.styles, allowSession))
	if err != nil {
		return workflow.ApprovalDecision{}
	}
	return final.(choiceModel).decision
}

// Markdown renders text for the terminal, falling back to the raw text.
func (c *Console) Markdown(text string) string {
	text = strings.TrimSpace(text)
	if c.md == nil || text == "" {
		return text
	}
	out, err := c.md.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func (c *Console) printReasoning(reasoning string) {
	if r := strings.TrimSpace(reasoning); r != "" {
		c.Println(c.styles.Reasoning.Render(r))
	}
}

func (c *Console) printToolEnd(e workflow.ToolEndEvent) {
	res := e.Result
	if out, ok := res.Content.(shell.CommandContent); ok {
		c.printCommandOutput(out, res.Success)
	}

	switch {
	case res.UserRejected:
		c.Println(c.styles.Warning.Render("  ✗ " + res.Error))
	case !res.Success:
		c.Println(c.styles.Error.Render("  ✗ " + firstLine(res.Error)))
	default:
		c.Println(c.styles.Success.Render("  ✓ ") + c.styles.Dim.Render(summarize(e)))
	}
}

func (c *Console) printCommandOutput(out shell.CommandContent, success bool) {
	if s := strings.TrimRight(out.Stdout, "\n"); strings.TrimSpace(s) != "" {
		c.Println(indent(tail(s, maxOutputLines)))
	}
	if s := strings.TrimRight(out.Stderr, "\n"); strings.TrimSpace(s) != "" {
		if success {
			c.Println(indent(tail(s, maxOutputLines)))
		} else {
			c.Println(c.styles.Error.Render(indent(tail(s, maxOutputLines))))
		}
	}
}

func (c *Console) printError(err error, fatal bool) {
	switch {
	case fatal && provider.IsAuth(err):
		c.Println(c.styles.Error.Render("Authentication failed. Use /login to enter a new API key."))
	case errors.Is(err, provider.ErrRateLimit):
		c.Println(c.styles.Error.Render("Rate limit exceeded. Wait and retry."))
	case errors.Is(err, provider.ErrNetwork):
		c.Println(c.styles.Error.Render("Network error. Check your connection."))
	default:
		c.Println(c.styles.Error.Render("Error: " + err.Error()))
	}
}

// FormatUsage renders the token footer.
func FormatUsage(turn, total provider.Usage) string {
	return fmt.Sprintf("[tokens] in:%d out:%d | session:%d", turn.PromptTokens, turn.CompletionTokens, total.TotalTokens)
}

// summarize describes a successful tool result in a few words.
func summarize(e workflow.ToolEndEvent) string {
	switch d := e.Display.(type) {
	case tool.DiffDisplay:
		return fmt.Sprintf("%s +%d -%d", d.Path, d.AddedLines, d.RemovedLines)
	case tool.StringDisplay:
		return string(d)
	case tool.CommandDisplay:
		return "exit 0"
	}
	return "done"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func tail(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return fmt.Sprintf("... (%d lines hidden)\n", len(lines)-n) + strings.Join(lines[len(lines)-n:], "\n")
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
