package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Cyclone1070/mini/internal/workflow"
)

// choiceModel asks a single-key question: y/enter approves, n/esc/ctrl+c
// rejects and, when allowSession is set, a approves for the session.
type choiceModel struct {
	question     string
	styles       Styles
	allowSession bool
	decision     workflow.ApprovalDecision
	done         bool
}

func newChoiceModel(question string, styles Styles, allowSession bool) choiceModel {
	return choiceModel{question: question, styles: styles, allowSession: allowSession}
}

func (m choiceModel) Init() tea.Cmd { return nil }

func (m choiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch strings.ToLower(key.String()) {
	case "y", "enter":
		m.decision = workflow.ApprovalDecision{Approved: true}
	case "a":
		if !m.allowSession {
			return m, nil
		}
		m.decision = workflow.ApprovalDecision{Approved: true, AutoApproveSession: true}
	case "n", "esc", "ctrl+c":
		m.decision = workflow.ApprovalDecision{}
	default:
		return m, nil
	}
	m.done = true
	return m, tea.Quit
}

func (m choiceModel) View() string {
	if m.done {
		return m.question + " " + m.answer() + "\n"
	}
	return m.question + " " + m.styles.Dim.Render(m.options()) + " "
}

func (m choiceModel) options() string {
	if m.allowSession {
		return "[y]es / [a]lways this session / [n]o"
	}
	return "[y]es / [n]o"
}

func (m choiceModel) answer() string {
	switch {
	case m.decision.AutoApproveSession:
		return m.styles.Success.Render("always")
	case m.decision.Approved:
		return m.styles.Success.Render("yes")
	default:
		return m.styles.Error.Render("no")
	}
}

// parseChoice maps a typed answer to a decision for line-mode input.
func parseChoice(line string, allowSession bool) workflow.ApprovalDecision {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return workflow.ApprovalDecision{Approved: true}
	case "a", "always":
		if allowSession {
			return workflow.ApprovalDecision{Approved: true, AutoApproveSession: true}
		}
	}
	return workflow.ApprovalDecision{}
}
