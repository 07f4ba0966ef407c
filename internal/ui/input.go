package ui

import (
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// inputModel reads a single line.
type inputModel struct {
	input textinput.Model
	value string
	err   error
	done  bool
}

func newInputModel(prompt string) inputModel {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = "Ask anything, /help for commands"
	ti.CharLimit = 0
	ti.Focus()
	return inputModel{input: ti}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.value = m.input.Value()
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC:
			m.err = ErrInterrupted
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlD:
			if m.input.Value() == "" {
				m.err = io.EOF
				m.done = true
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View is empty once done; the console echoes the submitted line itself.
func (m inputModel) View() string {
	if m.done {
		return ""
	}
	return m.input.View()
}
