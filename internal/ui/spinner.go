package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type stopSpinnerMsg struct{}

type spinnerModel struct {
	spinner  spinner.Model
	label    string
	stopping bool
}

func newSpinnerModel(label string, styles Styles) spinnerModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Tool))
	return spinnerModel{spinner: s, label: label}
}

func (m spinnerModel) Init() tea.Cmd { return m.spinner.Tick }

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stopSpinnerMsg:
		m.stopping = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.stopping {
		return ""
	}
	return m.spinner.View() + " " + m.label
}

type spinnerHandle struct {
	program *tea.Program
	done    chan struct{}
}

// StartSpinner shows an animated status line until the next output. It is a
// no-op off a terminal.
func (c *Console) StartSpinner(label string) {
	if !c.tty {
		return
	}
	c.StopSpinner()

	p := tea.NewProgram(newSpinnerModel(label, c.styles),
		tea.WithInput(nil),
		tea.WithOutput(c.out),
		tea.WithoutSignalHandler(),
	)
	h := &spinnerHandle{program: p, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		_, _ = p.Run()
	}()

	c.mu.Lock()
	c.spinner = h
	c.mu.Unlock()
}

// StopSpinner clears the spinner, if any, and waits for its program to exit.
func (c *Console) StopSpinner() {
	c.mu.Lock()
	h := c.spinner
	c.spinner = nil
	c.mu.Unlock()
	if h == nil {
		return
	}
	h.program.Send(stopSpinnerMsg{})
	<-h.done
}
