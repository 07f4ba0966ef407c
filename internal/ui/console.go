// Package ui is the terminal front end: it renders session events, reads
// input and asks the user for approvals. On a TTY it uses bubbletea
// programs; otherwise it falls back to plain line I/O.
package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// ErrInterrupted is returned by prompts cancelled with ctrl+c.
var ErrInterrupted = errors.New("input interrupted")

const defaultWidth = 80

// Console renders events and prompts for input.
type Console struct {
	in     io.Reader
	out    io.Writer
	lines  *bufio.Reader
	tty    bool
	width  int
	styles Styles
	md     *glamour.TermRenderer

	mu      sync.Mutex
	spinner *spinnerHandle
}

// New builds a console over in and out. Interactive widgets are used only
// when both are terminals.
func New(in io.Reader, out io.Writer) *Console {
	c := &Console{
		in:     in,
		out:    out,
		lines:  bufio.NewReader(in),
		width:  defaultWidth,
		styles: PlainStyles(),
	}

	inFile, inOK := in.(*os.File)
	outFile, outOK := out.(*os.File)
	if inOK && outOK && term.IsTerminal(int(inFile.Fd())) && term.IsTerminal(int(outFile.Fd())) {
		c.tty = true
		c.styles = DefaultStyles()
		if w, _, err := term.GetSize(int(outFile.Fd())); err == nil && w > 0 {
			c.width = w
		}
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(c.width-4),
		); err == nil {
			c.md = r
		}
	}
	return c
}

// Interactive reports whether the console drives a terminal.
func (c *Console) Interactive() bool { return c.tty }

// Styles returns the active style set.
func (c *Console) Styles() Styles { return c.styles }

// Println writes a line, clearing any spinner first.
func (c *Console) Println(a ...any) {
	c.StopSpinner()
	fmt.Fprintln(c.out, a...)
}

// Printf writes formatted text, clearing any spinner first.
func (c *Console) Printf(format string, a ...any) {
	c.StopSpinner()
	fmt.Fprintf(c.out, format, a...)
}

// Banner prints the startup line.
func (c *Console) Banner(model, workspace string) {
	c.Println(c.styles.Prompt.Render("mini") + c.styles.Dim.Render(fmt.Sprintf(" · %s · %s", model, workspace)))
	c.Println(c.styles.Dim.Render("Type /help for commands, !cmd to run a shell command, ctrl+c to interrupt."))
}

// ReadLine prompts for one line of input. It returns io.EOF at end of
// input and ErrInterrupted on ctrl+c.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	c.StopSpinner()
	if !c.tty {
		fmt.Fprint(c.out, prompt)
		return c.readPlainLine()
	}

	final, err := c.run(ctx, newInputModel(c.styles.Prompt.Render(prompt)))
	if err != nil {
		return "", err
	}
	m := final.(inputModel)
	if m.err != nil {
		return "", m.err
	}
	fmt.Fprintln(c.out, c.styles.Prompt.Render(prompt)+m.value)
	return m.value, nil
}

// ReadSecret reads a line without echo, for API keys.
func (c *Console) ReadSecret(prompt string) (string, error) {
	c.StopSpinner()
	fmt.Fprint(c.out, prompt)
	if f, ok := c.in.(*os.File); ok && c.tty {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := c.readPlainLine()
	return strings.TrimSpace(line), err
}

// Confirm asks a yes/no question. Anything but y/yes is no.
func (c *Console) Confirm(ctx context.Context, question string) bool {
	c.StopSpinner()
	if !c.tty {
		fmt.Fprint(c.out, question+" [y/N] ")
		line, err := c.readPlainLine()
		if err != nil {
			return false
		}
		return isYes(line)
	}

	final, err := c.run(ctx, newChoiceModel(question, c.styles, false))
	if err != nil {
		return false
	}
	return final.(choiceModel).decision.Approved
}

func (c *Console) readPlainLine() (string, error) {
	line, err := c.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// run drives a bubbletea program on the console's terminal. Signals are left
// to the caller so ctrl+c while a program is idle still reaches the REPL.
func (c *Console) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(c.in),
		tea.WithOutput(c.out),
		tea.WithoutSignalHandler(),
	)
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("run prompt: %w", err)
	}
	return final, nil
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
