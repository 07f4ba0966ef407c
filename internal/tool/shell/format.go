package shell

import (
	"strconv"
	"strings"
)

// FormatCommandResult renders a direct command run the way it is handed to
// the model. Empty streams and a zero exit code are left out.
func FormatCommandResult(command string, out *Output) string {
	var b strings.Builder
	b.WriteString("[command] ")
	b.WriteString(command)
	if strings.TrimSpace(out.Stdout) != "" {
		b.WriteString("\n[stdout]\n")
		b.WriteString(strings.TrimRight(out.Stdout, "\n"))
	}
	if strings.TrimSpace(out.Stderr) != "" {
		b.WriteString("\n[stderr]\n")
		b.WriteString(strings.TrimRight(out.Stderr, "\n"))
	}
	if out.ExitCode != 0 {
		b.WriteString("\n[exit_code] ")
		b.WriteString(strconv.Itoa(out.ExitCode))
	}
	return b.String()
}
