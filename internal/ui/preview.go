package ui

import (
	"fmt"
	"strings"

	"github.com/Cyclone1070/mini/internal/tool"
)

// maxPreviewLines caps how much of a diff is shown before approval.
const maxPreviewLines = 80

// FormatToolDescription generates a one-line description of a tool call.
func FormatToolDescription(name string, args tool.Args) string {
	switch a := args.(type) {
	case tool.ReadFileArgs:
		if a.Offset > 0 || a.Limit > 0 {
			return fmt.Sprintf("Read %s (from line %d)", a.Path, max(a.Offset, 1))
		}
		return "Read " + a.Path
	case tool.WriteFileArgs:
		return "Write " + a.Path
	case tool.EditFileArgs:
		return fmt.Sprintf("Edit %s (%d operations)", a.Path, len(a.Operations))
	case tool.DeleteFileArgs:
		return "Delete " + a.Path
	case tool.ListDirectoryArgs:
		return "List " + a.String()
	case tool.SearchFilesArgs:
		return "Search " + a.String()
	case tool.ExecuteCommandArgs:
		return fmt.Sprintf("Shell '%s'", a.Command)
	}
	return name
}

// RenderPreview renders what an approval-gated call is about to do.
func RenderPreview(display tool.ToolDisplay, styles Styles) string {
	switch d := display.(type) {
	case tool.DiffDisplay:
		return renderDiff(d, styles)
	case tool.CommandDisplay:
		return renderCommand(d, styles)
	case tool.StringDisplay:
		return string(d)
	default:
		return ""
	}
}

func renderDiff(d tool.DiffDisplay, styles Styles) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("File: %s  %s %s\n", d.Path,
		styles.Added.Render(fmt.Sprintf("+%d", d.AddedLines)),
		styles.Removed.Render(fmt.Sprintf("-%d", d.RemovedLines))))

	if d.Diff == "" {
		sb.WriteString(styles.Dim.Render("(no changes)"))
		return sb.String()
	}

	lines := strings.Split(strings.TrimRight(d.Diff, "\n"), "\n")
	for i, line := range lines {
		if i == maxPreviewLines {
			sb.WriteString(styles.Dim.Render(fmt.Sprintf("... %d more lines", len(lines)-i)))
			break
		}
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			sb.WriteString(styles.Dim.Render(line))
		case strings.HasPrefix(line, "@@"):
			sb.WriteString(styles.Hunk.Render(line))
		case strings.HasPrefix(line, "+"):
			sb.WriteString(styles.Added.Render(line))
		case strings.HasPrefix(line, "-"):
			sb.WriteString(styles.Removed.Render(line))
		default:
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderCommand(d tool.CommandDisplay, styles Styles) string {
	s := fmt.Sprintf("$ %s", d.Command)
	var meta []string
	if d.WorkingDir != "" && d.WorkingDir != "." {
		meta = append(meta, "in "+d.WorkingDir)
	}
	if d.Timeout > 0 {
		meta = append(meta, fmt.Sprintf("timeout %ds", d.Timeout))
	}
	if len(meta) > 0 {
		s += "\n" + styles.Dim.Render(strings.Join(meta, ", "))
	}
	return s
}
