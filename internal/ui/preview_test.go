package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Cyclone1070/mini/internal/tool"
)

func TestFormatToolDescription(t *testing.T) {
	tests := []struct {
		name string
		args tool.Args
		want string
	}{
		{tool.NameReadFile, tool.ReadFileArgs{Path: "a.go"}, "Read a.go"},
		{tool.NameReadFile, tool.ReadFileArgs{Path: "a.go", Offset: 10}, "Read a.go (from line 10)"},
		{tool.NameWriteFile, tool.WriteFileArgs{Path: "b.go"}, "Write b.go"},
		{tool.NameEditFile, tool.EditFileArgs{Path: "c.go", Operations: []tool.EditOperation{{Before: "a", After: "b"}}}, "Edit c.go (1 operations)"},
		{tool.NameDeleteFile, tool.DeleteFileArgs{Path: "d.go"}, "Delete d.go"},
		{tool.NameListDirectory, tool.ListDirectoryArgs{}, "List ."},
		{tool.NameExecuteCommand, tool.ExecuteCommandArgs{Command: "go test ./..."}, "Shell 'go test ./...'"},
		{"mystery", nil, "mystery"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatToolDescription(tt.name, tt.args))
		})
	}
}

func TestRenderPreview_Diff(t *testing.T) {
	d := tool.DiffDisplay{
		Path:         "a.txt",
		Diff:         "--- a/a.txt\n+++ b/a.txt\n@@ -1 +1 @@\n-old\n+new\n",
		AddedLines:   1,
		RemovedLines: 1,
	}

	got := RenderPreview(d, PlainStyles())

	assert.Equal(t, "File: a.txt  +1 -1\n--- a/a.txt\n+++ b/a.txt\n@@ -1 +1 @@\n-old\n+new", got)
}

func TestRenderPreview_DiffTruncated(t *testing.T) {
	diff := ""
	for i := 0; i < maxPreviewLines+5; i++ {
		diff += "+line\n"
	}

	got := RenderPreview(tool.DiffDisplay{Path: "big", Diff: diff}, PlainStyles())

	assert.Contains(t, got, "... 5 more lines")
}

func TestRenderPreview_Command(t *testing.T) {
	got := RenderPreview(tool.CommandDisplay{Command: "make", WorkingDir: "sub", Timeout: 30}, PlainStyles())
	assert.Equal(t, "$ make\nin sub, timeout 30s", got)

	got = RenderPreview(tool.CommandDisplay{Command: "ls", WorkingDir: "."}, PlainStyles())
	assert.Equal(t, "$ ls", got)

	assert.Empty(t, RenderPreview(nil, PlainStyles()))
}
