package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/Cyclone1070/mini/internal/config"
	"github.com/Cyclone1070/mini/internal/tool"
	"github.com/Cyclone1070/mini/internal/tool/contentutil"
)

// ReadContent is the content of a successful read_file result.
type ReadContent struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	StartLine  int    `json:"startLine"`
	EndLine    int    `json:"endLine"`
	TotalLines int    `json:"totalLines"`
}

// ReadFileTool reads text files inside the workspace.
type ReadFileTool struct {
	fs    fileSystem
	paths pathResolver
	cfg   config.ToolsConfig
}

// NewReadFileTool creates a ReadFileTool.
func NewReadFileTool(fs fileSystem, paths pathResolver, cfg config.ToolsConfig) *ReadFileTool {
	return &ReadFileTool{fs: fs, paths: paths, cfg: cfg}
}

func (t *ReadFileTool) Name() string {
	return tool.NameReadFile
}

func (t *ReadFileTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        tool.NameReadFile,
		Description: "Read a text file from the workspace. Use offset and limit to read a range of lines.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path":   {Type: tool.TypeString, Description: "Path to the file, relative to the workspace root"},
				"offset": {Type: tool.TypeInteger, Description: "1-based line to start reading from"},
				"limit":  {Type: tool.TypeInteger, Description: "Maximum number of lines to read"},
			},
			Required: []string{"path"},
		},
	}
}

// Execute reads the requested line range. Directories, binary files and
// files over the configured size limit are reported as failed results.
func (t *ReadFileTool) Execute(ctx context.Context, args tool.Args) (tool.Result, error) {
	a, ok := args.(tool.ReadFileArgs)
	if !ok {
		return tool.Result{}, fmt.Errorf("%w: %T", tool.ErrUnexpectedArgsType, args)
	}

	abs, err := t.paths.Abs(a.Path)
	if err != nil {
		return tool.Errorf("%v", err), nil
	}
	rel, _ := t.paths.Rel(abs)

	info, err := t.fs.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return tool.Errorf("%v: %s", ErrFileMissing, a.Path), nil
		}
		return tool.Errorf("failed to stat %s: %v", a.Path, err), nil
	}
	if info.IsDir() {
		return tool.Errorf("%v: %s", ErrIsDirectory, a.Path), nil
	}
	if info.Size() > t.cfg.MaxFileSize {
		return tool.Errorf("%v: %s (size %d, limit %d)", ErrFileTooLarge, a.Path, info.Size(), t.cfg.MaxFileSize), nil
	}

	data, err := t.fs.ReadFile(abs)
	if err != nil {
		return tool.Errorf("failed to read %s: %v", a.Path, err), nil
	}
	if contentutil.IsBinary(data) {
		return tool.Errorf("%v: %s", ErrBinaryFile, a.Path), nil
	}

	lines := contentutil.SplitLines(string(data))
	start := max(a.Offset, 1)
	if start > len(lines) {
		return tool.OK(ReadContent{Path: rel, StartLine: start, EndLine: start - 1, TotalLines: len(lines)}), nil
	}
	end := len(lines)
	if a.Limit > 0 {
		end = min(end, start-1+a.Limit)
	}

	return tool.OK(ReadContent{
		Path:       rel,
		Content:    strings.Join(lines[start-1:end], "\n"),
		StartLine:  start,
		EndLine:    end,
		TotalLines: len(lines),
	}), nil
}
