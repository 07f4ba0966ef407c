package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Cyclone1070/mini/internal/config"
	"github.com/Cyclone1070/mini/internal/tool"
	"github.com/Cyclone1070/mini/internal/tool/contentutil"
	"github.com/Cyclone1070/mini/internal/tool/diffutil"
)

const defaultFilePerm os.FileMode = 0o644

// WriteContent is the content of a successful write_file result.
type WriteContent struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytesWritten"`
	Created      bool   `json:"created"`
	AddedLines   int    `json:"addedLines"`
	RemovedLines int    `json:"removedLines"`
}

// WriteFileTool creates or overwrites files inside the workspace.
type WriteFileTool struct {
	fs    fileSystem
	paths pathResolver
	cfg   config.ToolsConfig
}

// NewWriteFileTool creates a WriteFileTool.
func NewWriteFileTool(fs fileSystem, paths pathResolver, cfg config.ToolsConfig) *WriteFileTool {
	return &WriteFileTool{fs: fs, paths: paths, cfg: cfg}
}

func (t *WriteFileTool) Name() string {
	return tool.NameWriteFile
}

func (t *WriteFileTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        tool.NameWriteFile,
		Description: "Create a file, or replace the whole content of an existing one. Parent directories are created as needed.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path":    {Type: tool.TypeString, Description: "Path to the file, relative to the workspace root"},
				"content": {Type: tool.TypeString, Description: "Full file content"},
			},
			Required: []string{"path", "content"},
		},
	}
}

// writePlan is what a write would do, shared by Preview and Execute.
type writePlan struct {
	abs     string
	rel     string
	old     string
	exists  bool
	perm    os.FileMode
	content []byte
}

func (t *WriteFileTool) plan(a tool.WriteFileArgs) (*writePlan, error) {
	abs, err := t.paths.Abs(a.Path)
	if err != nil {
		return nil, err
	}
	rel, _ := t.paths.Rel(abs)

	p := &writePlan{abs: abs, rel: rel, perm: defaultFilePerm, content: []byte(a.Content)}

	if contentutil.IsBinary(p.content) {
		return nil, fmt.Errorf("%w: refusing to write binary content to %s", ErrBinaryFile, a.Path)
	}
	if int64(len(p.content)) > t.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %s (size %d, limit %d)", ErrFileTooLarge, a.Path, len(p.content), t.cfg.MaxFileSize)
	}

	info, err := t.fs.Stat(abs)
	switch {
	case err == nil && info.IsDir():
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, a.Path)
	case err == nil:
		data, err := t.fs.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", a.Path, err)
		}
		p.exists = true
		p.perm = info.Mode().Perm()
		p.old = string(data)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to stat %s: %w", a.Path, err)
	}

	return p, nil
}

// Preview renders the write as a diff against the current file content.
func (t *WriteFileTool) Preview(ctx context.Context, args tool.Args) (tool.ToolDisplay, error) {
	a, ok := args.(tool.WriteFileArgs)
	if !ok {
		return nil, fmt.Errorf("%w: %T", tool.ErrUnexpectedArgsType, args)
	}
	p, err := t.plan(a)
	if err != nil {
		return nil, err
	}
	diff, added, removed := diffutil.Unified(p.rel, p.old, a.Content)
	return tool.DiffDisplay{Path: p.rel, Diff: diff, AddedLines: added, RemovedLines: removed}, nil
}

// Execute writes the file atomically, keeping the permissions of a file it replaces.
func (t *WriteFileTool) Execute(ctx context.Context, args tool.Args) (tool.Result, error) {
	a, ok := args.(tool.WriteFileArgs)
	if !ok {
		return tool.Result{}, fmt.Errorf("%w: %T", tool.ErrUnexpectedArgsType, args)
	}

	p, err := t.plan(a)
	if err != nil {
		return tool.Errorf("%v", err), nil
	}

	if !p.exists {
		if err := t.fs.MkdirAll(filepath.Dir(p.abs), 0o755); err != nil {
			return tool.Errorf("failed to create parent directories for %s: %v", a.Path, err), nil
		}
	}
	if err := t.fs.WriteFileAtomic(p.abs, p.content, p.perm); err != nil {
		return tool.Errorf("failed to write %s: %v", a.Path, err), nil
	}

	_, added, removed := diffutil.Unified(p.rel, p.old, a.Content)
	return tool.OK(WriteContent{
		Path:         p.rel,
		BytesWritten: len(p.content),
		Created:      !p.exists,
		AddedLines:   added,
		RemovedLines: removed,
	}), nil
}
