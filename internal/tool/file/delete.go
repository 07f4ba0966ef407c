package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/Cyclone1070/mini/internal/tool"
)

// DeleteFileTool removes a single file from the workspace.
type DeleteFileTool struct {
	fs    fileSystem
	paths pathResolver
}

// NewDeleteFileTool creates a DeleteFileTool.
func NewDeleteFileTool(fs fileSystem, paths pathResolver) *DeleteFileTool {
	return &DeleteFileTool{fs: fs, paths: paths}
}

func (t *DeleteFileTool) Name() string {
	return tool.NameDeleteFile
}

func (t *DeleteFileTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        tool.NameDeleteFile,
		Description: "Delete a file from the workspace. Directories are not deleted.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path": {Type: tool.TypeString, Description: "Path to the file, relative to the workspace root"},
			},
			Required: []string{"path"},
		},
	}
}

// Preview names the file that would be removed.
func (t *DeleteFileTool) Preview(ctx context.Context, args tool.Args) (tool.ToolDisplay, error) {
	a, ok := args.(tool.DeleteFileArgs)
	if !ok {
		return nil, fmt.Errorf("%w: %T", tool.ErrUnexpectedArgsType, args)
	}
	rel, err := t.paths.Rel(a.Path)
	if err != nil {
		return nil, err
	}
	return tool.StringDisplay("delete " + rel), nil
}

func (t *DeleteFileTool) Execute(ctx context.Context, args tool.Args) (tool.Result, error) {
	a, ok := args.(tool.DeleteFileArgs)
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

	if err := t.fs.Remove(abs); err != nil {
		return tool.Errorf("failed to delete %s: %v", a.Path, err), nil
	}
	return tool.OK(map[string]any{"path": rel, "deleted": true}), nil
}
