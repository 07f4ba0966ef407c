// Package directory implements the list_directory tool.
package directory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/Cyclone1070/mini/internal/config"
	"github.com/Cyclone1070/mini/internal/tool"
)

type pathResolver interface {
	Abs(path string) (string, error)
	Rel(path string) (string, error)
}

type ignoreMatcher interface {
	ShouldIgnore(relativePath string, isDir bool) bool
}

// Entry is one listed path, relative to the workspace root.
type Entry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"isDir,omitempty"`
	Size  int64  `json:"size,omitempty"`
}

// ListContent is the content of a successful list_directory result.
type ListContent struct {
	Path      string  `json:"path"`
	Entries   []Entry `json:"entries"`
	Truncated bool    `json:"truncated,omitempty"`
}

// ListDirectoryTool lists workspace directories, skipping gitignored paths.
type ListDirectoryTool struct {
	paths  pathResolver
	ignore ignoreMatcher
	cfg    config.ToolsConfig
}

// NewListDirectoryTool creates a ListDirectoryTool.
func NewListDirectoryTool(paths pathResolver, ignore ignoreMatcher, cfg config.ToolsConfig) *ListDirectoryTool {
	return &ListDirectoryTool{paths: paths, ignore: ignore, cfg: cfg}
}

func (t *ListDirectoryTool) Name() string {
	return tool.NameListDirectory
}

func (t *ListDirectoryTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        tool.NameListDirectory,
		Description: "List files and directories in the workspace. Paths ignored by .gitignore are skipped.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path":      {Type: tool.TypeString, Description: "Directory to list, relative to the workspace root. Defaults to the root"},
				"recursive": {Type: tool.TypeBoolean, Description: "List subdirectories recursively"},
				"limit":     {Type: tool.TypeInteger, Description: "Maximum number of entries to return"},
			},
		},
	}
}

func (t *ListDirectoryTool) Execute(ctx context.Context, args tool.Args) (tool.Result, error) {
	a, ok := args.(tool.ListDirectoryArgs)
	if !ok {
		return tool.Result{}, fmt.Errorf("%w: %T", tool.ErrUnexpectedArgsType, args)
	}

	path := a.Path
	if path == "" {
		path = "."
	}
	limit := a.Limit
	if limit == 0 {
		limit = t.cfg.DefaultListLimit
	}

	abs, err := t.paths.Abs(path)
	if err != nil {
		return tool.Errorf("%v", err), nil
	}
	rel, _ := t.paths.Rel(abs)

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return tool.Errorf("directory does not exist: %s", path), nil
		}
		return tool.Errorf("failed to stat %s: %v", path, err), nil
	}
	if !info.IsDir() {
		return tool.Errorf("not a directory: %s", path), nil
	}

	entries, truncated, err := t.walk(ctx, abs, a.Recursive, limit)
	if err != nil {
		if ctx.Err() != nil {
			return tool.Result{}, ctx.Err()
		}
		return tool.Errorf("failed to list %s: %v", path, err), nil
	}

	if rel == "" {
		rel = "."
	}
	return tool.OK(ListContent{Path: rel, Entries: entries, Truncated: truncated}), nil
}

var errLimitReached = errors.New("limit reached")

func (t *ListDirectoryTool) walk(ctx context.Context, root string, recursive bool, limit int) ([]Entry, bool, error) {
	entries := make([]Entry, 0)
	truncated := false

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			// Unreadable entries below the root are skipped.
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == root {
			return nil
		}

		rel, err := t.paths.Rel(p)
		if err != nil {
			return nil
		}
		if t.ignore != nil && t.ignore.ShouldIgnore(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if len(entries) >= limit {
			truncated = true
			return errLimitReached
		}

		entry := Entry{Path: rel, IsDir: d.IsDir()}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				entry.Size = info.Size()
			}
		}
		entries = append(entries, entry)

		if d.IsDir() && !recursive {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimitReached) {
		return nil, false, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, truncated, nil
}
