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
	"github.com/Cyclone1070/mini/internal/tool/diffutil"
)

// EditContent is the content of a successful edit_file result.
type EditContent struct {
	Path         string `json:"path"`
	Replacements int    `json:"replacements"`
	AddedLines   int    `json:"addedLines"`
	RemovedLines int    `json:"removedLines"`
}

// EditFileTool applies search-and-replace operations to an existing file.
type EditFileTool struct {
	fs    fileSystem
	paths pathResolver
	cfg   config.ToolsConfig
}

// NewEditFileTool creates an EditFileTool.
func NewEditFileTool(fs fileSystem, paths pathResolver, cfg config.ToolsConfig) *EditFileTool {
	return &EditFileTool{fs: fs, paths: paths, cfg: cfg}
}

func (t *EditFileTool) Name() string {
	return tool.NameEditFile
}

func (t *EditFileTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        tool.NameEditFile,
		Description: "Edit an existing file by replacing text. Operations are applied in order. An empty 'before' appends 'after' to the end of the file.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path": {Type: tool.TypeString, Description: "Path to the file, relative to the workspace root"},
				"operations": {
					Type:        tool.TypeArray,
					Description: "List of edit operations",
					Items: &tool.Schema{
						Type: tool.TypeObject,
						Properties: map[string]*tool.Schema{
							"before":                {Type: tool.TypeString, Description: "Exact text to find"},
							"after":                 {Type: tool.TypeString, Description: "Replacement text"},
							"expected_replacements": {Type: tool.TypeInteger, Description: "Number of occurrences to replace, default 1"},
						},
						Required: []string{"before", "after"},
					},
				},
			},
			Required: []string{"path", "operations"},
		},
	}
}

type editPlan struct {
	abs          string
	rel          string
	perm         fs.FileMode
	oldContent   string // LF normalized
	newContent   string // LF normalized
	hasCRLF      bool
	replacements int
}

func (t *EditFileTool) plan(a tool.EditFileArgs) (*editPlan, error) {
	abs, err := t.paths.Abs(a.Path)
	if err != nil {
		return nil, err
	}
	rel, _ := t.paths.Rel(abs)

	info, err := t.fs.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileMissing, a.Path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", a.Path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, a.Path)
	}

	data, err := t.fs.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", a.Path, err)
	}
	if contentutil.IsBinary(data) {
		return nil, fmt.Errorf("%w: %s", ErrBinaryFile, a.Path)
	}

	raw := string(data)
	p := &editPlan{
		abs:        abs,
		rel:        rel,
		perm:       info.Mode().Perm(),
		hasCRLF:    strings.Contains(raw, "\r\n"),
		oldContent: contentutil.NormalizeNewlines(raw),
	}

	p.newContent, p.replacements, err = applyEdits(p.oldContent, a.Operations)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Path, err)
	}

	if size := int64(len(p.finalBytes())); size > t.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w after edit: %s (size %d, limit %d)", ErrFileTooLarge, a.Path, size, t.cfg.MaxFileSize)
	}
	return p, nil
}

// finalBytes restores the original line endings.
func (p *editPlan) finalBytes() []byte {
	if p.hasCRLF {
		return []byte(strings.ReplaceAll(p.newContent, "\n", "\r\n"))
	}
	return []byte(p.newContent)
}

// applyEdits applies operations in order on LF normalized content.
// ExpectedReplacements of 0 means exactly one occurrence.
func applyEdits(content string, ops []tool.EditOperation) (string, int, error) {
	total := 0
	for _, op := range ops {
		before := contentutil.NormalizeNewlines(op.Before)
		after := contentutil.NormalizeNewlines(op.After)
		expected := max(op.ExpectedReplacements, 1)

		if before == "" {
			// Append has exactly one target, the end of the file.
			if expected > 1 {
				return "", 0, fmt.Errorf("%w: append has 1 target, got %d", ErrReplacementCountMismatch, op.ExpectedReplacements)
			}
			content += after
			total++
			continue
		}

		count := strings.Count(content, before)
		if count == 0 {
			return "", 0, fmt.Errorf("%w: %q", ErrSnippetNotFound, op.Before)
		}
		if count != expected {
			return "", 0, fmt.Errorf("%w: expected %d, found %d", ErrReplacementCountMismatch, expected, count)
		}

		content = strings.Replace(content, before, after, expected)
		total += expected
	}
	return content, total, nil
}

// Preview renders the edit as a unified diff without touching the file.
func (t *EditFileTool) Preview(ctx context.Context, args tool.Args) (tool.ToolDisplay, error) {
	a, ok := args.(tool.EditFileArgs)
	if !ok {
		return nil, fmt.Errorf("%w: %T", tool.ErrUnexpectedArgsType, args)
	}
	p, err := t.plan(a)
	if err != nil {
		return nil, err
	}
	diff, added, removed := diffutil.Unified(p.rel, p.oldContent, p.newContent)
	return tool.DiffDisplay{Path: p.rel, Diff: diff, AddedLines: added, RemovedLines: removed}, nil
}

// Execute applies the operations and writes the file atomically. Nothing is
// written unless every operation matches.
func (t *EditFileTool) Execute(ctx context.Context, args tool.Args) (tool.Result, error) {
	a, ok := args.(tool.EditFileArgs)
	if !ok {
		return tool.Result{}, fmt.Errorf("%w: %T", tool.ErrUnexpectedArgsType, args)
	}

	p, err := t.plan(a)
	if err != nil {
		return tool.Errorf("%v", err), nil
	}

	if err := t.fs.WriteFileAtomic(p.abs, p.finalBytes(), p.perm); err != nil {
		return tool.Errorf("failed to write %s: %v", a.Path, err), nil
	}

	_, added, removed := diffutil.Unified(p.rel, p.oldContent, p.newContent)
	return tool.OK(EditContent{
		Path:         p.rel,
		Replacements: p.replacements,
		AddedLines:   added,
		RemovedLines: removed,
	}), nil
}
