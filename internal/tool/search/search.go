// Package search implements the search_files tool.
package search

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Cyclone1070/mini/internal/config"
	"github.com/Cyclone1070/mini/internal/tool"
	"github.com/Cyclone1070/mini/internal/tool/contentutil"
)

const (
	maxLineLength    = 300
	maxScanTokenSize = 1024 * 1024
)

type pathResolver interface {
	Abs(path string) (string, error)
	Rel(path string) (string, error)
}

type ignoreMatcher interface {
	ShouldIgnore(relativePath string, isDir bool) bool
}

// Match is one matching line.
type Match struct {
	File        string `json:"file"`
	LineNumber  int    `json:"line"`
	LineContent string `json:"content"`
}

// SearchContent is the content of a successful search_files result.
type SearchContent struct {
	Pattern   string  `json:"pattern"`
	Matches   []Match `json:"matches"`
	Truncated bool    `json:"truncated,omitempty"`
}

// SearchFilesTool searches workspace file contents with a regular expression.
type SearchFilesTool struct {
	paths  pathResolver
	ignore ignoreMatcher
	cfg    config.ToolsConfig
}

// NewSearchFilesTool creates a SearchFilesTool.
func NewSearchFilesTool(paths pathResolver, ignore ignoreMatcher, cfg config.ToolsConfig) *SearchFilesTool {
	return &SearchFilesTool{paths: paths, ignore: ignore, cfg: cfg}
}

func (t *SearchFilesTool) Name() string {
	return tool.NameSearchFiles
}

func (t *SearchFilesTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        tool.NameSearchFiles,
		Description: "Search file contents in the workspace with a regular expression (RE2 syntax). Binary and gitignored files are skipped.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"pattern":          {Type: tool.TypeString, Description: "Regular expression to search for"},
				"path":             {Type: tool.TypeString, Description: "File or directory to search, relative to the workspace root. Defaults to the root"},
				"include":          {Type: tool.TypeString, Description: "Only search files whose name matches this glob, e.g. *.go"},
				"case_insensitive": {Type: tool.TypeBoolean, Description: "Ignore case when matching"},
				"limit":            {Type: tool.TypeInteger, Description: "Maximum number of matches to return"},
			},
			Required: []string{"pattern"},
		},
	}
}

var errLimitReached = errors.New("limit reached")

func (t *SearchFilesTool) Execute(ctx context.Context, args tool.Args) (tool.Result, error) {
	a, ok := args.(tool.SearchFilesArgs)
	if !ok {
		return tool.Result{}, fmt.Errorf("%w: %T", tool.ErrUnexpectedArgsType, args)
	}

	expr := a.Pattern
	if a.CaseInsensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return tool.Errorf("invalid pattern %q: %v", a.Pattern, err), nil
	}
	if a.Include != "" {
		if _, err := filepath.Match(a.Include, ""); err != nil {
			return tool.Errorf("invalid include glob %q: %v", a.Include, err), nil
		}
	}

	path := a.Path
	if path == "" {
		path = "."
	}
	abs, err := t.paths.Abs(path)
	if err != nil {
		return tool.Errorf("%v", err), nil
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return tool.Errorf("path does not exist: %s", path), nil
		}
		return tool.Errorf("failed to stat %s: %v", path, err), nil
	}

	limit := a.Limit
	if limit == 0 || limit > t.cfg.MaxSearchResults {
		limit = t.cfg.MaxSearchResults
	}

	out := SearchContent{Pattern: a.Pattern, Matches: make([]Match, 0)}
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == abs {
				return err
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := t.paths.Rel(p)
		if err != nil {
			return nil
		}
		if p != abs && t.ignore != nil && t.ignore.ShouldIgnore(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if a.Include != "" {
			if ok, _ := filepath.Match(a.Include, d.Name()); !ok {
				return nil
			}
		}

		return t.searchFile(p, rel, re, limit, &out)
	})
	if err != nil && !errors.Is(err, errLimitReached) {
		if ctx.Err() != nil {
			return tool.Result{}, ctx.Err()
		}
		return tool.Errorf("search failed: %v", err), nil
	}

	return tool.OK(out), nil
}

// searchFile appends the matching lines of one file. Binary and oversized
// files are skipped.
func (t *SearchFilesTool) searchFile(abs, rel string, re *regexp.Regexp, limit int, out *SearchContent) error {
	info, err := os.Stat(abs)
	if err != nil || info.Size() > t.cfg.MaxFileSize {
		return nil
	}
	data, err := os.ReadFile(abs)
	if err != nil || contentutil.IsBinary(data) {
		return nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		if len(out.Matches) >= limit {
			out.Truncated = true
			return errLimitReached
		}
		line = strings.TrimSpace(line)
		if len(line) > maxLineLength {
			line = line[:maxLineLength] + "...[truncated]"
		}
		out.Matches = append(out.Matches, Match{File: rel, LineNumber: lineNumber, LineContent: line})
	}
	return nil
}
