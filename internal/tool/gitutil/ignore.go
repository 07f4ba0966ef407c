// Package gitutil applies the workspace .gitignore to directory walks.
package gitutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// fileReader is the filesystem access the matcher needs.
type fileReader interface {
	ReadFile(path string) ([]byte, error)
}

// Matcher reports whether workspace-relative paths are ignored.
// A nil matcher, or one built without a .gitignore, only skips .git itself.
type Matcher struct {
	matcher gitignore.Matcher
}

// NewMatcher loads .gitignore from the workspace root. A missing file is not
// an error.
func NewMatcher(workspaceRoot string, fsys fileReader) (*Matcher, error) {
	gitignorePath := filepath.Join(workspaceRoot, ".gitignore")

	data, err := fsys.ReadFile(gitignorePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Matcher{}, nil
		}
		return nil, &GitignoreReadError{Path: gitignorePath, Cause: err}
	}

	return &Matcher{matcher: gitignore.NewMatcher(ParsePatterns(string(data)))}, nil
}

// ParsePatterns parses gitignore content, skipping blanks and comments.
func ParsePatterns(content string) []gitignore.Pattern {
	var patterns []gitignore.Pattern
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(trimmed, nil))
	}
	return patterns
}

// ShouldIgnore checks a slash or OS separated path relative to the workspace root.
func (m *Matcher) ShouldIgnore(relativePath string, isDir bool) bool {
	segments := splitPath(relativePath)
	if len(segments) == 0 {
		return false
	}
	for _, s := range segments {
		if s == ".git" {
			return true
		}
	}
	if m == nil || m.matcher == nil {
		return false
	}
	return m.matcher.Match(segments, isDir)
}

// splitPath splits a path into segments for gitignore matching.
// It normalizes path separators and filters out empty and "." segments.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}

	parts := strings.Split(filepath.ToSlash(path), "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			segments = append(segments, part)
		}
	}

	return segments
}
