// Package diffutil renders unified diffs for write and edit previews.
package diffutil

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Unified returns the unified diff between two versions of a file along with
// the number of added and removed lines. Identical inputs give an empty diff.
func Unified(filename, oldContent, newContent string) (diff string, added, removed int) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: "a/" + filename,
		ToFile:   "b/" + filename,
		Context:  3,
	}
	diff, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", 0, 0
	}

	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			added++
		} else if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---") {
			removed++
		}
	}
	return diff, added, removed
}
