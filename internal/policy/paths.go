package policy

import (
	"regexp"
	"strings"
)

// pathMatcher tests path segments against dangerous file and directory lists.
type pathMatcher struct {
	files []*regexp.Regexp
	dirs  []*regexp.Regexp
}

var defaultMatcher = newPathMatcher(nil, nil)

func newPathMatcher(extraFiles, extraDirs []string) *pathMatcher {
	return &pathMatcher{
		files: compileGlobs(MergePatterns(builtinDangerousFiles, extraFiles)),
		dirs:  compileGlobs(MergePatterns(builtinDangerousDirs, extraDirs)),
	}
}

// MergePatterns appends extra entries to base, skipping blanks and
// case-insensitive duplicates. base is never modified.
func MergePatterns(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, p := range list {
			p = strings.TrimSpace(p)
			key := strings.ToLower(p)
			if p == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, p)
		}
	}
	return out
}

// globToRegexp converts a * / ? wildcard pattern into an anchored,
// case-insensitive regular expression.
func globToRegexp(glob string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("(?i)^")
	for _, r := range glob {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}

func compileGlobs(globs []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(globs))
	for _, g := range globs {
		out = append(out, globToRegexp(g))
	}
	return out
}

// segments splits a path on either separator, dropping empty, "." and ".."
// parts and a leading "~".
func segments(path string) []string {
	path = strings.ReplaceAll(path, `\`, "/")
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || p == "~" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func (m *pathMatcher) isDangerousFile(path string) bool {
	segs := segments(path)
	if len(segs) == 0 {
		return false
	}
	return matchAny(m.files, segs[len(segs)-1])
}

func (m *pathMatcher) isDangerousDir(path string) bool {
	for _, seg := range segments(path) {
		if matchAny(m.dirs, seg) {
			return true
		}
	}
	return false
}

func (m *pathMatcher) isPathDangerous(path string) bool {
	return m.isDangerousDir(path) || m.isDangerousFile(path)
}

// IsDangerousFile reports whether the final segment of path matches a
// built-in or extra dangerous file pattern.
func IsDangerousFile(path string, extra ...string) bool {
	if len(extra) == 0 {
		return defaultMatcher.isDangerousFile(path)
	}
	return newPathMatcher(extra, nil).isDangerousFile(path)
}

// IsDangerousDir reports whether any segment of path is a built-in or extra
// dangerous directory name. Matching is per segment, so
// "mynode_modules_backup/file.txt" does not match "node_modules".
func IsDangerousDir(path string, extra ...string) bool {
	if len(extra) == 0 {
		return defaultMatcher.isDangerousDir(path)
	}
	return newPathMatcher(nil, extra).isDangerousDir(path)
}

// IsPathDangerous combines the directory-segment and file-name checks using
// the built-in lists.
func IsPathDangerous(path string) bool {
	return defaultMatcher.isPathDangerous(path)
}

var (
	tokenPattern     = regexp.MustCompile("\"([^\"]*)\"|'([^']*)'|`([^`]*)`|(\\S+)")
	redirectPrefix   = regexp.MustCompile(`^[0-9]*&?[<>]+&?`)
	redirectOperator = regexp.MustCompile(`[0-9]*&?[<>]+&?`)
	assignmentPrefix = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)
	longOptionPrefix = regexp.MustCompile(`^--?[A-Za-z0-9][A-Za-z0-9-]*=`)
)

// tokenize splits a command into quote-aware tokens with the quotes removed.
func tokenize(command string) []string {
	matches := tokenPattern.FindAllStringSubmatch(command, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		for _, group := range m[1:] {
			if group != "" {
				tokens = append(tokens, group)
				break
			}
		}
	}
	return tokens
}

// pathCandidate strips redirection, assignment and --opt= prefixes from a
// token so the remainder can be tested as a path.
func pathCandidate(token string) string {
	token = redirectPrefix.ReplaceAllString(token, "")
	token = assignmentPrefix.ReplaceAllString(token, "")
	token = longOptionPrefix.ReplaceAllString(token, "")
	return strings.TrimSpace(token)
}

// findDangerousPath returns the first argument of command that refers to a
// dangerous file or directory. The command name itself is not checked, but a
// redirection glued to it ("cat<.env") is.
func (m *pathMatcher) findDangerousPath(command string) (string, bool) {
	tokens := tokenize(command)
	for i, tok := range tokens {
		for j, part := range redirectOperator.Split(tok, -1) {
			if i == 0 && j == 0 {
				continue
			}
			candidate := pathCandidate(part)
			if candidate == "" {
				continue
			}
			if m.isPathDangerous(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}
