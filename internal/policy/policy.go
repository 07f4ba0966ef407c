// Package policy classifies shell commands and file paths as auto-approved,
// approval-required or denied. Engines are immutable after construction and
// safe to share between sessions.
package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Cyclone1070/mini/internal/config"
)

// Verdict is the Auto/Ask/Deny classification of a proposed command.
type Verdict string

const (
	VerdictAuto Verdict = "auto"
	VerdictAsk  Verdict = "ask"
	VerdictDeny Verdict = "deny"
)

// Decision is a verdict plus the rule that produced it.
type Decision struct {
	Verdict Verdict
	Reason  string
}

// OperationCheck is the allow/deny answer for a proposed operation.
type OperationCheck struct {
	Allowed bool
	Reason  string
}

// Engine evaluates commands against built-in rules merged with user rules.
type Engine struct {
	denyPatterns  []*regexp.Regexp
	autoCommands  []string
	paths         *pathMatcher
	defaultAction Verdict
}

// New compiles an engine from the policy section of the config.
// User deny patterns must be valid regular expressions.
func New(cfg config.PolicyConfig) (*Engine, error) {
	deny := make([]*regexp.Regexp, 0, len(builtinDenyPatterns)+len(cfg.DenyPatterns))
	deny = append(deny, builtinDenyPatterns...)
	for _, p := range cfg.DenyPatterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("policy: invalid deny pattern %q: %w", p, err)
		}
		deny = append(deny, re)
	}

	return &Engine{
		denyPatterns:  deny,
		autoCommands:  MergePatterns(builtinAutoCommands, cfg.AutoCommands),
		paths:         newPathMatcher(cfg.DangerousFiles, cfg.DangerousDirs),
		defaultAction: defaultAction(cfg.DefaultAction),
	}, nil
}

// Default returns an engine using only the built-in rules.
func Default() *Engine {
	e, _ := New(config.DefaultConfig().Policy)
	return e
}

func defaultAction(action string) Verdict {
	if strings.EqualFold(strings.TrimSpace(action), string(VerdictDeny)) {
		return VerdictDeny
	}
	return VerdictAsk
}

// CheckPolicy evaluates command against the built-in rules merged with cfg.
// Invalid user deny patterns are skipped.
func CheckPolicy(command string, cfg config.PolicyConfig) Verdict {
	e, err := New(cfg)
	if err != nil {
		valid := cfg
		valid.DenyPatterns = nil
		for _, p := range cfg.DenyPatterns {
			if _, err := regexp.Compile(p); err == nil {
				valid.DenyPatterns = append(valid.DenyPatterns, p)
			}
		}
		e, _ = New(valid)
	}
	return e.CheckCommand(command)
}

// CheckCommand returns the verdict for command.
func (e *Engine) CheckCommand(command string) Verdict {
	return e.Evaluate(command).Verdict
}

// Evaluate classifies command. The first matching rule wins:
//  1. deny pattern (built-in or user)
//  2. an argument naming a dangerous file or directory
//  3. shell metacharacters force Ask
//  4. auto-approved command prefix
//  5. configured default action
func (e *Engine) Evaluate(command string) Decision {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return Decision{Verdict: VerdictDeny, Reason: "empty command"}
	}

	for _, re := range e.denyPatterns {
		if re.MatchString(cmd) {
			return Decision{Verdict: VerdictDeny, Reason: fmt.Sprintf("matches deny pattern %q", re.String())}
		}
	}

	if path, ok := e.paths.findDangerousPath(cmd); ok {
		return Decision{Verdict: VerdictDeny, Reason: fmt.Sprintf("references protected path %q", path)}
	}

	if forceAskPattern.MatchString(cmd) {
		return Decision{Verdict: VerdictAsk, Reason: "contains shell metacharacters"}
	}

	for _, auto := range e.autoCommands {
		if cmd == auto || strings.HasPrefix(cmd, auto+" ") {
			return Decision{Verdict: VerdictAuto, Reason: fmt.Sprintf("read-only command %q", auto)}
		}
	}

	return Decision{Verdict: e.defaultAction, Reason: "default action"}
}

// IsPathDangerous applies the engine's merged path lists.
func (e *Engine) IsPathDangerous(path string) bool {
	return e.paths.isPathDangerous(path)
}

// ValidateCommandOperation reports whether command may run at all, with or
// without approval.
func (e *Engine) ValidateCommandOperation(command string) OperationCheck {
	d := e.Evaluate(command)
	if d.Verdict == VerdictDeny {
		return OperationCheck{Allowed: false, Reason: d.Reason}
	}
	return OperationCheck{Allowed: true}
}

// ValidateFileOperation rejects file tool access to protected paths.
func (e *Engine) ValidateFileOperation(path string) OperationCheck {
	if strings.TrimSpace(path) == "" {
		return OperationCheck{Allowed: false, Reason: "empty path"}
	}
	if e.paths.isPathDangerous(path) {
		return OperationCheck{Allowed: false, Reason: fmt.Sprintf("protected path %q", path)}
	}
	return OperationCheck{Allowed: true}
}
