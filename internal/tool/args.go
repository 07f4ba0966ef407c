package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Args is the tagged union of typed tool arguments, keyed by tool name.
type Args interface {
	ToolName() string
	Validate() error
}

type ReadFileArgs struct {
	Path   string `json:"path"`
	Offset int    `json:"offset,omitempty"` // 1-based line to start from
	Limit  int    `json:"limit,omitempty"`  // max lines, 0 = all
}

func (ReadFileArgs) ToolName() string { return NameReadFile }

func (a ReadFileArgs) Validate() error {
	if strings.TrimSpace(a.Path) == "" {
		return ErrPathRequired
	}
	if a.Offset < 0 {
		return ErrInvalidOffset
	}
	if a.Limit < 0 {
		return ErrInvalidLimit
	}
	return nil
}

func (a ReadFileArgs) String() string { return a.Path }

type ListDirectoryArgs struct {
	Path      string `json:"path,omitempty"`
	Recursive bool   `json:"recursive,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

func (ListDirectoryArgs) ToolName() string { return NameListDirectory }

func (a ListDirectoryArgs) Validate() error {
	if a.Limit < 0 {
		return ErrInvalidLimit
	}
	return nil
}

func (a ListDirectoryArgs) String() string {
	if a.Path == "" {
		return "."
	}
	return a.Path
}

type SearchFilesArgs struct {
	Pattern         string `json:"pattern"`
	Path            string `json:"path,omitempty"`
	Include         string `json:"include,omitempty"` // glob on the file name, e.g. "*.go"
	CaseInsensitive bool   `json:"case_insensitive,omitempty"`
	Limit           int    `json:"limit,omitempty"`
}

func (SearchFilesArgs) ToolName() string { return NameSearchFiles }

func (a SearchFilesArgs) Validate() error {
	if a.Pattern == "" {
		return ErrPatternRequired
	}
	if a.Limit < 0 {
		return ErrInvalidLimit
	}
	return nil
}

func (a SearchFilesArgs) String() string { return fmt.Sprintf("%q", a.Pattern) }

type WriteFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (WriteFileArgs) ToolName() string { return NameWriteFile }

func (a WriteFileArgs) Validate() error {
	if strings.TrimSpace(a.Path) == "" {
		return ErrPathRequired
	}
	return nil
}

func (a WriteFileArgs) String() string { return a.Path }

type EditOperation struct {
	Before               string `json:"before"`
	After                string `json:"after"`
	ExpectedReplacements int    `json:"expected_replacements,omitempty"`
}

type EditFileArgs struct {
	Path       string          `json:"path"`
	Operations []EditOperation `json:"operations"`
}

func (EditFileArgs) ToolName() string { return NameEditFile }

func (a EditFileArgs) Validate() error {
	if strings.TrimSpace(a.Path) == "" {
		return ErrPathRequired
	}
	if len(a.Operations) == 0 {
		return ErrOperationsRequired
	}
	for _, op := range a.Operations {
		if op.ExpectedReplacements < 0 {
			return ErrInvalidReplacements
		}
		if op.Before == op.After {
			return ErrEmptyEditOperation
		}
	}
	return nil
}

func (a EditFileArgs) String() string { return a.Path }

type DeleteFileArgs struct {
	Path string `json:"path"`
}

func (DeleteFileArgs) ToolName() string { return NameDeleteFile }

func (a DeleteFileArgs) Validate() error {
	if strings.TrimSpace(a.Path) == "" {
		return ErrPathRequired
	}
	return nil
}

func (a DeleteFileArgs) String() string { return a.Path }

type ExecuteCommandArgs struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"` // seconds, 0 = default
	Workdir string `json:"workdir,omitempty"`
}

func (ExecuteCommandArgs) ToolName() string { return NameExecuteCommand }

func (a ExecuteCommandArgs) Validate() error {
	if strings.TrimSpace(a.Command) == "" {
		return ErrCommandRequired
	}
	if a.Timeout < 0 {
		return ErrInvalidTimeout
	}
	return nil
}

func (a ExecuteCommandArgs) String() string { return a.Command }

func newArgs(name string) (Args, bool) {
	switch name {
	case NameReadFile:
		return &ReadFileArgs{}, true
	case NameListDirectory:
		return &ListDirectoryArgs{}, true
	case NameSearchFiles:
		return &SearchFilesArgs{}, true
	case NameWriteFile:
		return &WriteFileArgs{}, true
	case NameEditFile:
		return &EditFileArgs{}, true
	case NameDeleteFile:
		return &DeleteFileArgs{}, true
	case NameExecuteCommand:
		return &ExecuteCommandArgs{}, true
	default:
		return nil, false
	}
}

// ParseArgs decodes and validates model-issued arguments for the named tool.
// It never panics on malformed input; failures are returned as *ArgumentError
// (or ErrUnknownTool for unregistered names).
func ParseArgs(name string, raw json.RawMessage) (Args, error) {
	target, ok := newArgs(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	input, err := decodeInput(name, raw)
	if err != nil {
		return nil, &ArgumentError{Tool: name, Err: err}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return nil, &ArgumentError{Tool: name, Err: err}
	}
	if err := decoder.Decode(input); err != nil {
		return nil, &ArgumentError{Tool: name, Err: err}
	}

	args := deref(target)
	if err := args.Validate(); err != nil {
		return nil, &ArgumentError{Tool: name, Err: err}
	}
	return args, nil
}

// decodeInput turns raw call input into an argument map. Some models send the
// arguments as a JSON string (sometimes double-encoded); a bare string is
// accepted as the command for execute_command.
func decodeInput(name string, raw json.RawMessage) (map[string]any, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return map[string]any{}, nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}

	if s, ok := value.(string); ok {
		var inner any
		err := json.Unmarshal([]byte(s), &inner)
		switch {
		case err == nil:
			value = inner
		case name == NameExecuteCommand && !looksLikeJSON(s):
			return map[string]any{"command": s}, nil
		default:
			return nil, fmt.Errorf("malformed JSON: %w", err)
		}
	}

	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, ErrArgumentsNotObject
	}
}

// looksLikeJSON reports whether s was meant as an encoded object or array,
// so a truncated payload is never taken for a bare command.
func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

func deref(a Args) Args {
	switch v := a.(type) {
	case *ReadFileArgs:
		return *v
	case *ListDirectoryArgs:
		return *v
	case *SearchFilesArgs:
		return *v
	case *WriteFileArgs:
		return *v
	case *EditFileArgs:
		return *v
	case *DeleteFileArgs:
		return *v
	case *ExecuteCommandArgs:
		return *v
	default:
		return a
	}
}
