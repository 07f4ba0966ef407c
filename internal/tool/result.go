package tool

import (
	"encoding/json"
	"fmt"
)

// Result is the structured outcome of one tool call. It is serialized as JSON
// into the tool message the model sees.
//
// A result with UserRejected set is not an error: it ends the current model
// turn but leaves the session usable.
type Result struct {
	Success      bool   `json:"success"`
	Content      any    `json:"content,omitempty"`
	Error        string `json:"error,omitempty"`
	ExitCode     *int   `json:"exitCode,omitempty"`
	Signal       string `json:"signal,omitempty"`
	TimedOut     bool   `json:"timedOut,omitempty"`
	UserRejected bool   `json:"userRejected,omitempty"`
}

// OK builds a successful result.
func OK(content any) Result {
	return Result{Success: true, Content: content}
}

// Errorf builds a failed result with a formatted message.
func Errorf(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Rejected builds the result recorded when the user declines a tool call.
func Rejected(reason string) Result {
	return Result{Success: false, Error: reason, UserRejected: true}
}

// LLMContent encodes the result for the tool message.
func (r Result) LLMContent() string {
	data, err := json.Marshal(r)
	if err != nil {
		// Content holds something json cannot encode; fall back to its text form.
		fallback := Result{
			Success:      r.Success,
			Content:      fmt.Sprint(r.Content),
			Error:        r.Error,
			ExitCode:     r.ExitCode,
			Signal:       r.Signal,
			TimedOut:     r.TimedOut,
			UserRejected: r.UserRejected,
		}
		data, _ = json.Marshal(fallback)
	}
	return string(data)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
