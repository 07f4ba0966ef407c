package provider

import (
	"encoding/json"
)

// Role tags a message in the conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is the canonical conversation entry every adapter speaks.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Reasoning carries model thinking text when the backend exposes it.
	Reasoning string `json:"reasoning,omitempty"`

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID is set on tool messages and references a ToolCall.ID
	// emitted by an earlier assistant message.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-issued request to run a tool. Identity is the ID.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`

	// Signature is an opaque provider token that must be echoed back
	// unmodified on the next request (Gemini thoughtSignature).
	Signature []byte `json:"signature,omitempty"`
}

// Usage is normalized token accounting reported by every adapter.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage report.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// InputMap decodes the call input into a generic map.
// Returns an empty map for empty input.
func (tc ToolCall) InputMap() (map[string]any, error) {
	if len(tc.Input) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(tc.Input, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// SystemMessage builds a system note.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ToolMessage builds a tool result message for the given call.
func ToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Content: content}
}
