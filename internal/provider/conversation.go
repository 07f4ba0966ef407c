package provider

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyConversation = errors.New("conversation is empty")
	ErrMissingSystem     = errors.New("conversation must start with a system message")
)

// UnresolvedToolCallError is returned by Validate when a tool message does
// not reference a call emitted by an earlier assistant message.
type UnresolvedToolCallError struct {
	Index      int
	ToolCallID string
}

func (e *UnresolvedToolCallError) Error() string {
	return fmt.Sprintf("message %d: tool_call_id %q does not match an earlier assistant tool call", e.Index, e.ToolCallID)
}

// Conversation is an append-only message sequence owned by a single session.
// It is not safe for concurrent mutation.
type Conversation struct {
	messages []Message
}

// NewConversation starts a conversation with the system prompt.
func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{
		messages: []Message{SystemMessage(systemPrompt)},
	}
}

// Append adds messages to the end of the conversation.
func (c *Conversation) Append(msgs ...Message) {
	c.messages = append(c.messages, msgs...)
}

// Messages returns a copy of the message sequence.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Last returns the final message, if any.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Clear truncates back to the leading system message(s). Never empties the
// conversation, and calling it repeatedly yields the same state.
func (c *Conversation) Clear() {
	keep := 0
	for keep < len(c.messages) && c.messages[keep].Role == RoleSystem {
		keep++
	}
	if keep == 0 {
		keep = min(1, len(c.messages))
	}
	c.messages = c.messages[:keep]
}

// Validate checks role ordering and that every tool message resolves to an
// earlier assistant tool call.
func (c *Conversation) Validate() error {
	return ValidateMessages(c.messages)
}

// ValidateMessages applies the conversation invariants to a message slice.
func ValidateMessages(msgs []Message) error {
	if len(msgs) == 0 {
		return ErrEmptyConversation
	}
	if msgs[0].Role != RoleSystem {
		return ErrMissingSystem
	}

	emitted := make(map[string]bool)
	for i, msg := range msgs {
		switch msg.Role {
		case RoleAssistant:
			for _, tc := range msg.ToolCalls {
				emitted[tc.ID] = true
			}
		case RoleTool:
			if msg.ToolCallID == "" || !emitted[msg.ToolCallID] {
				return &UnresolvedToolCallError{Index: i, ToolCallID: msg.ToolCallID}
			}
		case RoleSystem, RoleUser:
		default:
			return fmt.Errorf("message %d: unknown role %q", i, msg.Role)
		}
	}
	return nil
}
