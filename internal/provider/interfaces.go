package provider

import (
	"context"

	"github.com/Cyclone1070/mini/internal/tool"
)

// Provider translates canonical chat requests to one backend's wire protocol.
// Implementations are stateless with respect to the conversation and may be
// shared between sessions.
type Provider interface {
	// CreateChatCompletion sends the conversation and tool declarations and
	// returns the model's next message.
	CreateChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name identifies the wire protocol ("openai", "anthropic", "gemini").
	Name() string
}

// ChatRequest is the protocol-agnostic input of a completion call.
type ChatRequest struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Messages    []Message
	Tools       []tool.Declaration
}

// ChatResponse is the protocol-agnostic output of a completion call.
type ChatResponse struct {
	Message Message
	Usage   *Usage

	// RawRequest is the encoded wire payload, kept for debug artifacts.
	RawRequest []byte
}
