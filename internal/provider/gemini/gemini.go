// Package gemini adapts the canonical conversation to the Gemini
// generateContent protocol using the official SDK.
package gemini

import (
	"context"
	"encoding/json"

	"github.com/Cyclone1070/mini/internal/provider"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client GeminiClient
}

var _ provider.Provider = (*GeminiProvider)(nil)

// New creates a new GeminiProvider with the specified client.
func New(client GeminiClient) *GeminiProvider {
	return &GeminiProvider{client: client}
}

func (p *GeminiProvider) Name() string { return "gemini" }

// CreateChatCompletion sends the conversation to the Gemini API and returns
// the model's next message.
func (p *GeminiProvider) CreateChatCompletion(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	// Convert canonical types to Gemini types
	contents, config := toGeminiRequest(req)

	// Call Gemini API
	resp, err := p.client.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, mapGeminiError(ctx, err)
	}

	// Convert response
	out, err := fromGeminiResponse(resp)
	if err != nil {
		return nil, err
	}
	out.RawRequest, _ = json.Marshal(map[string]any{
		"model":    req.Model,
		"contents": contents,
		"config":   config,
	})
	return out, nil
}
