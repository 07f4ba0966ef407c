// Package openai adapts the canonical conversation to the OpenAI
// chat-completions protocol. It also serves OpenAI-compatible backends such
// as Groq and DeepSeek through a configurable base URL.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Cyclone1070/mini/internal/provider"
	"github.com/Cyclone1070/mini/internal/provider/transport"
	"github.com/Cyclone1070/mini/internal/tool"
)

const (
	defaultBaseURL  = "https://api.openai.com/v1"
	defaultEndpoint = "/chat/completions"
)

type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Provider implements provider.Provider for chat-completions endpoints.
type Provider struct {
	apiKey      string
	endpointURL string
	client      *transport.Client
}

var _ provider.Provider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("new openai provider: api key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		apiKey:      apiKey,
		endpointURL: strings.TrimRight(baseURL, "/") + defaultEndpoint,
		client:      transport.New(cfg.HTTPClient, cfg.Logger),
	}, nil
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) CreateChatCompletion(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	payload := buildRequest(req)
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai request encode: %w", err)
	}

	var parsed chatCompletionResponse
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if err := p.client.PostJSON(ctx, p.endpointURL, headers, encoded, &parsed); err != nil {
		return nil, err
	}

	resp, err := fromResponse(parsed)
	if err != nil {
		return nil, err
	}
	resp.RawRequest = encoded
	return resp, nil
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
}

type chatCompletionResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatMessage struct {
	Role             string         `json:"role"`
	Content          string         `json:"content"`
	ReasoningContent string         `json:"reasoning_content,omitempty"`
	Reasoning        string         `json:"reasoning,omitempty"`
	ToolCallID       string         `json:"tool_call_id,omitempty"`
	ToolCalls        []chatToolCall `json:"tool_calls,omitempty"`
}

type chatTool struct {
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Parameters  *tool.Schema `json:"parameters,omitempty"`
}

type chatToolCall struct {
	ID       string               `json:"id"`
	Type     string               `json:"type"`
	Function chatToolCallFunction `json:"function"`
}

type chatToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func buildRequest(req *provider.ChatRequest) chatCompletionRequest {
	msgs := provider.PrepareMessages(req.Messages)
	messages := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		messages = append(messages, toChatMessage(m))
	}

	tools := make([]chatTool, 0, len(req.Tools))
	for _, d := range req.Tools {
		tools = append(tools, chatTool{
			Type: "function",
			Function: chatToolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}

	return chatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages:    messages,
		Tools:       tools,
	}
}

func toChatMessage(m provider.Message) chatMessage {
	out := chatMessage{
		Role:       string(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, chatToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: chatToolCallFunction{
				Name:      tc.Name,
				Arguments: encodeArguments(tc.Input),
			},
		})
	}
	return out
}

// encodeArguments renders call input as the JSON string the protocol
// expects. Input that was kept as a raw string because it never parsed is
// sent back verbatim.
func encodeArguments(input json.RawMessage) string {
	if len(input) == 0 {
		return "{}"
	}
	var raw string
	if err := json.Unmarshal(input, &raw); err == nil {
		return raw
	}
	if !json.Valid(input) {
		return "{}"
	}
	return string(input)
}

// decodeArguments is the inverse of encodeArguments: parseable arguments
// become the input object, anything else is preserved as a JSON string.
func decodeArguments(arguments string) json.RawMessage {
	trimmed := strings.TrimSpace(arguments)
	if trimmed == "" {
		return json.RawMessage(`{}`)
	}
	if json.Valid([]byte(trimmed)) {
		var probe any
		if err := json.Unmarshal([]byte(trimmed), &probe); err == nil {
			if _, isString := probe.(string); !isString {
				return json.RawMessage(trimmed)
			}
		}
	}
	quoted, _ := json.Marshal(arguments)
	return quoted
}

func fromResponse(parsed chatCompletionResponse) (*provider.ChatResponse, error) {
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeInvalidRequest,
			Message: parsed.Error.Message,
		}
	}
	if len(parsed.Choices) == 0 {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeInvalidResponse,
			Message: "no choices in response",
		}
	}

	choice := parsed.Choices[0].Message
	msg := provider.Message{
		Role:      provider.RoleAssistant,
		Content:   choice.Content,
		Reasoning: choice.ReasoningContent,
	}
	if msg.Reasoning == "" {
		msg.Reasoning = choice.Reasoning
	}
	for _, tc := range choice.ToolCalls {
		if tc.Type != "" && tc.Type != "function" {
			continue
		}
		msg.ToolCalls = append(msg.ToolCalls, provider.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: decodeArguments(tc.Function.Arguments),
		})
	}

	resp := &provider.ChatResponse{Message: msg}
	if parsed.Usage != nil {
		resp.Usage = &provider.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	return resp, nil
}
