// Package anthropic adapts the canonical conversation to the Anthropic
// Messages protocol.
package anthropic

import (
	"bytes"
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
	defaultBaseURL    = "https://api.anthropic.com"
	defaultMaxTokens  = 4096
	apiVersion        = "2023-06-01"
	promptCachingBeta = "prompt-caching-2024-07-31"
)

type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Provider implements provider.Provider for the Messages API.
type Provider struct {
	apiKey      string
	endpointURL string
	client      *transport.Client
}

var _ provider.Provider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("new anthropic provider: api key is required")
	}
	return &Provider{
		apiKey:      apiKey,
		endpointURL: normalizeBaseURL(cfg.BaseURL) + "/v1/messages",
		client:      transport.New(cfg.HTTPClient, cfg.Logger),
	}, nil
}

// normalizeBaseURL accepts base URLs with or without a trailing /v1.
func normalizeBaseURL(baseURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return defaultBaseURL
	}
	return strings.TrimSuffix(trimmed, "/v1")
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) CreateChatCompletion(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	payload, err := buildRequest(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("anthropic request encode: %w", err)
	}

	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": apiVersion,
		"anthropic-beta":    promptCachingBeta,
	}
	var parsed messagesResponse
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

type cacheControl struct {
	Type string `json:"type"`
}

var ephemeral = &cacheControl{Type: "ephemeral"}

type contentBlock struct {
	Type         string          `json:"type"`
	Text         string          `json:"text,omitempty"`
	Thinking     string          `json:"thinking,omitempty"`
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`
	ToolUseID    string          `json:"tool_use_id,omitempty"`
	Content      string          `json:"content,omitempty"`
	CacheControl *cacheControl   `json:"cache_control,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type toolDefinition struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	InputSchema *tool.Schema `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
}

type messagesRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
	System      []contentBlock   `json:"system,omitempty"`
	Messages    []message        `json:"messages"`
	Tools       []toolDefinition `json:"tools,omitempty"`
	ToolChoice  *toolChoice      `json:"tool_choice,omitempty"`
}

type messagesResponse struct {
	Type       string         `json:"type"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func buildRequest(req *provider.ChatRequest) (messagesRequest, error) {
	systemParts, rest := provider.SplitSystem(provider.PrepareMessages(req.Messages))

	var system []contentBlock
	if text := strings.TrimSpace(strings.Join(systemParts, "\n\n")); text != "" {
		system = append(system, contentBlock{Type: "text", Text: text, CacheControl: ephemeral})
	}

	out := messagesRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    toMessages(rest),
	}
	if out.MaxTokens <= 0 {
		// max_tokens is mandatory on this protocol
		out.MaxTokens = defaultMaxTokens
	}

	if len(req.Tools) > 0 {
		summary, err := toolsSummary(req.Tools, len(system) > 0)
		if err != nil {
			return messagesRequest{}, err
		}
		system = append(system, contentBlock{Type: "text", Text: summary, CacheControl: ephemeral})
		for _, d := range req.Tools {
			schema := d.Parameters
			if schema == nil {
				schema = &tool.Schema{Type: tool.TypeObject}
			}
			out.Tools = append(out.Tools, toolDefinition{Name: d.Name, Description: d.Description, InputSchema: schema})
		}
		out.ToolChoice = &toolChoice{Type: "auto"}
	}
	out.System = system
	return out, nil
}

func toolsSummary(tools []tool.Declaration, hasSystem bool) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tools); err != nil {
		return "", err
	}
	summary := "## Available Tools\n\n" + strings.TrimSpace(buf.String())
	if hasSystem {
		summary = "\n\n" + summary
	}
	return summary, nil
}

// toMessages converts non-system messages to wire messages. Tool results
// travel as user tool_result blocks, consecutive same-role messages are
// merged to keep roles alternating, and the last non-assistant message is
// marked cacheable.
func toMessages(msgs []provider.Message) []message {
	lastCacheable := -1
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != provider.RoleAssistant {
			lastCacheable = i
			break
		}
	}

	out := make([]message, 0, len(msgs))
	for i, m := range msgs {
		role := "user"
		var blocks []contentBlock
		switch m.Role {
		case provider.RoleTool:
			blocks = append(blocks, contentBlock{Type: "tool_result", ToolUseID: m.ToolCallID, Content: m.Content})
		case provider.RoleAssistant:
			role = "assistant"
			if m.Content != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, contentBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: objectInput(tc.Input)})
			}
		default:
			if m.Content != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: m.Content})
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if i == lastCacheable {
			blocks[len(blocks)-1].CacheControl = ephemeral
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			continue
		}
		out = append(out, message{Role: role, Content: blocks})
	}
	return out
}

// objectInput returns input when it is a JSON object and {} otherwise;
// tool_use input must be an object.
func objectInput(input json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed) {
		return trimmed
	}
	return json.RawMessage(`{}`)
}

func fromResponse(parsed messagesResponse) (*provider.ChatResponse, error) {
	if parsed.Type == "error" || parsed.Error != nil {
		msg := "unknown error"
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return nil, &provider.ProviderError{Code: provider.ErrorCodeInvalidRequest, Message: msg}
	}

	var text, thinking []string
	msg := provider.Message{Role: provider.RoleAssistant}
	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			text = append(text, block.Text)
		case "thinking":
			thinking = append(thinking, block.Thinking)
		case "tool_use":
			input := block.Input
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			msg.ToolCalls = append(msg.ToolCalls, provider.ToolCall{ID: block.ID, Name: block.Name, Input: input})
		}
	}
	msg.Content = strings.Join(text, "")
	msg.Reasoning = strings.Join(thinking, "")

	resp := &provider.ChatResponse{Message: msg}
	if parsed.Usage != nil {
		resp.Usage = &provider.Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		}
	}
	return resp, nil
}
