package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/Cyclone1070/mini/internal/provider"
	"github.com/Cyclone1070/mini/internal/tool"
)

// toGeminiRequest converts a canonical request to Gemini contents and config.
func toGeminiRequest(req *provider.ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	prepared := provider.PrepareMessages(req.Messages)
	system, rest := provider.SplitSystem(prepared)

	config := &genai.GenerateContentConfig{
		SafetySettings: defaultSafetySettings(),
		Tools:          toGeminiTools(req.Tools),
	}
	temperature := float32(req.Temperature)
	config.Temperature = &temperature
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if text := strings.TrimSpace(strings.Join(system, "\n\n")); text != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(text)},
		}
	}

	return toGeminiContents(rest, prepared), config
}

// toGeminiContents converts non-system messages to Gemini contents.
// Consecutive contents with the same role are merged, so a batch of function
// responses travels in a single user turn. history is searched for the
// function name of each tool result.
func toGeminiContents(msgs []provider.Message, history []provider.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))

	for _, msg := range msgs {
		content := messageToGeminiContent(msg, history)
		if content == nil {
			continue
		}
		if n := len(contents); n > 0 && contents[n-1].Role == content.Role {
			contents[n-1].Parts = append(contents[n-1].Parts, content.Parts...)
			continue
		}
		contents = append(contents, content)
	}

	return contents
}

// messageToGeminiContent converts a single message to Gemini Content format.
func messageToGeminiContent(msg provider.Message, history []provider.Message) *genai.Content {
	// Determine role
	role := "user"
	if msg.Role == provider.RoleAssistant {
		role = "model"
	}

	parts := make([]*genai.Part, 0)

	switch msg.Role {
	case provider.RoleTool:
		parts = append(parts, &genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     provider.ToolNameForCall(history, msg.ToolCallID),
				Response: toResponseMap(msg.Content),
			},
		})
	default:
		// Add text content if present
		if msg.Content != "" {
			parts = append(parts, genai.NewPartFromText(msg.Content))
		}
		// Add tool calls if present (model messages)
		for _, tc := range msg.ToolCalls {
			args, err := tc.InputMap()
			if err != nil {
				args = map[string]any{}
			}
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: args,
				},
				ThoughtSignature: tc.Signature,
			})
		}
	}

	// Skip empty messages
	if len(parts) == 0 {
		return nil
	}

	return &genai.Content{
		Role:  role,
		Parts: parts,
	}
}

// toResponseMap uses a JSON object result as the function response directly
// and wraps anything else under "output".
func toResponseMap(content string) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(content), &m); err == nil && m != nil {
		return m
	}
	return map[string]any{"output": content}
}

// defaultSafetySettings returns safety settings with BLOCK_NONE for all categories.
func defaultSafetySettings() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: genai.HarmBlockThresholdOff,
		},
		{
			Category:  genai.HarmCategoryDangerousContent,
			Threshold: genai.HarmBlockThresholdOff,
		},
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: genai.HarmBlockThresholdOff,
		},
		{
			Category:  genai.HarmCategorySexuallyExplicit,
			Threshold: genai.HarmBlockThresholdOff,
		},
	}
}

// toGeminiTools converts tool declarations to Gemini tools.
func toGeminiTools(decls []tool.Declaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}

	functionDeclarations := make([]*genai.FunctionDeclaration, 0, len(decls))

	for _, d := range decls {
		fd := &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
		}

		if d.Parameters != nil {
			fd.Parameters = toGeminiSchema(d.Parameters)
		}

		functionDeclarations = append(functionDeclarations, fd)
	}

	return []*genai.Tool{
		{FunctionDeclarations: functionDeclarations},
	}
}

// toGeminiSchema converts a tool schema to a Gemini Schema, recursing into
// properties and array items.
func toGeminiSchema(s *tool.Schema) *genai.Schema {
	schema := &genai.Schema{
		Type:        toGeminiType(s.Type),
		Description: s.Description,
	}

	if len(s.Properties) > 0 {
		schema.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			schema.Properties[name] = toGeminiSchema(prop)
		}
	}
	if len(s.Enum) > 0 {
		schema.Enum = s.Enum
	}
	if s.Items != nil {
		schema.Items = toGeminiSchema(s.Items)
	}
	if len(s.Required) > 0 {
		schema.Required = s.Required
	}

	return schema
}

// toGeminiType converts a schema type to Gemini Type.
func toGeminiType(t tool.Type) genai.Type {
	switch t {
	case tool.TypeString:
		return genai.TypeString
	case tool.TypeNumber:
		return genai.TypeNumber
	case tool.TypeInteger:
		return genai.TypeInteger
	case tool.TypeBoolean:
		return genai.TypeBoolean
	case tool.TypeArray:
		return genai.TypeArray
	case tool.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// fromGeminiResponse converts a Gemini response to a canonical message.
func fromGeminiResponse(resp *genai.GenerateContentResponse) (*provider.ChatResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, &provider.ProviderError{
				Code:    provider.ErrorCodeContentBlocked,
				Message: fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason),
			}
		}
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeInvalidResponse,
			Message: "no candidates in response",
		}
	}

	candidate := resp.Candidates[0]

	// Check finish reason
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeContentBlocked,
			Message: "content blocked by safety filters",
		}
	}

	msg := provider.Message{Role: provider.RoleAssistant}
	var text, thoughts []string
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				msg.ToolCalls = append(msg.ToolCalls, toToolCall(part))
			case part.Thought:
				thoughts = append(thoughts, part.Text)
			case part.Text != "":
				text = append(text, part.Text)
			}
		}
	}
	msg.Content = strings.Join(text, "")
	msg.Reasoning = strings.Join(thoughts, "")

	if candidate.FinishReason == genai.FinishReasonMaxTokens && msg.Content == "" && len(msg.ToolCalls) == 0 {
		return nil, &provider.ProviderError{
			Code:    provider.ErrorCodeContextLength,
			Message: "response truncated due to max tokens",
		}
	}

	return &provider.ChatResponse{
		Message: msg,
		Usage:   buildUsage(resp.UsageMetadata),
	}, nil
}

// toToolCall converts a function call part. Gemini may omit call IDs, so one
// is generated to keep results addressable.
func toToolCall(part *genai.Part) provider.ToolCall {
	fc := part.FunctionCall
	id := fc.ID
	if id == "" {
		id = "call_" + uuid.NewString()
	}
	args := fc.Args
	if args == nil {
		args = map[string]any{}
	}
	input, err := json.Marshal(args)
	if err != nil {
		input = []byte(`{}`)
	}
	return provider.ToolCall{
		ID:        id,
		Name:      fc.Name,
		Input:     input,
		Signature: part.ThoughtSignature,
	}
}

// buildUsage builds usage from response metadata.
func buildUsage(usage *genai.GenerateContentResponseUsageMetadata) *provider.Usage {
	if usage == nil {
		return nil
	}
	return &provider.Usage{
		PromptTokens:     int(usage.PromptTokenCount),
		CompletionTokens: int(usage.CandidatesTokenCount),
		TotalTokens:      int(usage.TotalTokenCount),
	}
}

// mapGeminiError maps Gemini API errors to provider errors.
func mapGeminiError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled: %w", ctx.Err())
	}

	// Check if it's an APIError
	if apiErr, ok := asAPIError(err); ok {
		switch apiErr.Code {
		case 401, 403:
			return &provider.ProviderError{
				Code:       provider.ErrorCodeAuth,
				Message:    "authentication failed",
				StatusCode: apiErr.Code,
				Underlying: err,
				Retryable:  false,
			}
		case 429:
			return &provider.ProviderError{
				Code:       provider.ErrorCodeRateLimit,
				Message:    "rate limit exceeded",
				StatusCode: apiErr.Code,
				Underlying: err,
				Retryable:  true,
				RetryAfter: parseRetryAfter(apiErr),
			}
		case 400:
			code := provider.ErrorCodeInvalidRequest
			if strings.Contains(strings.ToLower(apiErr.Message), "token count") {
				code = provider.ErrorCodeContextLength
			}
			return &provider.ProviderError{
				Code:       code,
				Message:    fmt.Sprintf("invalid request: %s", apiErr.Message),
				StatusCode: apiErr.Code,
				Underlying: err,
				Retryable:  false,
			}
		case 500, 502, 503, 504:
			return &provider.ProviderError{
				Code:       provider.ErrorCodeUnavailable,
				Message:    "service unavailable",
				StatusCode: apiErr.Code,
				Underlying: err,
				Retryable:  true,
			}
		default:
			return &provider.ProviderError{
				Code:       provider.ErrorCodeNetwork,
				Message:    fmt.Sprintf("API error: %s", apiErr.Message),
				StatusCode: apiErr.Code,
				Underlying: err,
				Retryable:  true,
			}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &provider.ProviderError{
			Code:       provider.ErrorCodeTimeout,
			Message:    "request timed out",
			Underlying: err,
			Retryable:  true,
		}
	}

	// Generic network error
	return &provider.ProviderError{
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error",
		Underlying: err,
		Retryable:  true,
	}
}

// asAPIError matches both value and pointer forms of genai.APIError.
func asAPIError(err error) (*genai.APIError, bool) {
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr, true
	}
	var val genai.APIError
	if errors.As(err, &val) {
		return &val, true
	}
	return nil, false
}

// parseRetryAfter reads the retryDelay of a google.rpc.RetryInfo detail.
func parseRetryAfter(apiErr *genai.APIError) *time.Duration {
	for _, detail := range apiErr.Details {
		typ, _ := detail["@type"].(string)
		if !strings.HasSuffix(typ, "RetryInfo") {
			continue
		}
		delay, _ := detail["retryDelay"].(string)
		if d, err := time.ParseDuration(delay); err == nil {
			return &d
		}
	}
	return nil
}
