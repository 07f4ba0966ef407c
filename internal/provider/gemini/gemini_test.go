package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/Cyclone1070/mini/internal/provider"
	"github.com/Cyclone1070/mini/internal/tool"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func TestCreateChatCompletion_TextResponse(t *testing.T) {
	var gotModel string
	var gotConfig *genai.GenerateContentConfig
	mockClient := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotModel = model
			gotConfig = config
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: &genai.Content{Parts: []*genai.Part{
						{Text: "planning the answer", Thought: true},
						{Text: "Hello there!"},
					}},
					FinishReason: genai.FinishReasonStop,
				}},
				UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
					PromptTokenCount:     10,
					CandidatesTokenCount: 5,
					TotalTokenCount:      15,
				},
			}, nil
		},
	}

	resp, err := New(mockClient).CreateChatCompletion(context.Background(), &provider.ChatRequest{
		Model:       "gemini-2.5-flash",
		Temperature: 0.5,
		MaxTokens:   1024,
		Messages:    []provider.Message{provider.SystemMessage("be brief"), provider.UserMessage("Hello")},
	})

	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", gotModel)
	assert.Equal(t, "Hello there!", resp.Message.Content)
	assert.Equal(t, "planning the answer", resp.Message.Reasoning)
	assert.Equal(t, &provider.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, resp.Usage)
	assert.NotEmpty(t, resp.RawRequest)

	require.NotNil(t, gotConfig.SystemInstruction)
	assert.Equal(t, "be brief", gotConfig.SystemInstruction.Parts[0].Text)
	require.NotNil(t, gotConfig.Temperature)
	assert.InDelta(t, 0.5, *gotConfig.Temperature, 1e-6)
	assert.Equal(t, int32(1024), gotConfig.MaxOutputTokens)
	assert.Len(t, gotConfig.SafetySettings, 4)
	assert.Nil(t, gotConfig.Tools)
}

func TestCreateChatCompletion_ToolCall(t *testing.T) {
	mockClient := &MockGeminiClient{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: &genai.Content{Parts: []*genai.Part{
						{
							FunctionCall:     &genai.FunctionCall{Name: "read_file", Args: map[string]any{"path": "foo.txt"}},
							ThoughtSignature: []byte("sig-1"),
						},
						{FunctionCall: &genai.FunctionCall{ID: "given", Name: "list_directory"}},
					}},
					FinishReason: genai.FinishReasonStop,
				}},
			}, nil
		},
	}

	resp, err := New(mockClient).CreateChatCompletion(context.Background(), &provider.ChatRequest{
		Model:    "gemini-2.5-flash",
		Messages: []provider.Message{provider.SystemMessage("s"), provider.UserMessage("Read foo.txt")},
	})

	require.NoError(t, err)
	require.Len(t, resp.Message.ToolCalls, 2)
	first := resp.Message.ToolCalls[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "read_file", first.Name)
	assert.JSONEq(t, `{"path":"foo.txt"}`, string(first.Input))
	assert.Equal(t, []byte("sig-1"), first.Signature)
	assert.Equal(t, "given", resp.Message.ToolCalls[1].ID)
	assert.JSONEq(t, `{}`, string(resp.Message.ToolCalls[1].Input))
	assert.Nil(t, resp.Usage)
}

func TestToGeminiRequest_History(t *testing.T) {
	history := []provider.Message{
		provider.SystemMessage("s"),
		provider.UserMessage("inspect"),
		{
			Role:    provider.RoleAssistant,
			Content: "Looking.",
			ToolCalls: []provider.ToolCall{
				{ID: "c1", Name: "read_file", Input: json.RawMessage(`{"path":"a.go"}`), Signature: []byte("sig")},
				{ID: "c2", Name: "execute_command", Input: json.RawMessage(`{"command":"ls"}`)},
			},
		},
		provider.ToolMessage("c1", `{"success":true,"content":"package a"}`),
	}

	contents, config := toGeminiRequest(&provider.ChatRequest{
		Messages: history,
		Tools: []tool.Declaration{{
			Name: "read_file",
			Parameters: &tool.Schema{
				Type:     tool.TypeObject,
				Required: []string{"path"},
				Properties: map[string]*tool.Schema{
					"path": {Type: tool.TypeString, Description: "file path"},
					"tags": {Type: tool.TypeArray, Items: &tool.Schema{Type: tool.TypeString}},
				},
			},
		}},
	})

	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)

	model := contents[1]
	assert.Equal(t, "model", model.Role)
	require.Len(t, model.Parts, 3)
	assert.Equal(t, "Looking.", model.Parts[0].Text)
	assert.Equal(t, "c1", model.Parts[1].FunctionCall.ID)
	assert.Equal(t, []byte("sig"), model.Parts[1].ThoughtSignature)
	assert.Equal(t, map[string]any{"command": "ls"}, model.Parts[2].FunctionCall.Args)

	// both results share one user turn; c2 never ran and is synthesized
	results := contents[2]
	assert.Equal(t, "user", results.Role)
	require.Len(t, results.Parts, 2)
	assert.Equal(t, "read_file", results.Parts[0].FunctionResponse.Name)
	assert.Equal(t, "package a", results.Parts[0].FunctionResponse.Response["content"])
	assert.Equal(t, "execute_command", results.Parts[1].FunctionResponse.Name)
	assert.Equal(t, false, results.Parts[1].FunctionResponse.Response["success"])

	require.Len(t, config.Tools, 1)
	params := config.Tools[0].FunctionDeclarations[0].Parameters
	assert.Equal(t, genai.TypeObject, params.Type)
	assert.Equal(t, []string{"path"}, params.Required)
	assert.Equal(t, genai.TypeArray, params.Properties["tags"].Type)
	assert.Equal(t, genai.TypeString, params.Properties["tags"].Items.Type)
}

func TestToResponseMap(t *testing.T) {
	assert.Equal(t, map[string]any{"ok": true}, toResponseMap(`{"ok":true}`))
	assert.Equal(t, map[string]any{"output": "plain"}, toResponseMap("plain"))
	assert.Equal(t, map[string]any{"output": "[1,2]"}, toResponseMap("[1,2]"))
}

func TestFromGeminiResponse_Unhappy(t *testing.T) {
	t.Run("no candidates", func(t *testing.T) {
		_, err := fromGeminiResponse(&genai.GenerateContentResponse{})
		assert.ErrorIs(t, err, provider.ErrInvalidResponse)
	})

	t.Run("safety", func(t *testing.T) {
		_, err := fromGeminiResponse(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		})
		assert.ErrorIs(t, err, provider.ErrContentBlocked)
	})

	t.Run("empty max tokens", func(t *testing.T) {
		_, err := fromGeminiResponse(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonMaxTokens, Content: &genai.Content{}}},
		})
		assert.ErrorIs(t, err, provider.ErrContextLengthExceeded)
	})

	t.Run("partial max tokens keeps text", func(t *testing.T) {
		resp := textResponse("partial")
		resp.Candidates[0].FinishReason = genai.FinishReasonMaxTokens
		out, err := fromGeminiResponse(resp)
		require.NoError(t, err)
		assert.Equal(t, "partial", out.Message.Content)
	})
}

func TestMapGeminiError(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		err       error
		sentinel  error
		retryable bool
	}{
		{"auth", &genai.APIError{Code: 401, Message: "API key not valid"}, provider.ErrAuthentication, false},
		{"forbidden", &genai.APIError{Code: 403}, provider.ErrAuthentication, false},
		{"rate limit", &genai.APIError{Code: 429, Message: "quota"}, provider.ErrRateLimit, true},
		{"bad request", &genai.APIError{Code: 400, Message: "bad field"}, provider.ErrInvalidRequest, false},
		{"too long", &genai.APIError{Code: 400, Message: "input token count exceeds the maximum"}, provider.ErrContextLengthExceeded, false},
		{"unavailable", &genai.APIError{Code: 503}, provider.ErrServiceUnavailable, true},
		{"value form", genai.APIError{Code: 500}, provider.ErrServiceUnavailable, true},
		{"deadline", context.DeadlineExceeded, provider.ErrTimeout, true},
		{"other", errors.New("connection reset"), provider.ErrNetwork, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapGeminiError(ctx, tt.err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.retryable, provider.IsRetryable(err))
		})
	}
}

func TestMapGeminiError_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mapGeminiError(ctx, errors.New("transport closed"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, provider.IsRetryable(err))
}

func TestMapGeminiError_RetryDelay(t *testing.T) {
	apiErr := &genai.APIError{
		Code: 429,
		Details: []map[string]any{
			{"@type": "type.googleapis.com/google.rpc.QuotaFailure"},
			{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "12s"},
		},
	}

	err := mapGeminiError(context.Background(), apiErr)

	d := provider.GetRetryAfter(err)
	require.NotNil(t, d)
	assert.Equal(t, 12*time.Second, *d)
}
