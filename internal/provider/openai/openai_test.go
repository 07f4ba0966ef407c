package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/mini/internal/provider"
	"github.com/Cyclone1070/mini/internal/tool"
)

func newTestServer(t *testing.T, response string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		if capture != nil {
			assert.NoError(t, json.Unmarshal(body, capture))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
}

func newTestProvider(t *testing.T, url string) *Provider {
	t.Helper()
	p, err := New(Config{APIKey: "sk-test", BaseURL: url + "/v1/"})
	require.NoError(t, err)
	return p
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{APIKey: "  "})
	assert.Error(t, err)
}

func TestCreateChatCompletion_TextResponse(t *testing.T) {
	var captured map[string]any
	srv := newTestServer(t, `{
		"choices": [{"message": {"role": "assistant", "content": "Hello!", "reasoning_content": "greet back"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
	}`, &captured)
	defer srv.Close()

	resp, err := newTestProvider(t, srv.URL).CreateChatCompletion(context.Background(), &provider.ChatRequest{
		Model:       "gpt-4.1",
		Temperature: 0.7,
		MaxTokens:   4096,
		Messages: []provider.Message{
			provider.SystemMessage("be helpful"),
			provider.UserMessage("hi"),
		},
		Tools: []tool.Declaration{{
			Name:        "read_file",
			Description: "Read a file",
			Parameters:  &tool.Schema{Type: tool.TypeObject, Properties: map[string]*tool.Schema{"path": {Type: tool.TypeString}}},
		}},
	})

	require.NoError(t, err)
	assert.Equal(t, provider.RoleAssistant, resp.Message.Role)
	assert.Equal(t, "Hello!", resp.Message.Content)
	assert.Equal(t, "greet back", resp.Message.Reasoning)
	assert.Equal(t, &provider.Usage{PromptTokens: 10, CompletionTokens: 3, TotalTokens: 13}, resp.Usage)
	assert.NotEmpty(t, resp.RawRequest)

	assert.Equal(t, "gpt-4.1", captured["model"])
	assert.EqualValues(t, 4096, captured["max_tokens"])
	assert.NotContains(t, captured, "tool_choice")
	tools := captured["tools"].([]any)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "read_file", fn["name"])
	messages := captured["messages"].([]any)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
}

func TestCreateChatCompletion_ToolCalls(t *testing.T) {
	srv := newTestServer(t, `{
		"choices": [{"message": {"role": "assistant", "content": null, "reasoning": "need to look",
			"tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "read_file", "arguments": "{\"path\":\"main.go\"}"}},
				{"id": "call_2", "type": "function", "function": {"name": "execute_command", "arguments": "ls -la"}}
			]}}]
	}`, nil)
	defer srv.Close()

	resp, err := newTestProvider(t, srv.URL).CreateChatCompletion(context.Background(), &provider.ChatRequest{
		Model:    "gpt-4.1",
		Messages: []provider.Message{provider.SystemMessage("s"), provider.UserMessage("go")},
	})

	require.NoError(t, err)
	assert.Equal(t, "", resp.Message.Content)
	assert.Equal(t, "need to look", resp.Message.Reasoning)
	assert.Nil(t, resp.Usage)
	require.Len(t, resp.Message.ToolCalls, 2)
	assert.Equal(t, "call_1", resp.Message.ToolCalls[0].ID)
	assert.JSONEq(t, `{"path":"main.go"}`, string(resp.Message.ToolCalls[0].Input))
	// unparseable arguments survive as a JSON string
	assert.JSONEq(t, `"ls -la"`, string(resp.Message.ToolCalls[1].Input))
}

func TestCreateChatCompletion_HistoryEncoding(t *testing.T) {
	var captured map[string]any
	srv := newTestServer(t, `{"choices": [{"message": {"role": "assistant", "content": "done"}}]}`, &captured)
	defer srv.Close()

	history := []provider.Message{
		provider.SystemMessage("s"),
		provider.UserMessage("list and run"),
		{
			Role: provider.RoleAssistant,
			ToolCalls: []provider.ToolCall{
				{ID: "a", Name: "list_directory", Input: json.RawMessage(`{"path":"."}`)},
				{ID: "b", Name: "execute_command", Input: json.RawMessage(`"ls -la"`)},
			},
		},
		provider.ToolMessage("a", `{"success":true}`),
		provider.SystemMessage("User rejected tool execution."),
		provider.UserMessage("ok"),
	}

	_, err := newTestProvider(t, srv.URL).CreateChatCompletion(context.Background(), &provider.ChatRequest{Model: "m", Messages: history})
	require.NoError(t, err)

	messages := captured["messages"].([]any)
	require.Len(t, messages, 7)

	assistant := messages[2].(map[string]any)
	calls := assistant["tool_calls"].([]any)
	require.Len(t, calls, 2)
	first := calls[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, `{"path":"."}`, first["arguments"])
	second := calls[1].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "ls -la", second["arguments"])

	// the missing result for call b is synthesized before the system note
	synth := messages[4].(map[string]any)
	assert.Equal(t, "tool", synth["role"])
	assert.Equal(t, "b", synth["tool_call_id"])
	assert.Equal(t, provider.NotExecutedResult, synth["content"])
	assert.Equal(t, "system", messages[5].(map[string]any)["role"])
}

func TestCreateChatCompletion_Errors(t *testing.T) {
	t.Run("auth", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
		}))
		defer srv.Close()

		_, err := newTestProvider(t, srv.URL).CreateChatCompletion(context.Background(), &provider.ChatRequest{Model: "m"})
		assert.ErrorIs(t, err, provider.ErrAuthentication)
		assert.True(t, provider.IsAuth(err))
	})

	t.Run("no choices", func(t *testing.T) {
		srv := newTestServer(t, `{"choices": []}`, nil)
		defer srv.Close()

		_, err := newTestProvider(t, srv.URL).CreateChatCompletion(context.Background(), &provider.ChatRequest{Model: "m"})
		assert.ErrorIs(t, err, provider.ErrInvalidResponse)
	})

	t.Run("error in body", func(t *testing.T) {
		srv := newTestServer(t, `{"error": {"message": "model not found"}}`, nil)
		defer srv.Close()

		_, err := newTestProvider(t, srv.URL).CreateChatCompletion(context.Background(), &provider.ChatRequest{Model: "m"})
		assert.ErrorContains(t, err, "model not found")
	})
}

func TestArgumentsRoundTrip(t *testing.T) {
	assert.Equal(t, "{}", encodeArguments(nil))
	assert.Equal(t, `{"a":1}`, encodeArguments(json.RawMessage(`{"a":1}`)))
	assert.Equal(t, "not json", encodeArguments(decodeArguments("not json")))
	assert.JSONEq(t, `{}`, string(decodeArguments("  ")))
	assert.JSONEq(t, `"\"quoted\""`, string(decodeArguments(`"quoted"`)))
}
