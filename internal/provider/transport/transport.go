// Package transport posts JSON requests for the HTTP-based provider adapters
// and maps transport and status failures to provider errors.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Cyclone1070/mini/internal/provider"
)

const (
	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 120 * time.Second

	maxResponseBytes = 8 << 20
)

// Client sends JSON POST requests.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client. A nil httpClient gets DefaultTimeout; a nil logger
// discards output.
func New(httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{httpClient: httpClient, logger: logger}
}

// PostJSON sends body to url with the given headers and decodes a 2xx
// response into out.
//
// Errors:
//   - cancellation of ctx is returned wrapped, so errors.Is(err, context.Canceled) holds
//   - transport failures become retryable network or timeout errors
//   - non-2xx statuses map through provider.FromStatus
//   - undecodable bodies become ErrInvalidResponse
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return mapTransportError(ctx, err)
	}

	c.logger.Debug("provider response",
		"url", url,
		"status", resp.StatusCode,
		"request_bytes", len(body),
		"response_bytes", len(data),
		"duration", time.Since(start),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(resp, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &provider.ProviderError{
			Code:       provider.ErrorCodeInvalidResponse,
			Message:    "could not decode response body",
			StatusCode: resp.StatusCode,
			Underlying: err,
		}
	}
	return nil
}

func mapTransportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled: %w", ctx.Err())
	}
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &provider.ProviderError{
			Code:       provider.ErrorCodeTimeout,
			Message:    "request timed out",
			Underlying: err,
			Retryable:  true,
		}
	}
	return &provider.ProviderError{
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error",
		Underlying: err,
		Retryable:  true,
	}
}

func statusError(resp *http.Response, body []byte) error {
	message := ErrorMessage(body)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	e := provider.FromStatus(resp.StatusCode, message, ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	if e.Code == provider.ErrorCodeInvalidRequest && looksLikeContextOverflow(message) {
		e.Code = provider.ErrorCodeContextLength
	}
	return e
}

// ErrorMessage extracts a human-readable message from an error body. The
// OpenAI, Anthropic and Gemini REST shapes are recognized; anything else is
// returned trimmed and truncated.
func ErrorMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if len(envelope.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var plain string
			if json.Unmarshal(envelope.Error, &plain) == nil && plain != "" {
				return plain
			}
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 500 {
		text = text[:500] + "..."
	}
	return text
}

// ParseRetryAfter reads a Retry-After header in either delta-seconds or
// HTTP-date form. Returns nil when absent or unparseable.
func ParseRetryAfter(value string, now time.Time) *time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		d := time.Duration(secs) * time.Second
		return &d
	}
	if t, err := http.ParseTime(value); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return &d
	}
	return nil
}

func looksLikeContextOverflow(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "context length") ||
		strings.Contains(m, "context_length") ||
		strings.Contains(m, "maximum context") ||
		strings.Contains(m, "prompt is too long") ||
		strings.Contains(m, "too many tokens")
}
