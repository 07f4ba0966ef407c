// Package factory builds the provider adapter matching a resolved LLM config.
package factory

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Cyclone1070/mini/internal/config"
	"github.com/Cyclone1070/mini/internal/provider"
	"github.com/Cyclone1070/mini/internal/provider/anthropic"
	"github.com/Cyclone1070/mini/internal/provider/gemini"
	"github.com/Cyclone1070/mini/internal/provider/openai"
)

// Options carries optional dependencies shared by all adapters.
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// New returns the adapter for llm.SchemaType.
func New(ctx context.Context, llm config.ResolvedLLM, opts Options) (provider.Provider, error) {
	switch llm.SchemaType {
	case config.SchemaOpenAI, "":
		p, err := openai.New(openai.Config{
			APIKey:     llm.APIKey,
			BaseURL:    llm.BaseURL,
			HTTPClient: opts.HTTPClient,
			Logger:     opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.SchemaAnthropic:
		p, err := anthropic.New(anthropic.Config{
			APIKey:     llm.APIKey,
			BaseURL:    llm.BaseURL,
			HTTPClient: opts.HTTPClient,
			Logger:     opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.SchemaGemini:
		client, err := gemini.NewRealGeminiClient(ctx, llm.APIKey, llm.BaseURL, opts.HTTPClient)
		if err != nil {
			return nil, fmt.Errorf("new gemini provider: %w", err)
		}
		return gemini.New(client), nil
	default:
		return nil, fmt.Errorf("unsupported schema type %q", llm.SchemaType)
	}
}
