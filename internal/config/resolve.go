package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMissingAPIKey is returned when neither the variant nor its environment
// variable supplies a key.
var ErrMissingAPIKey = errors.New("missing API key")

var defaultBaseURLs = map[string]string{
	"openai":    "https://api.openai.com/v1",
	"groq":      "https://api.groq.com/openai/v1",
	"deepseek":  "https://api.deepseek.com",
	"anthropic": "https://api.anthropic.com",
}

// ResolvedLLM is the effective backend for a session after overrides,
// environment lookup and defaults are applied.
type ResolvedLLM struct {
	Provider    string
	SchemaType  SchemaType
	Model       string
	Temperature float64
	MaxTokens   int
	APIKey      string
	APIKeyEnv   string
	BaseURL     string
}

// ResolveLLM picks the variant named by providerOverride (or the configured
// current provider) and fills in its effective settings. getenv is usually
// os.Getenv. A missing key is reported with ErrMissingAPIKey alongside the
// otherwise complete result so callers can prompt for it.
func ResolveLLM(cfg *Config, providerOverride, modelOverride string, getenv func(string) string) (ResolvedLLM, error) {
	name := cfg.LLM.CurrentProvider
	if providerOverride != "" {
		name = providerOverride
	}
	v, ok := cfg.LLM.Variants[name]
	if !ok {
		return ResolvedLLM{}, fmt.Errorf("unknown provider %q (available: %s)", name, strings.Join(VariantNames(cfg), ", "))
	}

	r := ResolvedLLM{
		Provider:    name,
		SchemaType:  v.SchemaType,
		Model:       v.Model,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		APIKey:      v.APIKey,
		APIKeyEnv:   v.APIKeyEnv,
		BaseURL:     v.BaseURL,
	}
	if r.SchemaType == "" {
		r.SchemaType = SchemaOpenAI
	}
	// current_model only applies to the configured provider, not to an
	// explicitly selected other one.
	if providerOverride == "" && cfg.LLM.CurrentModel != "" {
		r.Model = cfg.LLM.CurrentModel
	}
	if modelOverride != "" {
		r.Model = modelOverride
	}
	if v.Temperature != nil {
		r.Temperature = *v.Temperature
	}
	if v.MaxTokens > 0 {
		r.MaxTokens = v.MaxTokens
	}
	if r.BaseURL == "" {
		r.BaseURL = defaultBaseURLs[name]
	}
	if r.APIKeyEnv == "" {
		r.APIKeyEnv = strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_API_KEY"
	}
	if r.APIKey == "" && getenv != nil {
		r.APIKey = getenv(r.APIKeyEnv)
	}

	if r.Model == "" {
		return r, fmt.Errorf("provider %q has no model configured", name)
	}
	if r.APIKey == "" {
		return r, fmt.Errorf("%w for %s: set %s or run /login", ErrMissingAPIKey, name, r.APIKeyEnv)
	}
	return r, nil
}

// VariantNames returns the configured variant names, sorted.
func VariantNames(cfg *Config) []string {
	names := make([]string, 0, len(cfg.LLM.Variants))
	for name := range cfg.LLM.Variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
