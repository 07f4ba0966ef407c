package config

import (
	"fmt"
	"regexp"
)

// Validate checks config values for logical correctness.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	var errs []string

	// LLM validation
	if len(c.LLM.Variants) == 0 {
		errs = append(errs, "llm.variants must not be empty")
	} else if _, ok := c.LLM.Variants[c.LLM.CurrentProvider]; !ok {
		errs = append(errs, fmt.Sprintf("llm.current_provider %q is not a configured variant", c.LLM.CurrentProvider))
	}
	for name, v := range c.LLM.Variants {
		if !validSchema(v.SchemaType) {
			errs = append(errs, fmt.Sprintf("llm.variants.%s.schema_type must be openai, anthropic or gemini", name))
		}
		if v.Temperature != nil && (*v.Temperature < 0 || *v.Temperature > 2) {
			errs = append(errs, fmt.Sprintf("llm.variants.%s.temperature must be within [0, 2]", name))
		}
		if v.MaxTokens < 0 {
			errs = append(errs, fmt.Sprintf("llm.variants.%s.max_tokens must be >= 0", name))
		}
	}

	// Policy validation
	if c.Policy.DefaultAction != "ask" && c.Policy.DefaultAction != "deny" {
		errs = append(errs, "policy.default_action must be \"ask\" or \"deny\"")
	}
	for _, p := range c.Policy.DenyPatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Sprintf("policy.deny_patterns: invalid regex %q", p))
		}
	}

	// Tools validation
	if c.Tools.MaxFileSize < 1 {
		errs = append(errs, "tools.max_file_size must be >= 1")
	}
	if c.Tools.DefaultListLimit < 1 {
		errs = append(errs, "tools.default_list_limit must be >= 1")
	}
	if c.Tools.MaxSearchResults < 1 {
		errs = append(errs, "tools.max_search_results must be >= 1")
	}
	if c.Tools.DefaultTimeoutSeconds < 1 {
		errs = append(errs, "tools.default_timeout_seconds must be >= 1")
	}
	if c.Tools.MaxTimeoutSeconds < 1 {
		errs = append(errs, "tools.max_timeout_seconds must be >= 1")
	}
	if c.Tools.MaxCommandOutputSize < 1 {
		errs = append(errs, "tools.max_command_output_size must be >= 1")
	}
	if c.Tools.GracefulShutdownMs < 1 {
		errs = append(errs, "tools.graceful_shutdown_ms must be >= 1")
	}

	// Semantic validation: Default <= Max constraints
	if c.Tools.DefaultTimeoutSeconds > c.Tools.MaxTimeoutSeconds {
		errs = append(errs, "tools.default_timeout_seconds must be <= tools.max_timeout_seconds")
	}

	// Session validation
	if c.Session.MaxIterations < 1 {
		errs = append(errs, "session.max_iterations must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}

func validSchema(s SchemaType) bool {
	switch s {
	case SchemaOpenAI, SchemaAnthropic, SchemaGemini:
		return true
	default:
		return false
	}
}
