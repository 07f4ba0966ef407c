package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	LLM     LLMConfig     `json:"llm"`
	Policy  PolicyConfig  `json:"policy"`
	Tools   ToolsConfig   `json:"tools"`
	Session SessionConfig `json:"session"`
}

// SchemaType selects the wire protocol a variant speaks.
type SchemaType string

const (
	SchemaOpenAI    SchemaType = "openai"
	SchemaAnthropic SchemaType = "anthropic"
	SchemaGemini    SchemaType = "gemini"
)

type LLMConfig struct {
	CurrentProvider string             `json:"current_provider"`
	CurrentModel    string             `json:"current_model,omitempty"` // overrides the variant's model
	Variants        map[string]Variant `json:"variants"`
}

// Variant is one named backend: a protocol plus endpoint, credentials and
// sampling defaults.
type Variant struct {
	SchemaType  SchemaType `json:"schema_type"`
	APIKey      string     `json:"api_key,omitempty"`
	APIKeyEnv   string     `json:"api_key_env,omitempty"`
	BaseURL     string     `json:"base_url,omitempty"`
	Model       string     `json:"model,omitempty"`
	Temperature *float64   `json:"temperature,omitempty"` // Default: 0.7
	MaxTokens   int        `json:"max_tokens,omitempty"`  // Default: 4096
}

// PolicyConfig lists are additive: they extend the built-in rules and never
// replace them.
type PolicyConfig struct {
	DefaultAction  string   `json:"default_action"` // "ask" or "deny"
	DenyPatterns   []string `json:"deny_patterns"`
	AutoCommands   []string `json:"auto_commands"`
	DangerousFiles []string `json:"dangerous_files"`
	DangerousDirs  []string `json:"dangerous_dirs"`
}

type ToolsConfig struct {
	// File Operations
	MaxFileSize int64 `json:"max_file_size"` // Default: 5 * 1024 * 1024 (5MB)

	// Directory Listing & Search
	DefaultListLimit int `json:"default_list_limit"` // Default: 500
	MaxSearchResults int `json:"max_search_results"` // Default: 200

	// Command Execution
	DefaultTimeoutSeconds int   `json:"default_timeout_seconds"` // Default: 30
	MaxTimeoutSeconds     int   `json:"max_timeout_seconds"`     // Default: 300
	MaxCommandOutputSize  int64 `json:"max_command_output_size"` // Default: 256 * 1024
	GracefulShutdownMs    int   `json:"graceful_shutdown_ms"`    // Default: 2000
}

type SessionConfig struct {
	MaxIterations int    `json:"max_iterations"`      // Default: 25
	DebugDir      string `json:"debug_dir,omitempty"` // Default: ~/.config/mini/debug
}

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			CurrentProvider: "openai",
			Variants: map[string]Variant{
				"openai": {
					SchemaType: SchemaOpenAI,
					APIKeyEnv:  "OPENAI_API_KEY",
					Model:      "gpt-4.1",
				},
				"anthropic": {
					SchemaType: SchemaAnthropic,
					APIKeyEnv:  "ANTHROPIC_API_KEY",
					Model:      "claude-sonnet-4-5",
				},
				"gemini": {
					SchemaType: SchemaGemini,
					APIKeyEnv:  "GEMINI_API_KEY",
					Model:      "gemini-2.5-flash",
				},
				"groq": {
					SchemaType: SchemaOpenAI,
					APIKeyEnv:  "GROQ_API_KEY",
					Model:      "moonshotai/kimi-k2-instruct",
				},
			},
		},
		Policy: PolicyConfig{
			DefaultAction:  "ask",
			DenyPatterns:   []string{},
			AutoCommands:   []string{},
			DangerousFiles: []string{},
			DangerousDirs:  []string{},
		},
		Tools: ToolsConfig{
			MaxFileSize:           5 * 1024 * 1024,
			DefaultListLimit:      500,
			MaxSearchResults:      200,
			DefaultTimeoutSeconds: 30,
			MaxTimeoutSeconds:     300,
			MaxCommandOutputSize:  256 * 1024,
			GracefulShutdownMs:    2000,
		},
		Session: SessionConfig{
			MaxIterations: 25,
		},
	}
}
