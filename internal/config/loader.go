package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// ConfigDir is the directory name under ~/.config
	ConfigDir = "mini"
	// ConfigFile is the config file name
	ConfigFile = "config.json"
	// SystemPromptFile holds an optional replacement system prompt
	SystemPromptFile = "system.md"
	// SkillsDir holds <name>.md prompt snippets loaded with /skill
	SkillsDir = "skills"
)

// DefaultSystemPrompt is used when system.md is missing or empty.
const DefaultSystemPrompt = `You are mini, a coding assistant running in the user's terminal.
You can inspect and change the workspace with the provided tools.
Prefer reading files before editing them, keep changes minimal, and explain what you did.
Shell commands may require the user's approval; if a call is rejected, stop and ask how to proceed.`

// FileSystem abstracts file operations for testability
type FileSystem interface {
	UserHomeDir() (string, error)
	ReadFile(path string) ([]byte, error)
	ReadDir(path string) ([]fs.DirEntry, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
}

// ConfigFileReader implements FileSystem using the real OS for config loading
type ConfigFileReader struct{}

func (ConfigFileReader) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

func (ConfigFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (ConfigFileReader) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

func (ConfigFileReader) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (ConfigFileReader) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Loader handles configuration loading with injected dependencies
type Loader struct {
	fs   FileSystem
	path string // explicit config file, overrides ~/.config/mini/config.json
}

// NewLoader creates a production Loader using the real filesystem
func NewLoader() *Loader {
	return &Loader{fs: ConfigFileReader{}}
}

// NewLoaderWithFS creates a Loader with a custom filesystem (for testing)
func NewLoaderWithFS(fs FileSystem) *Loader {
	return &Loader{fs: fs}
}

// WithPath returns a loader that reads and writes the given config file.
func (l *Loader) WithPath(path string) *Loader {
	return &Loader{fs: l.fs, path: path}
}

// Dir returns ~/.config/mini.
func (l *Loader) Dir() (string, error) {
	homeDir, err := l.fs.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", ConfigDir), nil
}

// Path returns the config file location.
func (l *Loader) Path() (string, error) {
	if l.path != "" {
		return l.path, nil
	}
	dir, err := l.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFile), nil
}

// Load reads configuration from ~/.config/mini/config.json (or the explicit
// path) and merges it with defaults. Returns default config if the file
// doesn't exist. Returns error only for parse errors, permission issues, or
// validation failures.
//
// NOTE: This implementation unmarshals JSON keys directly over the default configuration.
// This allows explicit zero values (e.g., 0, false, "") in the config file to override defaults.
// Variants are merged per name: a variant in the file replaces the default of the same name.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath, err := l.Path()
	if err != nil {
		return cfg, nil // Use defaults if can't get home dir
	}

	data, err := l.fs.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil // Use defaults if file doesn't exist
		}
		return nil, err // Return error for permission issues
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadSystemPrompt returns the contents of system.md, or DefaultSystemPrompt
// when the file is missing or blank.
func (l *Loader) LoadSystemPrompt() (string, error) {
	dir, err := l.Dir()
	if err != nil {
		return DefaultSystemPrompt, nil
	}
	data, err := l.fs.ReadFile(filepath.Join(dir, SystemPromptFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultSystemPrompt, nil
		}
		return "", err
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return DefaultSystemPrompt, nil
	}
	return content, nil
}

// ListSkills returns the names of available skills, sorted.
func (l *Loader) ListSkills() []string {
	dir, err := l.Dir()
	if err != nil {
		return nil
	}
	entries, err := l.fs.ReadDir(filepath.Join(dir, SkillsDir))
	if err != nil {
		return nil
	}
	var skills []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		skills = append(skills, strings.TrimSuffix(entry.Name(), ".md"))
	}
	sort.Strings(skills)
	return skills
}

// LoadSkill reads skills/<name>.md.
func (l *Loader) LoadSkill(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid skill name %q", name)
	}
	dir, err := l.Dir()
	if err != nil {
		return "", err
	}
	data, err := l.fs.ReadFile(filepath.Join(dir, SkillsDir, name+".md"))
	if err != nil {
		return "", fmt.Errorf("skill %q: %w", name, err)
	}
	return string(data), nil
}

// SaveAPIKey stores key on the named variant and writes the config file
// with owner-only permissions.
func (l *Loader) SaveAPIKey(cfg *Config, variant, key string) error {
	v, ok := cfg.LLM.Variants[variant]
	if !ok {
		return fmt.Errorf("unknown provider: %s", variant)
	}
	v.APIKey = key
	cfg.LLM.Variants[variant] = v

	configPath, err := l.Path()
	if err != nil {
		return err
	}
	if err := l.fs.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return l.fs.WriteFile(configPath, data, 0o600)
}

// Load is a convenience function using the default loader
func Load() (*Config, error) {
	return NewLoader().Load()
}
