package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// configDir is the configuration directory path
	// Can be set via SetConfigDir before loading config
	configDir     string
	configDirInit bool
)

// SetConfigDir sets a custom configuration directory
// Must be called before any config loading functions
func SetConfigDir(dir string) {
	configDir = dir
	configDirInit = true
}

// GetConfigDir returns the configuration directory
// Priority: 1. Manually set via SetConfigDir, 2. ./config in current directory
func GetConfigDir() string {
	if !configDirInit {
		cwd, err := os.Getwd()
		if err == nil {
			configDir = filepath.Join(cwd, "config")
		}
		configDirInit = true
	}
	return configDir
}

// Config application configuration structure
type Config struct {
	Model  ModelConfig  `yaml:"model"`
	Memory MemoryConfig `yaml:"memory"`
	Tools  ToolsConfig  `yaml:"tools"`
	Log    LogConfig    `yaml:"log"`
}

// ModelConfig LLM model configuration
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // "openai" | "anthropic" | "local"
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	MaxRetries  int     `yaml:"max_retries"`
}

// MemoryConfig task memory configuration
type MemoryConfig struct {
	Persist    bool   `yaml:"persist"`
	DBPath     string `yaml:"db_path"`
	ExportPath string `yaml:"export_path"`
}

// ToolsConfig tool dispatch configuration
type ToolsConfig struct {
	CallTimeoutSeconds    int    `yaml:"call_timeout_seconds"`
	FetchTimeoutSeconds   int    `yaml:"fetch_timeout_seconds"`
	FetchMaxBytes         int64  `yaml:"fetch_max_bytes"`
	UserAgent             string `yaml:"user_agent"`
	CommandTimeoutSeconds int    `yaml:"command_timeout_seconds"`
	ConfirmDangerousOps   bool   `yaml:"confirm_dangerous_ops"`
	SearchBaseURL         string `yaml:"search_base_url"`
	SearchLimit           int    `yaml:"search_limit"`
}

// LogConfig logging configuration
type LogConfig struct {
	Dir     string `yaml:"dir"`
	Level   string `yaml:"level"`
	MaxDays int    `yaml:"max_days"`
	Console bool   `yaml:"console"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Model: ModelConfig{
			Provider:    "local",
			BaseURL:     "",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   1024,
			MaxRetries:  3,
		},
		Memory: MemoryConfig{
			Persist:    false,
			DBPath:     filepath.Join(homeDir, ".taskmate", "memory.db"),
			ExportPath: "memory_audit.json",
		},
		Tools: ToolsConfig{
			CallTimeoutSeconds:    60,
			FetchTimeoutSeconds:   15,
			FetchMaxBytes:         200000,
			UserAgent:             "TaskMate/0.1",
			CommandTimeoutSeconds: 30,
			ConfirmDangerousOps:   true,
			SearchBaseURL:         "https://api.duckduckgo.com",
			SearchLimit:           5,
		},
		Log: LogConfig{
			Dir:     "",
			Level:   "info",
			MaxDays: 7,
			Console: false,
		},
	}
}

// ConfigDir returns the configuration directory path
func ConfigDir() (string, error) {
	dir := GetConfigDir()
	if dir == "" {
		return "", fmt.Errorf("failed to determine config directory")
	}
	return dir, nil
}

// LogDir returns the log directory, preferring the configured one
func (c *Config) LogDir() string {
	if c.Log.Dir != "" {
		return c.Log.Dir
	}
	dir := GetConfigDir()
	if dir == "" {
		return "logs"
	}
	return filepath.Join(dir, "logs")
}

// ConfigPath returns the configuration file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from file and merges with secrets
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// First run: write defaults so the user has something to edit
		cfg := DefaultConfig()
		cfg.mergeSecrets()

		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig() // Use default values as base
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.mergeSecrets()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeSecrets fills the API key from .secrets when the config has none
func (c *Config) mergeSecrets() {
	if c.Model.APIKey != "" {
		return
	}
	secrets, _ := LoadSecrets()
	if secrets == nil {
		return
	}
	if apiKey := secrets.APIKeyFor(c.Model.Provider); apiKey != "" {
		c.Model.APIKey = apiKey
	}
}

// Save saves configuration to file
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Keep secrets out of the config file
	out := *cfg
	out.Model.APIKey = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	content := "# TaskMate Configuration File\n# API keys belong in the .secrets file next to this one\n\n" + string(data)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Model.Provider)) {
	case "", "local":
	case "openai", "anthropic":
		if c.Model.Model == "" {
			return fmt.Errorf("config error: model.model cannot be empty")
		}
	default:
		return fmt.Errorf("config error: unknown model.provider %q", c.Model.Provider)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("config error: model.temperature must be between 0 and 2")
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("config error: model.max_tokens must be greater than 0")
	}
	if c.Model.MaxRetries < 0 {
		return fmt.Errorf("config error: model.max_retries cannot be negative")
	}

	if c.Memory.Persist && c.Memory.DBPath == "" {
		return fmt.Errorf("config error: memory.db_path cannot be empty when memory.persist is set")
	}

	if c.Tools.CallTimeoutSeconds < 0 {
		return fmt.Errorf("config error: tools.call_timeout_seconds cannot be negative")
	}
	if c.Tools.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("config error: tools.fetch_timeout_seconds must be greater than 0")
	}
	if c.Tools.FetchMaxBytes <= 0 {
		return fmt.Errorf("config error: tools.fetch_max_bytes must be greater than 0")
	}
	if c.Tools.CommandTimeoutSeconds <= 0 {
		return fmt.Errorf("config error: tools.command_timeout_seconds must be greater than 0")
	}
	if c.Tools.SearchLimit <= 0 {
		return fmt.Errorf("config error: tools.search_limit must be greater than 0")
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config error: log.level must be one of debug, info, warn, error")
	}

	return nil
}

// IsAPIKeyConfigured checks if API key is configured
func (c *Config) IsAPIKeyConfigured() bool {
	return c.Model.APIKey != ""
}

// String returns string representation of config (hides sensitive info)
func (c *Config) String() string {
	return fmt.Sprintf(`TaskMate Configuration:
  Model:
    Provider: %s
    API Key: %s
    Base URL: %s
    Model: %s
    Temperature: %.1f
    Max Tokens: %d
    Max Retries: %d
  Memory:
    Persist: %v
    DB Path: %s
    Export Path: %s
  Tools:
    Call Timeout Seconds: %d
    Fetch Timeout Seconds: %d
    Fetch Max Bytes: %d
    User Agent: %s
    Command Timeout Seconds: %d
    Confirm Dangerous Ops: %v
    Search Base URL: %s
    Search Limit: %d
  Log:
    Dir: %s
    Level: %s
    Max Days: %d
    Console: %v`,
		c.Model.Provider,
		redactAPIKey(c.Model.APIKey),
		c.Model.BaseURL,
		c.Model.Model,
		c.Model.Temperature,
		c.Model.MaxTokens,
		c.Model.MaxRetries,
		c.Memory.Persist,
		c.Memory.DBPath,
		c.Memory.ExportPath,
		c.Tools.CallTimeoutSeconds,
		c.Tools.FetchTimeoutSeconds,
		c.Tools.FetchMaxBytes,
		c.Tools.UserAgent,
		c.Tools.CommandTimeoutSeconds,
		c.Tools.ConfirmDangerousOps,
		c.Tools.SearchBaseURL,
		c.Tools.SearchLimit,
		c.LogDir(),
		c.Log.Level,
		c.Log.MaxDays,
		c.Log.Console,
	)
}

func redactAPIKey(value string) string {
	if value == "" {
		return "(not configured)"
	}
	if len(value) > 8 {
		return value[:8] + "..." // Only show first 8 chars
	}
	return "***"
}
