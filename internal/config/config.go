// Package config loads formpilot settings from defaults, an optional YAML
// file, FORMPILOT_* environment variables and command line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/martinemde/formpilot/agentloop"
	"github.com/martinemde/formpilot/computer"
	"github.com/martinemde/formpilot/unifiedllm"
)

const (
	// EnvPrefix is prepended to every environment override, e.g.
	// FORMPILOT_RUN_MAX_ITERATIONS.
	EnvPrefix = "FORMPILOT"
	// DefaultConfigName is looked up as ./formpilot.yaml when no file is given.
	DefaultConfigName = "formpilot"
	// DefaultObjective is used when no objective is supplied.
	DefaultObjective = "Take a screenshot and describe what you see."
)

// providerKeyEnv maps each supported provider to the environment variable
// holding its API key. Ollama runs locally and needs none.
var providerKeyEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"groq":      "GROQ_API_KEY",
	"mistral":   "MISTRAL_API_KEY",
	"ollama":    "",
}

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Assistant AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
	Run       RunConfig       `mapstructure:"run" yaml:"run"`
	Display   DisplayConfig   `mapstructure:"display" yaml:"display"`
}

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for console log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
}

// AssistantConfig selects and tunes the assistant service.
type AssistantConfig struct {
	Provider       string        `mapstructure:"provider" yaml:"provider"`
	Model          string        `mapstructure:"model" yaml:"model"`
	APIKey         string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	MaxTokens      int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// RunConfig bounds a single run.
type RunConfig struct {
	Objective           string `mapstructure:"objective" yaml:"objective"`
	MaxIterations       int    `mapstructure:"max_iterations" yaml:"max_iterations"`
	LoopDetectionWindow int    `mapstructure:"loop_detection_window" yaml:"loop_detection_window"`
}

// DisplayConfig describes the display offered through the computer tool.
// Empty ToolType and BetaFlag are resolved from the model catalog.
type DisplayConfig struct {
	Width    int    `mapstructure:"width" yaml:"width"`
	Height   int    `mapstructure:"height" yaml:"height"`
	Number   string `mapstructure:"number" yaml:"number"`
	Zoom     bool   `mapstructure:"zoom" yaml:"zoom"`
	ToolType string `mapstructure:"tool_type" yaml:"tool_type"`
	BetaFlag string `mapstructure:"beta_flag" yaml:"beta_flag"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "formpilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Assistant --
	v.SetDefault("assistant.provider", "anthropic")
	v.SetDefault("assistant.model", "") // resolved per provider
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.base_url", "")
	v.SetDefault("assistant.max_tokens", agentloop.DefaultMaxTokens)
	v.SetDefault("assistant.request_timeout", "0s")
	v.SetDefault("assistant.max_retries", 0)

	// -- Run --
	v.SetDefault("run.objective", DefaultObjective)
	v.SetDefault("run.max_iterations", agentloop.DefaultMaxIterations)
	v.SetDefault("run.loop_detection_window", agentloop.DefaultLoopDetectionWindow)

	// -- Display --
	v.SetDefault("display.width", computer.DefaultDisplayWidth)
	v.SetDefault("display.height", computer.DefaultDisplayHeight)
	v.SetDefault("display.number", computer.DefaultDisplayNumber)
	v.SetDefault("display.zoom", true)
	v.SetDefault("display.tool_type", "")
	v.SetDefault("display.beta_flag", "")
}

// NewViper returns a viper instance with defaults and environment overrides
// applied. configFile may be empty, in which case ./formpilot.yaml is read
// if it exists.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

// NewDefaultConfig returns the configuration built from defaults alone.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode and the default provider always has a model.
	_ = v.Unmarshal(&cfg)
	_ = cfg.resolveModel()
	return &cfg
}

// NewConfigFromViper decodes and validates the configuration held by v. A
// missing API key is read from the provider's standard environment variable.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Assistant.Provider = strings.ToLower(strings.TrimSpace(cfg.Assistant.Provider))

	if cfg.Assistant.APIKey == "" {
		if env := providerKeyEnv[cfg.Assistant.Provider]; env != "" {
			cfg.Assistant.APIKey = os.Getenv(env)
		}
	}

	if err := cfg.resolveModel(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// resolveModel picks the provider's default model when none is set.
// Anthropic gets the computer-use default; other providers get their latest
// tool-capable catalog model.
func (c *Config) resolveModel() error {
	if c.Assistant.Model != "" {
		return nil
	}
	if c.Assistant.Provider == "anthropic" {
		c.Assistant.Model = agentloop.DefaultModel
		return nil
	}
	if info := unifiedllm.GetLatestModel(c.Assistant.Provider, "tools"); info != nil {
		c.Assistant.Model = info.ID
		return nil
	}
	return fmt.Errorf("assistant.model is required for provider %q", c.Assistant.Provider)
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if _, ok := providerKeyEnv[c.Assistant.Provider]; !ok {
		return fmt.Errorf("assistant.provider %q is not supported", c.Assistant.Provider)
	}
	if c.Assistant.Model == "" {
		return fmt.Errorf("assistant.model is required")
	}
	if info := unifiedllm.GetModelInfo(c.Assistant.Model); info != nil && info.Provider != c.Assistant.Provider {
		return fmt.Errorf("assistant.model %q belongs to provider %q, not %q",
			c.Assistant.Model, info.Provider, c.Assistant.Provider)
	}
	if c.Assistant.MaxTokens <= 0 {
		return fmt.Errorf("assistant.max_tokens must be a positive integer")
	}
	if c.Assistant.RequestTimeout < 0 {
		return fmt.Errorf("assistant.request_timeout must not be negative")
	}
	if c.Assistant.MaxRetries < 0 {
		return fmt.Errorf("assistant.max_retries must not be negative")
	}
	if c.Run.MaxIterations <= 0 {
		return fmt.Errorf("run.max_iterations must be a positive integer")
	}
	if c.Run.LoopDetectionWindow < 0 {
		return fmt.Errorf("run.loop_detection_window must not be negative")
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("display.width and display.height must be positive integers")
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logger.level must be debug, info, warn or error, got %q", c.Logger.Level)
	}
	return nil
}

// APIKeyEnv returns the environment variable consulted for provider's key.
func APIKeyEnv(provider string) string { return providerKeyEnv[provider] }

// ToolConfig builds the computer tool configuration. Zoom is carried as
// an empty ZoomConfig when enabled.
func (c *Config) ToolConfig() computer.ToolConfig {
	tool := computer.DefaultToolConfig()
	tool.DisplayWidth = c.Display.Width
	tool.DisplayHeight = c.Display.Height
	tool.DisplayNumber = c.Display.Number
	if c.Display.ToolType != "" {
		tool.ToolType = c.Display.ToolType
	}
	if c.Display.BetaFlag != "" {
		tool.BetaFlag = c.Display.BetaFlag
	}
	if !c.Display.Zoom {
		tool.Zoom = nil
	}
	return tool
}

// AgentRunConfig converts the configuration into orchestrator settings.
func (c *Config) AgentRunConfig() agentloop.RunConfig {
	return agentloop.RunConfig{
		Model:               c.Assistant.Model,
		Provider:            c.Assistant.Provider,
		MaxIterations:       c.Run.MaxIterations,
		MaxTokens:           c.Assistant.MaxTokens,
		RequestTimeout:      c.Assistant.RequestTimeout,
		Tool:                c.ToolConfig(),
		LoopDetectionWindow: c.Run.LoopDetectionWindow,
	}
}
