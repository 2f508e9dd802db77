package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/formpilot/agentloop"
)

// -- Defaults --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "formpilot", cfg.Logger.ServiceName)
	assert.Equal(t, "anthropic", cfg.Assistant.Provider)
	assert.Equal(t, "claude-opus-4-5-20250929", cfg.Assistant.Model)
	assert.Equal(t, 2048, cfg.Assistant.MaxTokens)
	assert.Equal(t, time.Duration(0), cfg.Assistant.RequestTimeout)
	assert.Equal(t, 0, cfg.Assistant.MaxRetries)
	assert.Equal(t, DefaultObjective, cfg.Run.Objective)
	assert.Equal(t, 50, cfg.Run.MaxIterations)
	assert.Equal(t, 10, cfg.Run.LoopDetectionWindow)
	assert.Equal(t, 1024, cfg.Display.Width)
	assert.Equal(t, 768, cfg.Display.Height)
	assert.Equal(t, ":1", cfg.Display.Number)
	assert.True(t, cfg.Display.Zoom)
	require.NoError(t, cfg.Validate())
}

// -- Validation --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown provider", func(c *Config) { c.Assistant.Provider = "acme" }, `assistant.provider "acme" is not supported`},
		{"empty model", func(c *Config) { c.Assistant.Model = "" }, "assistant.model is required"},
		{"model from another provider", func(c *Config) { c.Assistant.Provider = "openai" }, `belongs to provider "anthropic"`},
		{"zero max tokens", func(c *Config) { c.Assistant.MaxTokens = 0 }, "assistant.max_tokens must be a positive integer"},
		{"negative timeout", func(c *Config) { c.Assistant.RequestTimeout = -time.Second }, "assistant.request_timeout"},
		{"negative retries", func(c *Config) { c.Assistant.MaxRetries = -1 }, "assistant.max_retries"},
		{"zero iterations", func(c *Config) { c.Run.MaxIterations = 0 }, "run.max_iterations must be a positive integer"},
		{"negative loop window", func(c *Config) { c.Run.LoopDetectionWindow = -1 }, "run.loop_detection_window"},
		{"zero width", func(c *Config) { c.Display.Width = 0 }, "display.width and display.height"},
		{"negative height", func(c *Config) { c.Display.Height = -5 }, "display.width and display.height"},
		{"bad format", func(c *Config) { c.Logger.Format = "xml" }, "logger.format"},
		{"bad level", func(c *Config) { c.Logger.Level = "verbose" }, "logger.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// -- Loading --

func TestNewViperReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
assistant:
  model: claude-sonnet-4-5-20250929
  request_timeout: 45s
run:
  max_iterations: 12
display:
  width: 1280
  zoom: false
`), 0o644))
	t.Setenv("FORMPILOT_DISPLAY_HEIGHT", "800")
	t.Setenv("FORMPILOT_RUN_MAX_ITERATIONS", "7")
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Assistant.Model)
	assert.Equal(t, 45*time.Second, cfg.Assistant.RequestTimeout)
	assert.Equal(t, 7, cfg.Run.MaxIterations, "env overrides the file")
	assert.Equal(t, 1280, cfg.Display.Width)
	assert.Equal(t, 800, cfg.Display.Height)
	assert.False(t, cfg.Display.Zoom)
	assert.Equal(t, "sk-env", cfg.Assistant.APIKey)
}

func TestNewViperMissingDefaultFileIsFine(t *testing.T) {
	t.Chdir(t.TempDir())
	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Run.MaxIterations)
}

func TestNewViperExplicitFileMustExist(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestNewConfigFromViperRejectsInvalid(t *testing.T) {
	t.Setenv("FORMPILOT_ASSISTANT_PROVIDER", "acme")
	t.Chdir(t.TempDir())
	v, err := NewViper("")
	require.NoError(t, err)
	_, err = NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestAPIKeyFromConfigWins(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")
	t.Setenv("FORMPILOT_ASSISTANT_API_KEY", "sk-config")
	t.Chdir(t.TempDir())
	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "sk-config", cfg.Assistant.APIKey)
	assert.Equal(t, "ANTHROPIC_API_KEY", APIKeyEnv("anthropic"))
	assert.Empty(t, APIKeyEnv("ollama"))
}

// -- Model resolution --

func TestModelDefaultsPerProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{"anthropic default", "anthropic", "", agentloop.DefaultModel},
		{"openai default", "openai", "", "gpt-4o"},
		{"explicit model kept", "openai", "gpt-4o-mini", "gpt-4o-mini"},
		{"alias resolves to same provider", "anthropic", "sonnet", "sonnet"},
		{"uncatalogued model passes", "groq", "llama-3.3-70b-versatile", "llama-3.3-70b-versatile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FORMPILOT_ASSISTANT_PROVIDER", tt.provider)
			t.Setenv("FORMPILOT_ASSISTANT_MODEL", tt.model)
			t.Chdir(t.TempDir())
			v, err := NewViper("")
			require.NoError(t, err)
			cfg, err := NewConfigFromViper(v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Assistant.Model)
		})
	}
}

func TestModelRequiredWithoutCatalogDefault(t *testing.T) {
	t.Setenv("FORMPILOT_ASSISTANT_PROVIDER", "groq")
	t.Chdir(t.TempDir())
	v, err := NewViper("")
	require.NoError(t, err)
	_, err = NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `assistant.model is required for provider "groq"`)
}

func TestModelProviderMismatchRejected(t *testing.T) {
	t.Setenv("FORMPILOT_ASSISTANT_PROVIDER", "openai")
	t.Setenv("FORMPILOT_ASSISTANT_MODEL", "claude-opus-4-5-20250929")
	t.Chdir(t.TempDir())
	v, err := NewViper("")
	require.NoError(t, err)
	_, err = NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `belongs to provider "anthropic", not "openai"`)
}

// -- Conversion --

func TestAgentRunConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Display.Zoom = false
	cfg.Display.ToolType = "computer_20250124"
	cfg.Assistant.RequestTimeout = time.Minute

	run := cfg.AgentRunConfig()
	assert.Equal(t, agentloop.DefaultModel, run.Model)
	assert.Equal(t, "anthropic", run.Provider)
	assert.Equal(t, 50, run.MaxIterations)
	assert.Equal(t, 2048, run.MaxTokens)
	assert.Equal(t, time.Minute, run.RequestTimeout)
	assert.Equal(t, 10, run.LoopDetectionWindow)
	assert.Equal(t, "computer_20250124", run.Tool.ToolType)
	assert.Equal(t, "computer-use-2025-11-24", run.Tool.BetaFlag)
	assert.False(t, run.Tool.ZoomEnabled())
	assert.Equal(t, ":1", run.Tool.DisplayNumber)

	cfg.Display.Zoom = true
	assert.True(t, cfg.ToolConfig().ZoomEnabled())
}
