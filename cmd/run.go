package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/martinemde/formpilot/agentloop"
	"github.com/martinemde/formpilot/computer"
	"github.com/martinemde/formpilot/internal/config"
	"github.com/martinemde/formpilot/unifiedllm"
)

const bannerWidth = 60

// ErrRunUnsuccessful is returned when a run ends with any status other than
// success. The result has been written by then.
var ErrRunUnsuccessful = errors.New("run did not succeed")

// flagKeys maps run flags to their configuration keys.
var flagKeys = map[string]string{
	"objective":       "run.objective",
	"max-iterations":  "run.max_iterations",
	"model":           "assistant.model",
	"provider":        "assistant.provider",
	"max-tokens":      "assistant.max_tokens",
	"request-timeout": "assistant.request_timeout",
	"max-retries":     "assistant.max_retries",
	"display-width":   "display.width",
	"display-height":  "display.height",
	"display-number":  "display.number",
}

func newRunCmd(deps dependencies, cfgFile *string) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Work toward an objective and print the run result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runObjective(cmd, deps, *cfgFile)
		},
	}
	addRunFlags(runCmd)
	return runCmd
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("objective", "o", config.DefaultObjective, "The task objective for the assistant")
	f.String("model", "", "Model to use (default depends on provider)")
	f.String("provider", "anthropic", "Assistant provider: anthropic, openai, groq, mistral or ollama")
	f.Int("max-iterations", agentloop.DefaultMaxIterations, "Maximum number of actions")
	f.Int("max-tokens", agentloop.DefaultMaxTokens, "Maximum tokens per assistant response")
	f.Duration("request-timeout", 0, "Timeout for each assistant request (0 disables)")
	f.Int("max-retries", 0, "Retries for transient assistant errors")
	f.Int("display-width", computer.DefaultDisplayWidth, "Display width in pixels")
	f.Int("display-height", computer.DefaultDisplayHeight, "Display height in pixels")
	f.String("display-number", computer.DefaultDisplayNumber, "X11 display number")
	f.Bool("no-zoom", false, "Disable the zoom action (for models without zoom support)")
	f.BoolP("verbose", "v", false, "Enable debug logging")
}

// loadConfig resolves configuration with flags taking precedence over the
// environment, the config file and defaults.
func loadConfig(cmd *cobra.Command, cfgFile string) (*config.Config, error) {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	if flags.Changed("no-zoom") {
		noZoom, _ := flags.GetBool("no-zoom")
		v.Set("display.zoom", !noZoom)
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		v.Set("logger.level", "debug")
	}
	return config.NewConfigFromViper(v)
}

func runObjective(cmd *cobra.Command, deps dependencies, cfgFile string) error {
	cfg, err := loadConfig(cmd, cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load or validate config: %w", err)
	}

	logger, err := deps.newLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	runCfg := cfg.AgentRunConfig()
	runCfg.Model = resolveModel(cfg.Assistant.Model)
	runCfg.Tool = resolveToolConfig(cfg, runCfg.Model, logger)

	logger.Info("Initializing computer use agent", zap.String("version", Version))
	logger.Info("Model", zap.String("model", runCfg.Model), zap.String("provider", runCfg.Provider))
	logger.Info("Display", zap.String("display",
		fmt.Sprintf("%dx%d (%s)", runCfg.Tool.DisplayWidth, runCfg.Tool.DisplayHeight, runCfg.Tool.DisplayNumber)))
	logger.Info("Zoom enabled", zap.Bool("zoom", runCfg.Tool.ZoomEnabled()))

	assistant, err := deps.newAssistant(cfg, logger)
	if err != nil {
		logger.Error("Failed to create assistant", zap.Error(err))
		return fmt.Errorf("failed to create assistant: %w", err)
	}
	if closer, ok := assistant.(io.Closer); ok {
		defer closer.Close()
	}

	opts := []agentloop.Option{agentloop.WithLogger(logger)}
	if logger.Core().Enabled(zap.DebugLevel) {
		events := agentloop.NewEventEmitter(0)
		done := logRunEvents(logger, events)
		defer func() {
			events.Close()
			<-done
		}()
		opts = append(opts, agentloop.WithEvents(events))
	}

	orch := agentloop.New(assistant, computer.NewSimulatedExecutor(logger), runCfg, opts...)
	result := orch.Run(cmd.Context(), cfg.Run.Objective)

	if err := writeResult(cmd.OutOrStdout(), result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	if result.Status != agentloop.StatusSuccess {
		return fmt.Errorf("%w: status %s", ErrRunUnsuccessful, result.Status)
	}
	return nil
}

// logRunEvents drains events into debug log lines until the emitter is
// closed. The returned channel closes once draining is done.
func logRunEvents(logger *zap.Logger, events *agentloop.EventEmitter) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events.Events() {
			logger.Debug("Run event",
				zap.String("kind", string(ev.Kind)),
				zap.String("run_id", ev.RunID),
				zap.Any("data", ev.Data))
		}
	}()
	return done
}

// resolveModel maps catalog aliases such as "opus" to the model ID.
func resolveModel(model string) string {
	if info := unifiedllm.GetModelInfo(model); info != nil {
		return info.ID
	}
	return model
}

// resolveToolConfig fills the tool version and beta flag from the model
// catalog unless configured, and drops zoom on models that reject it.
func resolveToolConfig(cfg *config.Config, model string, logger *zap.Logger) computer.ToolConfig {
	tool := cfg.ToolConfig()
	info := unifiedllm.GetModelInfo(model)
	if info == nil || info.ComputerUse == nil {
		return tool
	}
	if cfg.Display.ToolType == "" {
		tool.ToolType = info.ComputerUse.ToolType
	}
	if cfg.Display.BetaFlag == "" {
		tool.BetaFlag = info.ComputerUse.BetaFlag
	}
	if tool.ZoomEnabled() && !info.ComputerUse.SupportsZoom {
		logger.Warn("Model does not support zoom; disabling it", zap.String("model", model))
		tool.Zoom = nil
	}
	return tool
}

func writeResult(w io.Writer, result agentloop.RunResult) error {
	doc, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	banner := strings.Repeat("=", bannerWidth)
	_, err = fmt.Fprintf(w, "\n%s\nEXECUTION RESULT\n%s\n%s\n%s\n", banner, banner, doc, banner)
	return err
}
