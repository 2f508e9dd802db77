package agentloop

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/martinemde/formpilot/computer"
	"github.com/martinemde/formpilot/unifiedllm"
)

const (
	DefaultModel               = "claude-opus-4-5-20250929"
	DefaultMaxIterations       = 50
	DefaultMaxTokens           = 2048
	DefaultLoopDetectionWindow = 10

	noTextResponse   = "No text response"
	errMaxIterations = "max iterations exceeded"
	errNoToolUse     = "response contained no tool use"
)

// Assistant proposes the next action for a transcript. *unifiedllm.Client
// satisfies it.
type Assistant interface {
	Complete(ctx context.Context, req unifiedllm.Request) (*unifiedllm.Response, error)
}

// Status is the terminal state of a run.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusIncomplete Status = "incomplete"
)

// RunConfig holds the per-run settings.
type RunConfig struct {
	Model    string `json:"model"`
	Provider string `json:"provider,omitempty"`
	// MaxIterations bounds the number of actions. Zero never calls the
	// assistant.
	MaxIterations  int                 `json:"max_iterations"`
	MaxTokens      int                 `json:"max_tokens"`
	RequestTimeout time.Duration       `json:"request_timeout"` // 0 = none
	Tool           computer.ToolConfig `json:"tool"`
	// LoopDetectionWindow is how many recent actions are checked for a
	// repeating pattern. 0 disables the check.
	LoopDetectionWindow int `json:"loop_detection_window"`
}

// DefaultRunConfig returns the default configuration.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Model:               DefaultModel,
		MaxIterations:       DefaultMaxIterations,
		MaxTokens:           DefaultMaxTokens,
		Tool:                computer.DefaultToolConfig(),
		LoopDetectionWindow: DefaultLoopDetectionWindow,
	}
}

// RunResult summarises a finished run.
type RunResult struct {
	RunID           string           `json:"run_id"`
	Status          Status           `json:"status"`
	Result          string           `json:"result,omitempty"`
	Error           string           `json:"error,omitempty"`
	Iterations      int              `json:"iterations"`
	ToolUses        int              `json:"tool_uses"`
	DurationSeconds float64          `json:"duration_seconds"`
	Usage           unifiedllm.Usage `json:"usage"`
}

// Orchestrator drives the request, dispatch and observe loop between an
// Assistant and an Executor. Runs are sequential; an Orchestrator may be
// reused for several runs but not concurrently.
type Orchestrator struct {
	assistant Assistant
	executor  computer.Executor
	config    RunConfig
	toolDef   unifiedllm.ToolDefinition
	logger    *zap.Logger
	events    *EventEmitter
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEvents publishes run events to emitter. The caller owns and closes it.
func WithEvents(emitter *EventEmitter) Option {
	return func(o *Orchestrator) {
		o.events = emitter
	}
}

// New creates an Orchestrator. Zero Model and MaxTokens take the defaults.
func New(assistant Assistant, executor computer.Executor, cfg RunConfig, opts ...Option) *Orchestrator {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	o := &Orchestrator{
		assistant: assistant,
		executor:  executor,
		config:    cfg,
		toolDef:   cfg.Tool.ToolDefinition(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.Named("orchestrator")
	return o
}

// Config returns the effective run configuration.
func (o *Orchestrator) Config() RunConfig { return o.config }

// Run works toward objective until the assistant finishes, the iteration cap
// is reached, the assistant fails or ctx is done. It always returns a result;
// failures are reported through Status and Error.
func (o *Orchestrator) Run(ctx context.Context, objective string) RunResult {
	return o.run(ctx, objective, NewTranscript(objective))
}

func (o *Orchestrator) run(ctx context.Context, objective string, tr *Transcript) RunResult {
	runID := uuid.New().String()
	logger := o.logger.With(zap.String("run_id", runID))
	start := time.Now()
	res := RunResult{RunID: runID}

	finish := func(status Status) RunResult {
		res.Status = status
		res.DurationSeconds = time.Since(start).Seconds()
		o.events.Emit(runID, EventRunEnd, map[string]interface{}{
			"status":     string(status),
			"iterations": res.Iterations,
			"tool_uses":  res.ToolUses,
		})
		return res
	}
	fail := func(err error) RunResult {
		logger.Error("Error during execution", zap.Error(err), zap.Int("iterations", res.Iterations))
		res.Error = err.Error()
		o.events.Emit(runID, EventError, map[string]interface{}{"error": res.Error})
		return finish(StatusError)
	}

	logger.Info("Starting execution", zap.String("objective", objective))
	o.events.Emit(runID, EventRunStart, map[string]interface{}{"objective": objective})

	for res.Iterations < o.config.MaxIterations {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		logger.Info("Iteration",
			zap.Int("iteration", res.Iterations+1),
			zap.Int("max_iterations", o.config.MaxIterations))
		o.events.Emit(runID, EventIteration, map[string]interface{}{"iteration": res.Iterations + 1})

		resp, err := o.complete(ctx, tr)
		if err != nil {
			return fail(err)
		}
		res.Usage = res.Usage.Add(resp.Usage)

		if resp.FinishReason.Reason == unifiedllm.FinishStop {
			text, ok := resp.Message.FirstText()
			if !ok {
				text = noTextResponse
			}
			res.Result = text
			done := finish(StatusSuccess)
			logger.Info("Execution completed",
				zap.Float64("duration_seconds", done.DurationSeconds),
				zap.Int("iterations", done.Iterations))
			return done
		}

		calls := resp.Message.ToolCalls()
		if len(calls) == 0 {
			logger.Warn("Response without tool use", zap.String("finish_reason", resp.FinishReason.Raw))
			res.Error = errNoToolUse
			return finish(StatusIncomplete)
		}
		call := calls[0]
		if len(calls) > 1 {
			logger.Warn("Ignoring extra tool calls", zap.Int("tool_calls", len(calls)))
		}

		action := computer.ParseAction(call.Arguments)
		kind := action.Kind()
		if kind == "" {
			kind = "unknown"
		}
		logger.Info("Tool action", zap.String("kind", kind))
		o.events.Emit(runID, EventAction, map[string]interface{}{"call_id": call.ID, "kind": kind})

		observation, isError := o.execute(ctx, logger, action)
		o.events.Emit(runID, EventObservation, map[string]interface{}{
			"call_id":  call.ID,
			"content":  observation,
			"is_error": isError,
		})

		tr.AppendAssistant(keepToolCall(resp.Message, call.ID))
		tr.AppendObservation(call.ID, observation, isError)
		res.ToolUses++
		res.Iterations++

		if w := o.config.LoopDetectionWindow; w > 0 && tr.RepeatingActions(w) {
			logger.Warn("Repeating action pattern detected", zap.Int("window", w))
			o.events.Emit(runID, EventLoopDetection, map[string]interface{}{"window": w})
		}
	}

	logger.Warn("Max iterations exceeded", zap.Int("max_iterations", o.config.MaxIterations))
	res.Error = errMaxIterations
	return finish(StatusIncomplete)
}

// complete sends the transcript to the assistant.
func (o *Orchestrator) complete(ctx context.Context, tr *Transcript) (*unifiedllm.Response, error) {
	maxTokens := o.config.MaxTokens
	req := unifiedllm.Request{
		Model:     o.config.Model,
		Provider:  o.config.Provider,
		Messages:  tr.Messages(),
		ToolDefs:  []unifiedllm.ToolDefinition{o.toolDef},
		MaxTokens: &maxTokens,
	}
	if beta := o.config.Tool.BetaFlag; beta != "" {
		req.ProviderOptions = map[string]interface{}{
			"anthropic": map[string]interface{}{"beta_headers": []string{beta}},
		}
	}

	if o.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.RequestTimeout)
		defer cancel()
	}

	resp, err := o.assistant.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("assistant returned no response")
	}
	return resp, nil
}

// execute dispatches one action. Executor failures become error
// observations so the assistant can react to them.
func (o *Orchestrator) execute(ctx context.Context, logger *zap.Logger, action computer.Action) (string, bool) {
	observation, err := o.executor.Execute(ctx, action)
	if err != nil {
		logger.Warn("Action failed", zap.String("kind", action.Kind()), zap.Error(err))
		return "Error executing action: " + err.Error(), true
	}
	return observation, false
}

// keepToolCall drops every tool call part except callID, since each
// recorded tool use must be answered by an observation.
func keepToolCall(msg unifiedllm.Message, callID string) unifiedllm.Message {
	parts := make([]unifiedllm.ContentPart, 0, len(msg.Content))
	for _, part := range msg.Content {
		if part.Kind == unifiedllm.ContentToolCall && (part.ToolCall == nil || part.ToolCall.ID != callID) {
			continue
		}
		parts = append(parts, part)
	}
	msg.Content = parts
	return msg
}
