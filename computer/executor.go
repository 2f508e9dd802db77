package computer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Executor carries out one Action and returns the observation reported back
// to the assistant.
type Executor interface {
	Execute(ctx context.Context, action Action) (string, error)
}

// SimulatedExecutor reports what each action would have done without
// touching a display. It holds no state between calls.
type SimulatedExecutor struct {
	logger *zap.Logger
}

// NewSimulatedExecutor returns an executor that logs to logger. A nil logger
// discards output.
func NewSimulatedExecutor(logger *zap.Logger) *SimulatedExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedExecutor{logger: logger.Named("executor")}
}

// Execute returns the synthetic observation for action. Unknown kinds are
// reported in the observation, not as an error.
func (e *SimulatedExecutor) Execute(ctx context.Context, action Action) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch a := action.(type) {
	case Screenshot:
		e.logger.Debug("Would capture screenshot")
		return "Screenshot captured (base64_image_data_would_be_here)", nil

	case Click:
		e.logger.Debug("Would click", zap.String("button", string(a.Button)), zap.Stringer("at", a.At))
		switch a.Button {
		case ButtonRight:
			return "Right-clicked at coordinates " + a.At.String(), nil
		case ButtonDouble:
			return "Double-clicked at coordinates " + a.At.String(), nil
		default:
			return "Clicked at coordinates " + a.At.String(), nil
		}

	case TypeText:
		e.logger.Debug("Would type", zap.String("text", truncate(a.Text, 50)))
		return "Typed: " + a.Text, nil

	case KeyPress:
		e.logger.Debug("Would press key", zap.String("key", a.Key))
		return "Pressed key: " + a.Key, nil

	case MouseMove:
		e.logger.Debug("Would move mouse", zap.Stringer("to", a.To))
		return "Moved mouse to " + a.To.String(), nil

	case Scroll:
		e.logger.Debug("Would scroll", zap.String("direction", a.Direction), zap.Int("amount", a.Amount))
		return fmt.Sprintf("Scrolled %s %d units", a.Direction, a.Amount), nil

	case Drag:
		e.logger.Debug("Would drag", zap.Stringer("from", a.From), zap.Stringer("to", a.To))
		return fmt.Sprintf("Dragged from %s to %s", a.From, a.To), nil

	case Zoom:
		e.logger.Debug("Would zoom", zap.Stringer("region", a.Region))
		return "Zoomed into region " + a.Region.String(), nil

	case Unknown:
		name := a.Name
		if name == "" {
			name = "(none)"
		}
		e.logger.Warn("Unknown action type", zap.String("kind", name))
		return "Unknown action: " + name, nil

	default:
		return "", fmt.Errorf("unsupported action %T", action)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
