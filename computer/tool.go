package computer

import (
	"strconv"
	"strings"

	"github.com/martinemde/formpilot/unifiedllm"
)

const (
	DefaultToolType      = "computer_20251124"
	DefaultBetaFlag      = "computer-use-2025-11-24"
	DefaultToolName      = "computer"
	DefaultDisplayWidth  = 1024
	DefaultDisplayHeight = 768
	DefaultDisplayNumber = ":1"
)

// ZoomConfig enables the zoom action. Its presence on a ToolConfig is the
// switch; only newer tool versions accept it.
type ZoomConfig struct{}

// ToolConfig describes the computer tool offered to the assistant.
type ToolConfig struct {
	ToolType      string
	Name          string
	DisplayWidth  int
	DisplayHeight int
	// DisplayNumber is the X11 display, e.g. ":1".
	DisplayNumber string
	Zoom          *ZoomConfig
	// BetaFlag is sent as the anthropic-beta header.
	BetaFlag string
}

// DefaultToolConfig returns the 1024x768 display on ":1" with zoom enabled.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		ToolType:      DefaultToolType,
		Name:          DefaultToolName,
		DisplayWidth:  DefaultDisplayWidth,
		DisplayHeight: DefaultDisplayHeight,
		DisplayNumber: DefaultDisplayNumber,
		Zoom:          &ZoomConfig{},
		BetaFlag:      DefaultBetaFlag,
	}
}

// ZoomEnabled reports whether the zoom action is offered.
func (c ToolConfig) ZoomEnabled() bool { return c.Zoom != nil }

// ToolDefinition renders the config as a provider-native tool. Parameters
// carry a JSON schema for adapters that only understand function tools.
func (c ToolConfig) ToolDefinition() unifiedllm.ToolDefinition {
	name := c.Name
	if name == "" {
		name = DefaultToolName
	}
	toolType := c.ToolType
	if toolType == "" {
		toolType = DefaultToolType
	}

	opts := map[string]interface{}{
		"display_width_px":  c.DisplayWidth,
		"display_height_px": c.DisplayHeight,
	}
	if n, ok := displayNumber(c.DisplayNumber); ok {
		opts["display_number"] = n
	}
	if c.ZoomEnabled() {
		opts["enable_zoom"] = true
	}

	return unifiedllm.ToolDefinition{
		Name:        name,
		Description: "Control the computer display with mouse and keyboard actions.",
		Type:        toolType,
		Options:     opts,
		Parameters:  c.parameters(),
	}
}

// displayNumber converts an X11 display string like ":1" to its number.
func displayNumber(s string) (int, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), ":")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (c ToolConfig) parameters() map[string]interface{} {
	actions := []interface{}{
		"screenshot", "left_click", "right_click", "double_click", "type", "key",
		"mouse_move", "scroll", "left_click_drag",
	}
	if c.ZoomEnabled() {
		actions = append(actions, "zoom")
	}
	point := map[string]interface{}{
		"type":     "array",
		"items":    map[string]interface{}{"type": "integer"},
		"minItems": 2,
		"maxItems": 2,
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action":           map[string]interface{}{"type": "string", "enum": actions},
			"coordinate":       point,
			"start_coordinate": point,
			"text":             map[string]interface{}{"type": "string"},
			"scroll_direction": map[string]interface{}{"type": "string", "enum": []interface{}{"up", "down", "left", "right"}},
			"scroll_amount":    map[string]interface{}{"type": "integer"},
			"region": map[string]interface{}{
				"type":     "array",
				"items":    map[string]interface{}{"type": "integer"},
				"minItems": 4,
				"maxItems": 4,
			},
		},
		"required": []interface{}{"action"},
	}
}
