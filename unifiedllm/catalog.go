package unifiedllm

// ComputerUseInfo describes the computer-use tool version a model accepts.
type ComputerUseInfo struct {
	ToolType     string `json:"tool_type"` // e.g. "computer_20251124"
	BetaFlag     string `json:"beta_flag"` // value of the anthropic-beta header
	SupportsZoom bool   `json:"supports_zoom"`
}

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID             string           `json:"id"`
	Provider       string           `json:"provider"`
	DisplayName    string           `json:"display_name"`
	ContextWindow  int              `json:"context_window"`
	MaxOutput      *int             `json:"max_output,omitempty"`
	SupportsTools  bool             `json:"supports_tools"`
	SupportsVision bool             `json:"supports_vision"`
	ComputerUse    *ComputerUseInfo `json:"computer_use,omitempty"`
	Aliases        []string         `json:"aliases,omitempty"`
}

func intPtr(v int) *int { return &v }

var computerUse20251124 = &ComputerUseInfo{
	ToolType:     "computer_20251124",
	BetaFlag:     "computer-use-2025-11-24",
	SupportsZoom: true,
}

var computerUse20250124 = &ComputerUseInfo{
	ToolType: "computer_20250124",
	BetaFlag: "computer-use-2025-01-24",
}

// Models is the built-in model catalog. The first entry per provider is
// the provider's preferred default.
var Models = []ModelInfo{
	// Anthropic
	{
		ID: "claude-opus-4-5-20250929", Provider: "anthropic", DisplayName: "Claude Opus 4.5",
		ContextWindow: 200000, MaxOutput: intPtr(32768),
		SupportsTools: true, SupportsVision: true,
		ComputerUse: computerUse20251124,
		Aliases:     []string{"opus", "claude-opus-4-5"},
	},
	{
		ID: "claude-sonnet-4-5-20250929", Provider: "anthropic", DisplayName: "Claude Sonnet 4.5",
		ContextWindow: 200000, MaxOutput: intPtr(16384),
		SupportsTools: true, SupportsVision: true,
		ComputerUse: computerUse20250124,
		Aliases:     []string{"sonnet", "claude-sonnet-4-5"},
	},
	{
		ID: "claude-haiku-4-5-20251001", Provider: "anthropic", DisplayName: "Claude Haiku 4.5",
		ContextWindow: 200000, MaxOutput: intPtr(16384),
		SupportsTools: true, SupportsVision: true,
		ComputerUse: computerUse20250124,
		Aliases:     []string{"haiku", "claude-haiku-4-5"},
	},

	// OpenAI (via gollm; computer use is offered as a function tool)
	{
		ID: "gpt-4o", Provider: "openai", DisplayName: "GPT-4o",
		ContextWindow: 128000, MaxOutput: intPtr(16384),
		SupportsTools: true, SupportsVision: true,
	},
	{
		ID: "gpt-4o-mini", Provider: "openai", DisplayName: "GPT-4o Mini",
		ContextWindow: 128000, MaxOutput: intPtr(16384),
		SupportsTools: true, SupportsVision: true,
	},
}

// GetModelInfo returns the catalog entry for a model, or nil if unknown.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// GetLatestModel returns the first model for a provider, optionally
// filtered by capability ("tools", "vision" or "computer_use").
func GetLatestModel(provider string, capability string) *ModelInfo {
	for i := range Models {
		if Models[i].Provider != provider {
			continue
		}
		switch capability {
		case "":
			return &Models[i]
		case "vision":
			if Models[i].SupportsVision {
				return &Models[i]
			}
		case "tools":
			if Models[i].SupportsTools {
				return &Models[i]
			}
		case "computer_use":
			if Models[i].ComputerUse != nil {
				return &Models[i]
			}
		}
	}
	return nil
}
