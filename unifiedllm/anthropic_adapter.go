package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	jsoniter "github.com/json-iterator/go"
)

const (
	defaultAnthropicMaxTokens = 2048
	anthropicKeyEnv           = "ANTHROPIC_API_KEY"

	computerTool20250124 = "computer_20250124"
	computerTool20251124 = "computer_20251124"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// AnthropicAdapter talks to the Anthropic beta Messages API through the
// official SDK. Native computer-use tools and beta flags from
// ProviderOptions reach the wire unchanged.
type AnthropicAdapter struct {
	apiKey string
	client anthropic.Client
}

// AnthropicOption configures an AnthropicAdapter.
type AnthropicOption func(*anthropicAdapterConfig)

type anthropicAdapterConfig struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL overrides the API endpoint (used by tests and proxies).
func WithBaseURL(url string) AnthropicOption {
	return func(c *anthropicAdapterConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) AnthropicOption {
	return func(c *anthropicAdapterConfig) {
		c.httpClient = hc
	}
}

// NewAnthropicAdapter creates an adapter. An empty apiKey is read from
// ANTHROPIC_API_KEY.
func NewAnthropicAdapter(apiKey string, opts ...AnthropicOption) (*AnthropicAdapter, error) {
	if apiKey == "" {
		apiKey = os.Getenv(anthropicKeyEnv)
	}
	if apiKey == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "anthropic API key not set (" + anthropicKeyEnv + ")",
		}}
	}

	cfg := &anthropicAdapterConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0), // retries belong to RetryMiddleware
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(cfg.httpClient))
	}

	return &AnthropicAdapter{apiKey: apiKey, client: anthropic.NewClient(clientOpts...)}, nil
}

// Name returns the provider identifier.
func (a *AnthropicAdapter) Name() string { return "anthropic" }

// Complete sends a beta Messages request and returns the translated response.
func (a *AnthropicAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	params, err := a.translateRequest(req)
	if err != nil {
		return nil, err
	}

	msg, err := a.client.Beta.Messages.New(ctx, params)
	if err != nil {
		return nil, a.translateError(ctx, err)
	}
	return a.buildResponse(msg), nil
}

// translateRequest converts a unified Request into beta Messages params.
// Tool results travel as user turns; consecutive same-role turns are merged.
func (a *AnthropicAdapter) translateRequest(req Request) (anthropic.BetaMessageNewParams, error) {
	params := anthropic.BetaMessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: defaultAnthropicMaxTokens,
	}
	if req.MaxTokens != nil {
		params.MaxTokens = int64(*req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	for _, beta := range req.BetaHeaders(a.Name()) {
		params.Betas = append(params.Betas, anthropic.AnthropicBeta(beta))
	}

	for _, msg := range req.Messages {
		role := anthropic.BetaMessageParamRoleUser
		switch msg.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.BetaTextBlockParam{Text: msg.TextContent()})
			continue
		case RoleAssistant:
			role = anthropic.BetaMessageParamRoleAssistant
		}

		blocks := make([]anthropic.BetaContentBlockParamUnion, 0, len(msg.Content))
		for _, part := range msg.Content {
			switch part.Kind {
			case ContentText:
				blocks = append(blocks, anthropic.BetaContentBlockParamUnion{
					OfText: &anthropic.BetaTextBlockParam{Text: part.Text},
				})
			case ContentToolCall:
				if part.ToolCall == nil {
					continue
				}
				input := part.ToolCall.Arguments
				if len(input) == 0 {
					input = json.RawMessage(`{}`)
				}
				blocks = append(blocks, anthropic.BetaContentBlockParamUnion{
					OfToolUse: &anthropic.BetaToolUseBlockParam{
						ID:    part.ToolCall.ID,
						Name:  part.ToolCall.Name,
						Input: input,
					},
				})
			case ContentToolResult:
				if part.ToolResult == nil {
					continue
				}
				result := &anthropic.BetaToolResultBlockParam{
					ToolUseID: part.ToolResult.ToolCallID,
					Content: []anthropic.BetaToolResultBlockParamContentUnion{{
						OfText: &anthropic.BetaTextBlockParam{Text: part.ToolResult.Text()},
					}},
				}
				if part.ToolResult.IsError {
					result.IsError = anthropic.Bool(true)
				}
				blocks = append(blocks, anthropic.BetaContentBlockParamUnion{OfToolResult: result})
			}
		}

		if n := len(params.Messages); n > 0 && params.Messages[n-1].Role == role {
			params.Messages[n-1].Content = append(params.Messages[n-1].Content, blocks...)
			continue
		}
		params.Messages = append(params.Messages, anthropic.BetaMessageParam{Role: role, Content: blocks})
	}

	for _, def := range req.ToolDefs {
		tool, err := a.translateTool(def)
		if err != nil {
			return params, err
		}
		params.Tools = append(params.Tools, tool)
	}

	if req.ToolChoice != nil {
		switch req.ToolChoice.Mode {
		case "auto":
			params.ToolChoice = anthropic.BetaToolChoiceUnionParam{OfAuto: &anthropic.BetaToolChoiceAutoParam{}}
		case "none":
			params.ToolChoice = anthropic.BetaToolChoiceUnionParam{OfNone: &anthropic.BetaToolChoiceNoneParam{}}
		case "required":
			params.ToolChoice = anthropic.BetaToolChoiceUnionParam{OfAny: &anthropic.BetaToolChoiceAnyParam{}}
		case "named":
			params.ToolChoice = anthropic.BetaToolChoiceUnionParam{
				OfTool: &anthropic.BetaToolChoiceToolParam{Name: req.ToolChoice.ToolName},
			}
		}
	}
	return params, nil
}

// translateTool maps a definition onto the SDK's computer-use tool params,
// or onto a custom tool with an input schema for function tools.
func (a *AnthropicAdapter) translateTool(def ToolDefinition) (anthropic.BetaToolUnionParam, error) {
	width := optionInt(def.Options, "display_width_px")
	height := optionInt(def.Options, "display_height_px")
	_, hasDisplay := def.Options["display_number"]
	display := optionInt(def.Options, "display_number")

	switch def.Type {
	case "":
		schema := anthropic.BetaToolInputSchemaParam{}
		if def.Parameters != nil {
			schema.Properties = def.Parameters["properties"]
			if required, ok := def.Parameters["required"].([]interface{}); ok {
				for _, r := range required {
					if s, ok := r.(string); ok {
						schema.Required = append(schema.Required, s)
					}
				}
			}
		}
		tool := &anthropic.BetaToolParam{Name: def.Name, InputSchema: schema}
		if def.Description != "" {
			tool.Description = anthropic.String(def.Description)
		}
		return anthropic.BetaToolUnionParam{OfTool: tool}, nil

	case computerTool20250124:
		tool := &anthropic.BetaToolComputerUse20250124Param{DisplayWidthPx: width, DisplayHeightPx: height}
		if hasDisplay {
			tool.DisplayNumber = anthropic.Int(display)
		}
		return anthropic.BetaToolUnionParam{OfComputerUseTool20250124: tool}, nil

	case computerTool20251124:
		tool := &anthropic.BetaToolComputerUse20251124Param{DisplayWidthPx: width, DisplayHeightPx: height}
		if hasDisplay {
			tool.DisplayNumber = anthropic.Int(display)
		}
		if zoom, ok := def.Options["enable_zoom"].(bool); ok && zoom {
			tool.EnableZoom = anthropic.Bool(true)
		}
		return anthropic.BetaToolUnionParam{OfComputerUseTool20251124: tool}, nil

	default:
		return anthropic.BetaToolUnionParam{}, &InvalidRequestError{ProviderError: ProviderError{
			SDKError: SDKError{Message: fmt.Sprintf("unsupported native tool type %q", def.Type)},
			Provider: a.Name(),
		}}
	}
}

// optionInt reads an integer tool option, accepting any numeric type.
func optionInt(opts map[string]interface{}, key string) int64 {
	switch v := opts[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

// buildResponse converts a beta Messages response into a unified Response.
func (a *AnthropicAdapter) buildResponse(msg *anthropic.BetaMessage) *Response {
	parts := make([]ContentPart, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			parts = append(parts, TextPart(block.Text))
		case "tool_use":
			input, err := codec.Marshal(block.Input)
			if err != nil || len(input) == 0 || string(input) == "null" {
				input = json.RawMessage(`{}`)
			}
			parts = append(parts, ToolCallPart(block.ID, block.Name, input))
		}
	}

	in, out := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	usage := Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
	if n := int(msg.Usage.CacheReadInputTokens); n > 0 {
		usage.CacheReadTokens = &n
	}
	if n := int(msg.Usage.CacheCreationInputTokens); n > 0 {
		usage.CacheWriteTokens = &n
	}

	return &Response{
		ID:           msg.ID,
		Model:        string(msg.Model),
		Provider:     a.Name(),
		Message:      Message{Role: RoleAssistant, Content: parts},
		FinishReason: anthropicFinishReason(string(msg.StopReason)),
		Usage:        usage,
	}
}

func anthropicFinishReason(stop string) FinishReason {
	switch stop {
	case "end_turn", "stop_sequence":
		return FinishReason{Reason: FinishStop, Raw: stop}
	case "tool_use":
		return FinishReason{Reason: FinishToolCalls, Raw: stop}
	case "max_tokens":
		return FinishReason{Reason: FinishLength, Raw: stop}
	default:
		return FinishReason{Reason: FinishOther, Raw: stop}
	}
}

type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// translateError maps SDK failures to the unified error hierarchy. API
// errors go through ErrorFromStatusCode; everything else is a transport
// failure.
func (a *AnthropicAdapter) translateError(ctx context.Context, err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return TransportError(ctxErr)
		}
		return TransportError(err)
	}

	var body anthropicErrorBody
	message := ""
	if raw := apiErr.RawJSON(); raw != "" {
		if codec.UnmarshalFromString(raw, &body) == nil {
			message = body.Error.Message
		}
	}
	if message == "" {
		message = http.StatusText(apiErr.StatusCode)
	}

	var retryAfter *float64
	if apiErr.Response != nil {
		if v := apiErr.Response.Header.Get("retry-after"); v != "" {
			if secs, err := strconv.ParseFloat(v, 64); err == nil {
				retryAfter = &secs
			}
		}
	}

	status := apiErr.StatusCode
	// 529 is Anthropic's "overloaded" status.
	if body.Error.Type == "overloaded_error" {
		status = 529
	}
	if status == 400 && strings.Contains(strings.ToLower(message), "prompt is too long") {
		return &ContextLengthError{ProviderError: ProviderError{
			SDKError:   SDKError{Message: message, Cause: err},
			Provider:   a.Name(),
			StatusCode: status,
			ErrorCode:  body.Error.Type,
		}}
	}
	return ErrorFromStatusCode(status, message, a.Name(), body.Error.Type, retryAfter)
}
