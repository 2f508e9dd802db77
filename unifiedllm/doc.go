// Package unifiedllm is a small provider-agnostic LLM client used by the
// computer-use agent. It presents one request/response shape over two kinds
// of backend:
//
//   - AnthropicAdapter speaks the Anthropic Messages API directly so that
//     provider-native tools (the computer-use tool) and beta flags reach the
//     wire unchanged.
//   - GollmAdapter wraps github.com/teilomillet/gollm for every other
//     provider gollm supports. Native tools are offered to those models as
//     plain function tools.
//
// # Client
//
// Client routes a Request to a registered adapter and runs it through a
// middleware chain (logging, retry):
//
//	adapter, err := unifiedllm.NewAnthropicAdapter("") // reads ANTHROPIC_API_KEY
//	if err != nil {
//	    return err
//	}
//	client := unifiedllm.NewClient(
//	    unifiedllm.WithProvider("anthropic", adapter),
//	    unifiedllm.WithMiddleware(unifiedllm.LoggingMiddleware(logger)),
//	)
//
//	resp, err := client.Complete(ctx, unifiedllm.Request{
//	    Model:    "claude-opus-4-5-20250929",
//	    Messages: []unifiedllm.Message{unifiedllm.UserMessage("Hello")},
//	})
//
// # Errors
//
// Adapters return errors from the SDKError family (AuthenticationError,
// RateLimitError, ServerError, ...). IsRetryable classifies them and works
// through wrapping.
//
// # Model Catalog
//
// GetModelInfo resolves model identifiers and aliases to catalog entries,
// including which computer-use tool version a model accepts.
package unifiedllm
