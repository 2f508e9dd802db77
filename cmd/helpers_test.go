package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/martinemde/formpilot/agentloop"
	"github.com/martinemde/formpilot/internal/config"
	"github.com/martinemde/formpilot/unifiedllm"
)

// scriptedAssistant replays responses in order, repeating the last one.
type scriptedAssistant struct {
	responses []*unifiedllm.Response
	requests  []unifiedllm.Request
	closed    bool
}

func (s *scriptedAssistant) Complete(_ context.Context, req unifiedllm.Request) (*unifiedllm.Response, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

func (s *scriptedAssistant) Close() error {
	s.closed = true
	return nil
}

func finalAnswer(text string) *unifiedllm.Response {
	return &unifiedllm.Response{
		Message:      unifiedllm.Message{Role: unifiedllm.RoleAssistant, Content: []unifiedllm.ContentPart{unifiedllm.TextPart(text)}},
		FinishReason: unifiedllm.FinishReason{Reason: unifiedllm.FinishStop, Raw: "end_turn"},
	}
}

func screenshotCall() *unifiedllm.Response {
	return &unifiedllm.Response{
		Message: unifiedllm.Message{Role: unifiedllm.RoleAssistant, Content: []unifiedllm.ContentPart{
			unifiedllm.ToolCallPart("toolu_1", "computer", json.RawMessage(`{"action":"screenshot"}`)),
		}},
		FinishReason: unifiedllm.FinishReason{Reason: unifiedllm.FinishToolCalls, Raw: "tool_use"},
	}
}

type testHarness struct {
	deps      dependencies
	assistant *scriptedAssistant
	logs      *observer.ObservedLogs
	cfg       *config.Config
}

func newHarness(responses ...*unifiedllm.Response) *testHarness {
	h := &testHarness{assistant: &scriptedAssistant{responses: responses}}
	core, logs := observer.New(zapcore.DebugLevel)
	h.logs = logs
	h.deps = dependencies{
		newAssistant: func(cfg *config.Config, _ *zap.Logger) (agentloop.Assistant, error) {
			h.cfg = cfg
			return h.assistant, nil
		},
		newLogger: func(config.LoggerConfig) (*zap.Logger, error) {
			return zap.New(core), nil
		},
	}
	return h
}

// execute runs the command tree from an empty working directory so no
// stray formpilot.yaml is picked up.
func (h *testHarness) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	root := newRootCommand(h.deps)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// parseResult extracts the JSON document framed by the result banner.
func parseResult(t *testing.T, out string) map[string]interface{} {
	t.Helper()
	banner := strings.Repeat("=", bannerWidth)
	header := banner + "\nEXECUTION RESULT\n" + banner + "\n"
	start := strings.Index(out, header)
	require.GreaterOrEqual(t, start, 0, "missing result banner in %q", out)
	body := out[start+len(header):]
	end := strings.Index(body, "\n"+banner)
	require.GreaterOrEqual(t, end, 0, "missing closing banner")

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body[:end]), &doc))
	return doc
}
