package agentloop

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/formpilot/unifiedllm"
)

func assistantCall(id, args string) unifiedllm.Message {
	return unifiedllm.Message{Role: unifiedllm.RoleAssistant, Content: []unifiedllm.ContentPart{
		unifiedllm.ToolCallPart(id, "computer", json.RawMessage(args)),
	}}
}

func TestTranscriptMessages(t *testing.T) {
	tr := NewTranscript("Open the settings")
	tr.AppendAssistant(assistantCall("t1", `{"action":"screenshot"}`))
	tr.AppendObservation("t1", "Screenshot captured", false)
	tr.AppendAssistant(assistantCall("t2", `{"action":"key","text":"Escape"}`))
	tr.AppendObservation("t2", "Error executing action: boom", true)

	msgs := tr.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, unifiedllm.RoleUser, msgs[0].Role)
	assert.Equal(t, "Open the settings", msgs[0].TextContent())
	assert.Equal(t, unifiedllm.RoleAssistant, msgs[1].Role)
	assert.Equal(t, unifiedllm.RoleTool, msgs[2].Role)

	result := msgs[4].Content[0].ToolResult
	require.NotNil(t, result)
	assert.Equal(t, "t2", result.ToolCallID)
	assert.True(t, result.IsError)
	assert.Equal(t, "Error executing action: boom", result.Text())
}

func TestTranscriptAssistantRoleForced(t *testing.T) {
	tr := NewTranscript("x")
	msg := assistantCall("t1", `{}`)
	msg.Role = unifiedllm.RoleUser
	tr.AppendAssistant(msg)
	assert.Equal(t, unifiedllm.RoleAssistant, tr.Messages()[1].Role)
}

func TestTranscriptTurnsIsCopy(t *testing.T) {
	tr := NewTranscript("x")
	turns := tr.Turns()
	turns[0].Objective = "changed"
	assert.Equal(t, "x", tr.Turns()[0].Objective)
	assert.Equal(t, 1, tr.Len())
}

func TestRepeatingActions(t *testing.T) {
	click := `{"action":"left_click","coordinate":[5,5]}`
	shot := `{"action":"screenshot"}`
	typing := `{"action":"type","text":"a"}`

	build := func(args ...string) *Transcript {
		tr := NewTranscript("x")
		for i, a := range args {
			id := string(rune('a' + i))
			tr.AppendAssistant(assistantCall(id, a))
			tr.AppendObservation(id, "ok", false)
		}
		return tr
	}

	tests := []struct {
		name   string
		args   []string
		window int
		want   bool
	}{
		{"same action", []string{click, click, click, click}, 4, true},
		{"too few actions", []string{click, click}, 4, false},
		{"alternating pair", []string{click, shot, click, shot}, 4, true},
		{"triple cycle", []string{click, shot, typing, click, shot, typing}, 6, true},
		{"no pattern", []string{click, shot, typing, shot}, 4, false},
		{"only recent window counts", []string{typing, shot, click, click, click}, 3, true},
		{"window of one", []string{click}, 1, false},
		{"disabled", []string{click, click}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, build(tt.args...).RepeatingActions(tt.window))
		})
	}
}
