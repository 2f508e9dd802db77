package agentloop

import (
	"time"

	"github.com/martinemde/formpilot/unifiedllm"
)

// TurnKind discriminates between turn types.
type TurnKind string

const (
	TurnObjective   TurnKind = "objective"
	TurnAssistant   TurnKind = "assistant"
	TurnObservation TurnKind = "observation"
)

// Turn is a single entry in the transcript.
type Turn struct {
	Kind        TurnKind            `json:"kind"`
	Timestamp   time.Time           `json:"timestamp"`
	Objective   string              `json:"objective,omitempty"`
	Assistant   *unifiedllm.Message `json:"assistant,omitempty"`
	Observation *ObservationTurn    `json:"observation,omitempty"`
}

// ObservationTurn is the executor's report for one tool call.
type ObservationTurn struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Transcript is the append-only conversation of one run. It is not safe for
// concurrent use.
type Transcript struct {
	turns []Turn
}

// NewTranscript starts a transcript with the objective as its only turn.
func NewTranscript(objective string) *Transcript {
	return &Transcript{turns: []Turn{{
		Kind:      TurnObjective,
		Timestamp: time.Now(),
		Objective: objective,
	}}}
}

// AppendAssistant records the assistant message verbatim, tool call parts
// included.
func (t *Transcript) AppendAssistant(msg unifiedllm.Message) {
	msg.Role = unifiedllm.RoleAssistant
	t.turns = append(t.turns, Turn{
		Kind:      TurnAssistant,
		Timestamp: time.Now(),
		Assistant: &msg,
	})
}

// AppendObservation records the result of the tool call identified by callID.
func (t *Transcript) AppendObservation(callID, content string, isError bool) {
	t.turns = append(t.turns, Turn{
		Kind:        TurnObservation,
		Timestamp:   time.Now(),
		Observation: &ObservationTurn{ToolCallID: callID, Content: content, IsError: isError},
	})
}

// Len returns the number of turns.
func (t *Transcript) Len() int { return len(t.turns) }

// Turns returns a copy of the turns.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Messages converts the transcript into request messages.
func (t *Transcript) Messages() []unifiedllm.Message {
	messages := make([]unifiedllm.Message, 0, len(t.turns))
	for _, turn := range t.turns {
		switch turn.Kind {
		case TurnObjective:
			messages = append(messages, unifiedllm.UserMessage(turn.Objective))
		case TurnAssistant:
			if turn.Assistant != nil {
				messages = append(messages, *turn.Assistant)
			}
		case TurnObservation:
			if obs := turn.Observation; obs != nil {
				messages = append(messages, unifiedllm.ToolResultMessage(obs.ToolCallID, obs.Content, obs.IsError))
			}
		}
	}
	return messages
}
