package agentloop

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// toolCallSignature is the tool name plus a short hash of its arguments.
func toolCallSignature(name string, arguments json.RawMessage) string {
	h := sha256.Sum256(arguments)
	return fmt.Sprintf("%s:%x", name, h[:8])
}

// recentActionSignatures returns the signatures of the last count tool calls
// in chronological order.
func (t *Transcript) recentActionSignatures(count int) []string {
	var sigs []string
	for i := len(t.turns) - 1; i >= 0 && len(sigs) < count; i-- {
		turn := t.turns[i]
		if turn.Kind != TurnAssistant || turn.Assistant == nil {
			continue
		}
		calls := turn.Assistant.ToolCalls()
		for j := len(calls) - 1; j >= 0 && len(sigs) < count; j-- {
			sigs = append(sigs, toolCallSignature(calls[j].Name, calls[j].Arguments))
		}
	}
	for i, j := 0, len(sigs)-1; i < j; i, j = i+1, j-1 {
		sigs[i], sigs[j] = sigs[j], sigs[i]
	}
	return sigs
}

// RepeatingActions reports whether the last window actions follow a
// repeating pattern of length 1, 2 or 3 (e.g. clicking the same spot over
// and over).
func (t *Transcript) RepeatingActions(window int) bool {
	if window <= 1 {
		return false
	}
	sigs := t.recentActionSignatures(window)
	if len(sigs) < window {
		return false
	}

	for patternLen := 1; patternLen <= 3 && patternLen < window; patternLen++ {
		if window%patternLen != 0 {
			continue
		}
		match := true
		for i := patternLen; i < window && match; i++ {
			if sigs[i] != sigs[i%patternLen] {
				match = false
			}
		}
		if match {
			return true
		}
	}
	return false
}
