package finalizer

import (
	"strings"

	contractx "github.com/careloop/careline/agent/contract"
	statex "github.com/careloop/careline/agent/state"
)

// Name tags the turns the finalizer appends.
const Name = "finalizer"

// ApologyText is the last line of defense when no handler left anything behind.
const ApologyText = "I couldn't extract relevant details. Please try refining your query."

// Finalizer resolves the single answer to surface to the user. Every run ends
// here: after Resolve, final_answer is a non-empty string and the log holds at
// least one assistant turn.
type Finalizer struct{}

func New() *Finalizer {
	return &Finalizer{}
}

// Resolve picks, in priority order: an already-set final answer, the text of
// the most recent assistant turn, or the fixed apology. It appends one
// assistant turn with the resolved text; resolving twice yields the same text.
func (f *Finalizer) Resolve(st *statex.RunState) string {
	text := strings.TrimSpace(st.FinalAnswer)
	if text == "" {
		if last, ok := st.LastAssistantText(); ok {
			text = strings.TrimSpace(last)
		}
	}
	if text == "" {
		text = ApologyText
	}

	st.Apply(contractx.Delta{
		FinalAnswer: text,
		Messages: []contractx.Turn{
			contractx.AssistantTurn(text, Name, ""),
		},
	})
	return text
}
