package state

import (
	"errors"
	"fmt"

	contractx "github.com/careloop/careline/agent/contract"
)

var (
	ErrNilRunState = errors.New("run state is nil")
	ErrInvalidRun  = errors.New("run id is empty")
)

// RunState is the mutable record threaded through one orchestration run.
// It is created fresh per run, mutated additively by each stage, and
// discarded (or checkpointed by thread id) after the caller reads it.
type RunState struct {
	Messages []contractx.Turn     `json:"messages"`
	Route    contractx.RouteLabel `json:"route,omitempty"`

	Candidates          *contractx.CandidateSet `json:"candidates,omitempty"`
	CandidatesUpdatedAt int64                   `json:"candidates_last_updated,omitempty"`

	DocumentAnswer          *contractx.DocumentAnswer `json:"document_answer,omitempty"`
	DocumentAnswerUpdatedAt int64                     `json:"document_answer_last_updated,omitempty"`

	FinalAnswer string `json:"final_answer,omitempty"`

	// DocumentContext is supplied at run start and never mutated during a run.
	DocumentContext string `json:"document_context,omitempty"`
}

func New(seed []contractx.Turn, documentContext string) *RunState {
	return &RunState{
		Messages:        append([]contractx.Turn(nil), seed...),
		DocumentContext: documentContext,
	}
}

// Apply merges a partial update into the state. Turns are concatenated, never
// replaced; slot timestamps are monotone non-decreasing.
func (s *RunState) Apply(d contractx.Delta) {
	s.Messages = append(s.Messages, d.Messages...)

	if d.Route != "" {
		s.Route = d.Route
	}

	if d.Candidates != nil {
		s.Candidates = d.Candidates
	}
	if d.CandidatesUpdatedAt > s.CandidatesUpdatedAt {
		s.CandidatesUpdatedAt = d.CandidatesUpdatedAt
	}

	if d.DocumentAnswer != nil {
		s.DocumentAnswer = d.DocumentAnswer
	}
	if d.DocumentAnswerUpdatedAt > s.DocumentAnswerUpdatedAt {
		s.DocumentAnswerUpdatedAt = d.DocumentAnswerUpdatedAt
	}

	if d.FinalAnswer != "" {
		s.FinalAnswer = d.FinalAnswer
	}
}

// LatestUserText returns the most recent user turn's text, scanning from the
// end of the log.
func (s *RunState) LatestUserText() (string, bool) {
	if s == nil {
		return "", false
	}
	return contractx.LastUserText(s.Messages)
}

// LastAssistantText returns the most recent assistant turn's text.
func (s *RunState) LastAssistantText() (string, bool) {
	if s == nil {
		return "", false
	}
	return contractx.LastAssistantText(s.Messages)
}

// HandlerInput builds the read-only view a handler consumes.
func (s *RunState) HandlerInput() contractx.HandlerInput {
	return contractx.HandlerInput{
		Messages:        s.Messages,
		DocumentContext: s.DocumentContext,
	}
}

func (s *RunState) Validate() error {
	if s == nil {
		return ErrNilRunState
	}
	for i, m := range s.Messages {
		switch m.Role {
		case contractx.RoleUser, contractx.RoleAssistant, contractx.RoleSystem:
		default:
			return fmt.Errorf("%w: message %d has role %q", contractx.ErrValidation, i, m.Role)
		}
	}
	if s.Route != "" {
		if _, ok := contractx.ParseRouteLabel(string(s.Route)); !ok {
			return fmt.Errorf("%w: route %q outside the label set", contractx.ErrValidation, s.Route)
		}
	}
	return nil
}
