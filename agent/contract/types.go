package contract

import "strings"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one message in the conversation log. Turns are immutable once
// appended; the log only grows.
type Turn struct {
	Role          Role   `json:"role"`
	Text          string `json:"text"`
	OriginHandler string `json:"origin_handler,omitempty"`
	ResultKey     string `json:"result_key,omitempty"`
}

func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

func AssistantTurn(text, origin, resultKey string) Turn {
	return Turn{Role: RoleAssistant, Text: text, OriginHandler: origin, ResultKey: resultKey}
}

// LastUserText scans the log from the end and returns the text of the most
// recent user turn. Later user turns always win over earlier ones.
func LastUserText(turns []Turn) (string, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleUser {
			return turns[i].Text, true
		}
	}
	return "", false
}

// LastAssistantText scans the log from the end for the most recent assistant turn.
func LastAssistantText(turns []Turn) (string, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleAssistant {
			return turns[i].Text, true
		}
	}
	return "", false
}

type RouteLabel string

const (
	RouteCandidateLookup RouteLabel = "candidate-lookup"
	RouteDocumentQA      RouteLabel = "document-qa"
	RouteFinalize        RouteLabel = "finalize"
)

// ParseRouteLabel maps classifier output to a label in the fixed set.
// Anything outside the set is rejected; callers fall back to finalize.
func ParseRouteLabel(s string) (RouteLabel, bool) {
	switch RouteLabel(strings.TrimSpace(strings.ToLower(s))) {
	case RouteCandidateLookup:
		return RouteCandidateLookup, true
	case RouteDocumentQA:
		return RouteDocumentQA, true
	case RouteFinalize:
		return RouteFinalize, true
	default:
		return "", false
	}
}

// RouteDecision is the single-field structured output contract of the
// classification oracle.
type RouteDecision struct {
	Route string `json:"route"`
}

// Candidate is one synthetic provider record produced by candidate lookup.
type Candidate struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Gender          string  `json:"gender"`
	Specialty       string  `json:"specialty"`
	Rating          float64 `json:"rating"`
	YearsExperience int     `json:"years_experience"`
	Location        string  `json:"location"`
	ContactEmail    string  `json:"contact_email"`
}

// CandidateSet is the result slot owned by the candidate-lookup handler.
// A non-nil set with zero candidates is a written slot, not an absent one.
type CandidateSet struct {
	Candidates []Candidate `json:"candidates"`
}

// DocumentAnswer is the result slot owned by the document-qa handler.
// NoData marks the defined no-document outcome; Fields carries whatever
// shape the oracle returned otherwise.
type DocumentAnswer struct {
	Fields map[string]any `json:"fields,omitempty"`
	NoData bool           `json:"no_data,omitempty"`
}

// Result slot names used as Turn.ResultKey tags.
const (
	ResultKeyCandidates     = "candidates"
	ResultKeyDocumentAnswer = "document_answer"
)

// Delta is a partial state update returned by a stage. Applying a delta is a
// pure additive merge: turns are appended, slot writes fill their slot,
// timestamps never move backwards.
type Delta struct {
	Messages []Turn

	Route RouteLabel

	Candidates          *CandidateSet
	CandidatesUpdatedAt int64

	DocumentAnswer          *DocumentAnswer
	DocumentAnswerUpdatedAt int64

	FinalAnswer string
}
