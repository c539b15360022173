package contract

import "context"

// Classifier is the external classification/summarization oracle. Both calls
// may block on network latency; implementations carry their own timeout and
// callers treat a timed-out call like any other failure.
type Classifier interface {
	// Decide asks for a single-field route decision for the given user text.
	Decide(ctx context.Context, systemInstruction, userText string) (RouteDecision, error)
	// Answer asks for a structured answer. Without an output shape the oracle
	// wraps free text in a map with a "summary" field.
	Answer(ctx context.Context, systemInstruction, userText string) (map[string]any, error)
}

// HandlerInput is the read-only view of the run a handler consumes.
type HandlerInput struct {
	Messages        []Turn
	DocumentContext string
}

// Handler is one routable capability. Run is total: an internal failure is
// converted into an assistant turn plus a final answer, never an error that
// aborts the run.
type Handler interface {
	// Label is the route label this handler is dispatched under.
	Label() RouteLabel
	// Name tags turns this handler appends (Turn.OriginHandler).
	Name() string
	Run(ctx context.Context, in HandlerInput) Delta
}
