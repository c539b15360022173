package runner

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/careloop/careline/agent/contract"
	finalizerx "github.com/careloop/careline/agent/finalizer"
	routerx "github.com/careloop/careline/agent/router"
	statex "github.com/careloop/careline/agent/state"
)

type fakeClassifier struct {
	decision  contractx.RouteDecision
	decideErr error
}

func (f *fakeClassifier) Decide(context.Context, string, string) (contractx.RouteDecision, error) {
	if f.decideErr != nil {
		return contractx.RouteDecision{}, f.decideErr
	}
	return f.decision, nil
}

func (f *fakeClassifier) Answer(context.Context, string, string) (map[string]any, error) {
	return nil, errors.New("not used")
}

type fakeHandler struct {
	label contractx.RouteLabel
	name  string
	delta contractx.Delta

	lastIn contractx.HandlerInput
}

func (f *fakeHandler) Label() contractx.RouteLabel { return f.label }
func (f *fakeHandler) Name() string                { return f.name }

func (f *fakeHandler) Run(_ context.Context, in contractx.HandlerInput) contractx.Delta {
	f.lastIn = in
	return f.delta
}

type failingStore struct {
	saved   map[string]*statex.RunState
	saveErr error
	loadErr error
}

func newFailingStore() *failingStore {
	return &failingStore{saved: make(map[string]*statex.RunState)}
}

func (s *failingStore) Load(_ context.Context, threadID string) (*statex.RunState, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	st, ok := s.saved[threadID]
	if !ok {
		return nil, statex.ErrStateNotFound
	}
	return st, nil
}

func (s *failingStore) Save(_ context.Context, threadID string, st *statex.RunState) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved[threadID] = st
	return nil
}

func (s *failingStore) Delete(_ context.Context, threadID string) error {
	delete(s.saved, threadID)
	return nil
}

func newTestRunner(t *testing.T, classifier contractx.Classifier, handler contractx.Handler, opts ...Option) *Runner {
	t.Helper()

	resolver := finalizerx.New()
	handlers := []contractx.Handler{}
	if handler != nil {
		handlers = append(handlers, handler)
	}
	rt, err := routerx.New(classifier, resolver, "route the message", handlers...)
	if err != nil {
		t.Fatalf("router.New() error = %v", err)
	}
	r, err := New(rt, resolver, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestRunAlwaysProducesAnAnswer(t *testing.T) {
	t.Parallel()

	// classifier down, no handlers wired: the run still completes
	r := newTestRunner(t, &fakeClassifier{decideErr: errors.New("oracle down")}, nil)

	st := r.Run(context.Background(), []contractx.Turn{contractx.UserTurn("hello")}, "")
	if st.FinalAnswer == "" {
		t.Fatal("run finished without a final answer")
	}
	if _, ok := st.LastAssistantText(); !ok {
		t.Fatal("run finished without an assistant turn")
	}
	if st.Route != contractx.RouteFinalize {
		t.Fatalf("Route = %q, want finalize", st.Route)
	}
}

func TestRunDispatchesAndResolvesOnce(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{
		label: contractx.RouteDocumentQA,
		name:  "document-qa",
		delta: contractx.Delta{
			FinalAnswer: "from the document",
			Messages:    []contractx.Turn{contractx.AssistantTurn("from the document", "document-qa", contractx.ResultKeyDocumentAnswer)},
		},
	}
	r := newTestRunner(t, &fakeClassifier{decision: contractx.RouteDecision{Route: "document-qa"}}, h)

	st := r.Run(context.Background(), []contractx.Turn{contractx.UserTurn("what does it say?")}, "doc body")

	if st.FinalAnswer != "from the document" {
		t.Fatalf("FinalAnswer = %q", st.FinalAnswer)
	}
	if st.Route != contractx.RouteDocumentQA {
		t.Fatalf("Route = %q", st.Route)
	}
	// seed user turn + handler turn + one finalizer turn
	if len(st.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3: %#v", len(st.Messages), st.Messages)
	}
	if st.Messages[2].OriginHandler != finalizerx.Name {
		t.Fatalf("last turn origin = %q, want finalizer", st.Messages[2].OriginHandler)
	}
}

func TestRunFallbackDocumentDoesNotOverride(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{label: contractx.RouteDocumentQA, name: "document-qa"}
	r := newTestRunner(t,
		&fakeClassifier{decision: contractx.RouteDecision{Route: "document-qa"}},
		h,
		WithFallbackDocument("fallback text"),
	)

	r.Run(context.Background(), []contractx.Turn{contractx.UserTurn("q")}, "supplied text")
	if h.lastIn.DocumentContext != "supplied text" {
		t.Fatalf("handler context = %q, want the supplied text", h.lastIn.DocumentContext)
	}

	r.Run(context.Background(), []contractx.Turn{contractx.UserTurn("q")}, "")
	if h.lastIn.DocumentContext != "fallback text" {
		t.Fatalf("handler context = %q, want the fallback", h.lastIn.DocumentContext)
	}
}

func TestRunThreadMergesPriorTurns(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{label: contractx.RouteDocumentQA, name: "document-qa"}
	store := newFailingStore()
	r := newTestRunner(t,
		&fakeClassifier{decision: contractx.RouteDecision{Route: "document-qa"}},
		h,
		WithStore(store),
	)

	first, err := r.RunThread(context.Background(), "t1", []contractx.Turn{contractx.UserTurn("first")}, "doc")
	if err != nil {
		t.Fatalf("RunThread() error = %v", err)
	}
	if _, ok := store.saved["t1"]; !ok {
		t.Fatal("state was not checkpointed")
	}

	second, err := r.RunThread(context.Background(), "t1", []contractx.Turn{contractx.UserTurn("second")}, "")
	if err != nil {
		t.Fatalf("RunThread() error = %v", err)
	}
	if len(second.Messages) <= len(first.Messages) {
		t.Fatalf("prior turns not prepended: first %d turns, second %d", len(first.Messages), len(second.Messages))
	}
	if second.Messages[0].Text != "first" {
		t.Fatalf("Messages[0].Text = %q, want the prior turn first", second.Messages[0].Text)
	}
	if h.lastIn.DocumentContext != "doc" {
		t.Fatalf("handler context = %q, want the prior document context inherited", h.lastIn.DocumentContext)
	}
}

func TestRunThreadLoadFailureStartsFresh(t *testing.T) {
	t.Parallel()

	store := newFailingStore()
	store.loadErr = errors.New("redis down")
	r := newTestRunner(t, &fakeClassifier{decideErr: errors.New("also down")}, nil, WithStore(store))

	st, err := r.RunThread(context.Background(), "t2", []contractx.Turn{contractx.UserTurn("hi")}, "")
	if err != nil {
		t.Fatalf("RunThread() error = %v", err)
	}
	if st.FinalAnswer == "" {
		t.Fatalf("RunThread() state = %#v", st)
	}
}

func TestRunThreadSaveFailureStillReturnsState(t *testing.T) {
	t.Parallel()

	store := newFailingStore()
	store.saveErr = errors.New("disk full")
	r := newTestRunner(t, &fakeClassifier{decideErr: errors.New("oracle down")}, nil, WithStore(store))

	st, err := r.RunThread(context.Background(), "t3", []contractx.Turn{contractx.UserTurn("hi")}, "")
	if err == nil {
		t.Fatal("RunThread() error = nil, want the save failure surfaced")
	}
	if st == nil || st.FinalAnswer == "" {
		t.Fatal("RunThread() dropped the completed state on save failure")
	}
}

func TestRunThreadWithoutStore(t *testing.T) {
	t.Parallel()

	r := newTestRunner(t, &fakeClassifier{decideErr: errors.New("down")}, nil)

	st, err := r.RunThread(context.Background(), "ignored", []contractx.Turn{contractx.UserTurn("hi")}, "")
	if err != nil {
		t.Fatalf("RunThread() error = %v", err)
	}
	if st.FinalAnswer == "" {
		t.Fatal("RunThread() without a store produced no answer")
	}
}
