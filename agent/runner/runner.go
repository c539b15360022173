package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/careloop/careline/agent/contract"
	routerx "github.com/careloop/careline/agent/router"
	statex "github.com/careloop/careline/agent/state"
)

// Runner is the entry point of one orchestration run: it seeds a fresh
// RunState, executes router → handler → finalizer in sequence, and returns the
// accumulated state. Runs are independent; concurrent runs share no state
// beyond the optional checkpoint store.
type Runner struct {
	router   *routerx.Router
	resolver routerx.Resolver

	store            statex.Store
	fallbackDocument string
}

type Option func(*Runner)

// WithStore enables run-state checkpointing by thread id.
func WithStore(store statex.Store) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithFallbackDocument sets document context used when a run supplies none.
// An explicitly supplied context is never overwritten.
func WithFallbackDocument(text string) Option {
	return func(r *Runner) {
		r.fallbackDocument = text
	}
}

func New(router *routerx.Router, resolver routerx.Resolver, opts ...Option) (*Runner, error) {
	if router == nil {
		return nil, errors.New("router is required")
	}
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}

	r := &Runner{
		router:   router,
		resolver: resolver,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Run executes one orchestration run over the seed turns. The returned state
// always carries a non-empty final answer and at least one assistant turn.
func (r *Runner) Run(ctx context.Context, seed []contractx.Turn, documentContext string) *statex.RunState {
	st := statex.New(seed, documentContext)
	if st.DocumentContext == "" && r.fallbackDocument != "" {
		st.DocumentContext = r.fallbackDocument
	}

	route := r.router.DecideAndDispatch(ctx, st)
	// the terminal route resolves inside dispatch; handler routes resolve here
	if route != contractx.RouteFinalize {
		r.resolver.Resolve(st)
	}
	return st
}

// RunThread is Run with checkpointing: prior turns for the thread are
// prepended to the seed and the resulting state is saved back under the same
// id (last-writer-wins). Without a configured store it degrades to Run.
func (r *Runner) RunThread(ctx context.Context, threadID string, seed []contractx.Turn, documentContext string) (*statex.RunState, error) {
	if r.store == nil {
		return r.Run(ctx, seed, documentContext), nil
	}

	merged := seed
	docContext := documentContext

	prior, err := r.store.Load(ctx, threadID)
	switch {
	case err == nil:
		merged = append(append([]contractx.Turn(nil), prior.Messages...), seed...)
		if docContext == "" {
			docContext = prior.DocumentContext
		}
	case errors.Is(err, statex.ErrStateNotFound):
	default:
		log.Warn().Err(err).Str("thread_id", threadID).Msg("checkpoint load failed, starting fresh")
	}

	st := r.Run(ctx, merged, docContext)

	if err := r.store.Save(ctx, threadID, st); err != nil {
		return st, fmt.Errorf("save checkpoint for thread %s: %w", threadID, err)
	}
	return st, nil
}
