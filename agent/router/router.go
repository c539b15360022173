package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/careloop/careline/agent/contract"
	statex "github.com/careloop/careline/agent/state"
)

// Resolver is the finalizer seen from the router: the dispatch target for all
// non-handler routes.
type Resolver interface {
	Resolve(st *statex.RunState) string
}

// Router owns route classification and the enum-keyed dispatch table. Exactly
// one handler runs per turn; classification failure of any kind falls back to
// the finalize route, never an aborted run.
type Router struct {
	classifier  contractx.Classifier
	resolver    Resolver
	instruction string
	table       map[contractx.RouteLabel]contractx.Handler
}

func New(
	classifier contractx.Classifier,
	resolver Resolver,
	instruction string,
	handlers ...contractx.Handler,
) (*Router, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, errors.New("routing instruction is required")
	}

	table := make(map[contractx.RouteLabel]contractx.Handler, len(handlers))
	for _, h := range handlers {
		if h == nil {
			return nil, errors.New("nil handler")
		}
		label := h.Label()
		if label == contractx.RouteFinalize {
			return nil, fmt.Errorf("handler %s claims the finalize route", h.Name())
		}
		if _, ok := contractx.ParseRouteLabel(string(label)); !ok {
			return nil, fmt.Errorf("handler %s has label %q outside the route set", h.Name(), label)
		}
		if _, dup := table[label]; dup {
			return nil, fmt.Errorf("duplicate handler for route %s", label)
		}
		table[label] = h
	}

	return &Router{
		classifier:  classifier,
		resolver:    resolver,
		instruction: instruction,
		table:       table,
	}, nil
}

// Classify resolves the route label for the most recent user turn. It never
// fails: a missing user turn, a classifier error, or an out-of-set label all
// resolve to finalize.
func (r *Router) Classify(ctx context.Context, turns []contractx.Turn) contractx.RouteLabel {
	userText, ok := contractx.LastUserText(turns)
	if !ok {
		return contractx.RouteFinalize
	}

	decision, err := r.classifier.Decide(ctx, r.instruction, userText)
	if err != nil {
		log.Warn().Err(err).Msg("route classification failed, falling back to finalize")
		return contractx.RouteFinalize
	}

	label, ok := contractx.ParseRouteLabel(decision.Route)
	if !ok {
		log.Warn().Str("route", decision.Route).Msg("classifier returned unknown route, falling back to finalize")
		return contractx.RouteFinalize
	}
	return label
}

// DecideAndDispatch classifies the latest user turn, records the route, and
// invokes the matching handler synchronously, or the resolver directly when
// the route is terminal. Returns the resolved route.
func (r *Router) DecideAndDispatch(ctx context.Context, st *statex.RunState) contractx.RouteLabel {
	route := r.Classify(ctx, st.Messages)
	log.Info().Str("route", string(route)).Msg("router decided route")

	st.Apply(contractx.Delta{Route: route})

	if h, ok := r.table[route]; ok {
		st.Apply(h.Run(ctx, st.HandlerInput()))
		return route
	}

	r.resolver.Resolve(st)
	return route
}
