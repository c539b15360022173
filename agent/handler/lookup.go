package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/careloop/careline/agent/contract"
)

const (
	// NoneFoundText is the fixed answer when generation yields no candidates.
	NoneFoundText = "No matching candidates were found."

	lookupFailurePrefix = "Candidate lookup failed: "

	candidateCount = 6
	maxListed      = 5
)

var _ contractx.Handler = (*CandidateLookup)(nil)

// CandidateLookup produces a small set of synthetic provider records seeded
// from the latest user turn. A generation failure surfaces as content, not as
// an aborted run.
type CandidateLookup struct {
	generate GenerateFunc
	now      func() time.Time
}

func NewCandidateLookup() *CandidateLookup {
	return &CandidateLookup{
		generate: GenerateCandidates,
		now:      time.Now,
	}
}

func (l *CandidateLookup) Label() contractx.RouteLabel { return contractx.RouteCandidateLookup }

func (l *CandidateLookup) Name() string { return "candidate-lookup" }

func (l *CandidateLookup) Run(_ context.Context, in contractx.HandlerInput) contractx.Delta {
	userText, _ := contractx.LastUserText(in.Messages)

	candidates, err := l.generate(candidateCount, userText)
	if err != nil {
		log.Error().Err(err).Msg("candidate generation failed")
		text := lookupFailurePrefix + err.Error()
		return contractx.Delta{
			FinalAnswer: text,
			Messages: []contractx.Turn{
				contractx.AssistantTurn(text, l.Name(), ""),
			},
		}
	}

	text := summarizeCandidates(candidates)
	return contractx.Delta{
		Candidates:          &contractx.CandidateSet{Candidates: candidates},
		CandidatesUpdatedAt: l.now().Unix(),
		FinalAnswer:         text,
		Messages: []contractx.Turn{
			contractx.AssistantTurn(text, l.Name(), contractx.ResultKeyCandidates),
		},
	}
}

// summarizeCandidates lists up to the first maxListed names (with specialty)
// comma-joined, with an "and N more." suffix when truncated.
func summarizeCandidates(candidates []contractx.Candidate) string {
	if len(candidates) == 0 {
		return NoneFoundText
	}

	shown := candidates
	if len(shown) > maxListed {
		shown = shown[:maxListed]
	}

	parts := make([]string, 0, len(shown))
	for _, c := range shown {
		if strings.TrimSpace(c.Specialty) != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", c.Name, c.Specialty))
		} else {
			parts = append(parts, c.Name)
		}
	}

	out := fmt.Sprintf("Found %d candidates: %s", len(candidates), strings.Join(parts, ", "))
	if rest := len(candidates) - maxListed; rest > 0 {
		return fmt.Sprintf("%s and %d more.", out, rest)
	}
	return out + "."
}
