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
	// NoDocumentText is the defined outcome for a run without document
	// context. Not a failure.
	NoDocumentText = "No document data is available for this conversation. Please upload a document first."

	noAnswerPrefix = "No answer produced from the document: "
)

var _ contractx.Handler = (*DocumentQA)(nil)

// DocumentQA answers the latest user question from the supplied document
// context via the oracle's structured-answer mode.
type DocumentQA struct {
	oracle      contractx.Classifier
	instruction string
	now         func() time.Time
}

func NewDocumentQA(oracle contractx.Classifier, instruction string) *DocumentQA {
	return &DocumentQA{
		oracle:      oracle,
		instruction: strings.TrimSpace(instruction),
		now:         time.Now,
	}
}

func (d *DocumentQA) Label() contractx.RouteLabel { return contractx.RouteDocumentQA }

func (d *DocumentQA) Name() string { return "document-qa" }

func (d *DocumentQA) Run(ctx context.Context, in contractx.HandlerInput) contractx.Delta {
	userText, _ := contractx.LastUserText(in.Messages)

	doc := strings.TrimSpace(in.DocumentContext)
	if doc == "" {
		return d.delta(&contractx.DocumentAnswer{NoData: true}, NoDocumentText)
	}

	payload := fmt.Sprintf("Document:\n%s\n\nUser question: %s", doc, userText)
	fields, err := d.oracle.Answer(ctx, d.instruction, payload)
	if err != nil {
		log.Error().Err(err).Msg("document-qa oracle call failed")
		answer := &contractx.DocumentAnswer{Fields: map[string]any{"error": err.Error()}}
		return d.delta(answer, noAnswerPrefix+err.Error())
	}

	return d.delta(&contractx.DocumentAnswer{Fields: fields}, displayString(fields))
}

func (d *DocumentQA) delta(answer *contractx.DocumentAnswer, text string) contractx.Delta {
	return contractx.Delta{
		DocumentAnswer:          answer,
		DocumentAnswerUpdatedAt: d.now().Unix(),
		FinalAnswer:             text,
		Messages: []contractx.Turn{
			contractx.AssistantTurn(text, d.Name(), contractx.ResultKeyDocumentAnswer),
		},
	}
}

// displayString reduces whatever shape the oracle returned to a plain string.
// It must never fail to produce some text.
func displayString(fields map[string]any) string {
	for _, key := range []string{"summary", "content", "text", "answer"} {
		if v, ok := fields[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return fmt.Sprintf("%v", fields)
}
