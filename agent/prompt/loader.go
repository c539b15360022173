package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/docqa.txt
	docQARaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Router     string
	DocumentQA string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// This is safe to call concurrently; the embed is compile-time, and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:     strings.TrimSpace(routerRaw),
		DocumentQA: strings.TrimSpace(docQARaw),
	}
}
