// Package llm provides the language-model collaborators of the
// ingestion engine: the concept extractor and the placement oracle, on
// top of a narrow completion Provider interface.
package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error)
	IsAvailable() bool
}

// CompletionOptions configures LLM completion requests.
type CompletionOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Format      string  `json:"format"` // "json" or "text"
}
