package llm

import (
	"context"
	"fmt"
	"strings"

	"ideagraph-backend/pkg/errors"
)

const extractionPromptTemplate = `You are analyzing a conversation transcript chunk.

Your task is to extract distinct ideas, decisions, actions, or proposals from this chunk.
%s
Transcript chunk: "%s"

Extract each distinct idea as a short, self-contained summary (1-2 sentences max).
Focus on:
- New ideas or proposals
- Decisions being made
- Actions being discussed
- Important points raised

Return JSON:
{
  "ideas": [
    "idea description 1",
    "idea description 2"
  ]
}

IMPORTANT:
- Return ONLY idea descriptions (short summaries)
- Do NOT make any decisions about graph structure
- Do NOT decide parent-child relationships
- Do NOT reference existing nodes
- Just extract clean, minimal idea summaries

Return ONLY the JSON object, no other text.`

// Extractor turns raw transcript text into a list of short idea
// summaries. Extraction is the model's only job here; it makes no graph
// decisions.
type Extractor struct {
	provider Provider
}

// NewExtractor creates an extractor over the given provider.
func NewExtractor(provider Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract returns the ideas found in text. recentContext, when
// non-empty, is prior conversation included to disambiguate pronouns and
// references. An empty result is a valid outcome, not an error.
func (e *Extractor) Extract(ctx context.Context, text, recentContext string) ([]string, error) {
	if e.provider == nil || !e.provider.IsAvailable() {
		return nil, errors.NewExtraction("extraction provider is not available", nil)
	}

	contextSection := ""
	if recentContext != "" {
		contextSection = fmt.Sprintf("\nRecent conversation for context (do not extract ideas from it):\n%s\n", recentContext)
	}
	prompt := fmt.Sprintf(extractionPromptTemplate, contextSection, text)

	response, err := e.provider.Complete(ctx, prompt, CompletionOptions{
		Temperature: 0.3,
		MaxTokens:   500,
		Format:      "json",
	})
	if err != nil {
		return nil, errors.NewExtraction("extraction call failed", err)
	}

	var parsed struct {
		Ideas []string `json:"ideas"`
	}
	if err := decodeResponse(response, &parsed); err != nil {
		return nil, errors.NewExtraction("malformed extraction response", err)
	}

	ideas := make([]string, 0, len(parsed.Ideas))
	for _, idea := range parsed.Ideas {
		idea = strings.TrimSpace(idea)
		if idea != "" {
			ideas = append(ideas, idea)
		}
	}
	return ideas, nil
}
