package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"ideagraph-backend/internal/placement"
	"ideagraph-backend/pkg/errors"
)

const oraclePromptTemplate = `You are organizing ideas from a live conversation into a tree.

A new idea has come up:
"%s"

These existing ideas are the most similar to it (with their similarity score, depth in the tree, and path from the root):
%s

Decide how the new idea relates to ONE of the existing ideas above:
- "continuation": the new idea develops or elaborates the target idea
- "branch": the new idea is a sibling topic of the target idea
- "resolution": the new idea answers or concludes the target idea

Return JSON:
{
  "decision": "continuation" | "branch" | "resolution",
  "target_node_id": "<id of the chosen existing idea>",
  "reason": "<one short sentence>"
}

IMPORTANT:
- target_node_id MUST be one of the ids listed above
- Return ONLY the JSON object, no other text.`

// PlacementOracle implements placement.Oracle with a completion call.
// Its responses are validated again downstream; nothing here is trusted
// by the engine.
type PlacementOracle struct {
	provider Provider
}

var _ placement.Oracle = (*PlacementOracle)(nil)

// NewPlacementOracle creates an oracle over the given provider.
func NewPlacementOracle(provider Provider) *PlacementOracle {
	return &PlacementOracle{provider: provider}
}

// Decide asks the model how the new idea relates to the candidates.
func (o *PlacementOracle) Decide(ctx context.Context, summary string, candidates []placement.Candidate) (placement.Decision, error) {
	if o.provider == nil || !o.provider.IsAvailable() {
		return placement.Decision{}, errors.NewOracle("placement provider is not available", nil)
	}

	serialized, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return placement.Decision{}, errors.NewOracle("failed to serialize candidates", err)
	}
	prompt := fmt.Sprintf(oraclePromptTemplate, summary, serialized)

	response, err := o.provider.Complete(ctx, prompt, CompletionOptions{
		Temperature: 0.2,
		MaxTokens:   300,
		Format:      "json",
	})
	if err != nil {
		return placement.Decision{}, errors.NewOracle("placement call failed", err)
	}

	var decision placement.Decision
	if err := decodeResponse(response, &decision); err != nil {
		return placement.Decision{}, errors.NewOracle("malformed placement response", err)
	}
	return decision, nil
}
