package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MockProvider provides deterministic completions for tests and
// API-key-less development. It pattern-matches the prompt to tell an
// extraction request from a placement request.
type MockProvider struct {
	available bool
}

// NewMockProvider creates a mock LLM provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{available: true}
}

func (m *MockProvider) IsAvailable() bool {
	return m.available
}

// SetAvailable controls whether the mock provider is available.
func (m *MockProvider) SetAvailable(available bool) {
	m.available = available
}

func (m *MockProvider) Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error) {
	if !m.available {
		return "", fmt.Errorf("mock provider is not available")
	}

	if strings.Contains(prompt, "extract distinct ideas") {
		return m.mockExtraction(prompt)
	}
	if strings.Contains(prompt, "organizing ideas from a live conversation") {
		return m.mockPlacement(prompt)
	}
	return "", fmt.Errorf("unsupported prompt type")
}

var chunkPattern = regexp.MustCompile(`Transcript chunk: "((?s).*?)"\n`)

// mockExtraction treats each sentence of the chunk as one idea.
func (m *MockProvider) mockExtraction(prompt string) (string, error) {
	var text string
	if match := chunkPattern.FindStringSubmatch(prompt); match != nil {
		text = match[1]
	}

	var ideas []string
	for _, sentence := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		sentence = strings.TrimSpace(sentence)
		if sentence != "" {
			ideas = append(ideas, sentence)
		}
	}

	out, err := json.Marshal(map[string][]string{"ideas": ideas})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

var idPattern = regexp.MustCompile(`"id":\s*"([^"]+)"`)

// mockPlacement always continues from the first listed candidate, which
// is the most similar one.
func (m *MockProvider) mockPlacement(prompt string) (string, error) {
	match := idPattern.FindStringSubmatch(prompt)
	if match == nil {
		return "", fmt.Errorf("no candidates in placement prompt")
	}
	out, err := json.Marshal(map[string]string{
		"decision":       "continuation",
		"target_node_id": match[1],
		"reason":         "most similar prior idea",
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
