package llm

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"ideagraph-backend/pkg/errors"
)

// DefaultModel balances latency and quality for per-chunk calls.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = "You are an expert at analyzing conversation transcripts. Return only valid JSON."

// OpenAIProvider implements Provider on the OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a provider for the given model (empty
// selects DefaultModel). An empty baseURL targets the OpenAI endpoint.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(clientOpts...)

	if model == "" {
		model = DefaultModel
	}
	return &OpenAIProvider{client: &client, model: model}
}

func (p *OpenAIProvider) IsAvailable() bool {
	return p.client != nil
}

func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(options.Temperature),
	}
	if options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(options.MaxTokens))
	}
	if options.Format == "json" {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", errors.Wrap(err, "openai completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.NewInternal("openai returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}
