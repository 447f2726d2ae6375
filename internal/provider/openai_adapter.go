package provider

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/doculoom/engine/internal/config"
)

// OpenAIProvider adapts an OpenAI-compatible chat completion endpoint to the
// Provider interface. Grounded on the ziadkadry99/auto-doc indexer's use of
// github.com/sashabaranov/go-openai as its LLM transport — the HTTP
// replacement for the teacher's gRPC sidecar call (see DESIGN.md).
type OpenAIProvider struct {
	name   string
	model  string
	client *openai.Client
}

// NewOpenAIProvider builds a provider from a resolved ProviderConfig. The API
// key is read from the environment variable named by cfg.APIKeyEnv, never
// logged (spec §6 "Environment").
func NewOpenAIProvider(cfg config.ProviderConfig) (*OpenAIProvider, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("provider %s: %s is not set", cfg.Name, cfg.APIKeyEnv)
	}

	oaiCfg := openai.DefaultConfig(apiKey)
	if cfg.Endpoint != "" {
		oaiCfg.BaseURL = cfg.Endpoint
	}

	return &OpenAIProvider{
		name:   cfg.Name,
		model:  cfg.Model,
		client: openai.NewClientWithConfig(oaiCfg),
	}, nil
}

// Name returns the provider's configured name, used in fallback-chain logs
// and metrics.
func (p *OpenAIProvider) Name() string { return p.name }

// Generate issues one chat completion call, bounded by deadline.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, deadline time.Time) (Response, error) {
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Response{}, &Error{Category: ClassifyError(err), Provider: p.name, Err: err}
	}
	if len(resp.Choices) == 0 {
		return Response{}, &Error{Category: CategoryInternal, Provider: p.name, Err: fmt.Errorf("empty choices in response")}
	}

	return Response{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
		Provider:     p.name,
	}, nil
}
