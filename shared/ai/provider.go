package ai

import (
	"context"
	"errors"
	"fmt"

	"video-scout/shared/config"
	"video-scout/shared/retry"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Provider sends a single-turn prompt to a language model and returns the
// text of its reply.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// NewProvider builds the provider selected by cfg.AI.Provider.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.AI.Provider {
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg.AI.GeminiAPIKey, cfg.AI.Model)
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.AI.OpenAIAPIKey, cfg.AI.OpenAIBaseURL, cfg.AI.Model), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}

type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return config.ProviderGemini }

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: int32(maxTokens),
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, genConfig)
	if err != nil {
		return "", retry.WithStatus(statusOf(err), fmt.Errorf("gemini request failed: %w", err))
	}
	return result.Text(), nil
}

type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider talks to the OpenAI chat completions API, or to any
// compatible endpoint when baseURL is set.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string { return config.ProviderOpenAI }

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", retry.WithStatus(statusOf(err), fmt.Errorf("openai request failed: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// statusOf extracts the HTTP status from either SDK's error type, or 0.
func statusOf(err error) int {
	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return geminiErr.Code
	}
	var openaiErr *openai.APIError
	if errors.As(err, &openaiErr) {
		return openaiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
