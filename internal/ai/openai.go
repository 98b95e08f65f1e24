package ai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const openAIConfidence = 0.9

// chatClient is the subset of the OpenAI client the provider uses.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type OpenAIProvider struct {
	client chatClient
	model  string
	text   TextExtractor
}

// NewOpenAIProvider builds the provider. baseURL overrides the API endpoint
// when not empty.
func NewOpenAIProvider(apiKey string, model string, baseURL string, text TextExtractor) *OpenAIProvider {
	p := &OpenAIProvider{model: model, text: text}
	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		p.client = openai.NewClientWithConfig(cfg)
	}

	return p
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) IsConfigured() bool {
	return p.client != nil
}

func (p *OpenAIProvider) ExtractBoqFromPdf(ctx context.Context, filePath string, extractionType string) (*Result, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("%w: openai api key is missing", ErrNotConfigured)
	}

	text, err := p.text.ExtractText(ctx, filePath)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(text, extractionType)},
		},
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderRequest, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in openai response", ErrMalformedResponse)
	}

	return ParsePayload(resp.Choices[0].Message.Content, openAIConfidence)
}
