package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const geminiConfidence = 0.9

type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string
	text    TextExtractor
	client  *http.Client
}

func NewGeminiProvider(apiKey string, model string, timeout time.Duration, text TextExtractor) *GeminiProvider {
	return &GeminiProvider{
		apiKey: apiKey,
		model:  model,
		text:   text,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *GeminiProvider) ExtractBoqFromPdf(ctx context.Context, filePath string, extractionType string) (*Result, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("%w: gemini api key is missing", ErrNotConfigured)
	}

	text, err := p.text.ExtractText(ctx, filePath)
	if err != nil {
		return nil, err
	}

	cfg := &genai.ClientConfig{
		APIKey:     p.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.client,
	}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderRequest, p.redact(err))
	}

	resp, err := client.Models.GenerateContent(ctx, p.model, genai.Text(BuildPrompt(text, extractionType)), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderRequest, p.redact(err))
	}

	out := resp.Text()
	if strings.TrimSpace(out) == "" {
		return nil, fmt.Errorf("%w: no candidates in gemini response", ErrMalformedResponse)
	}

	return ParsePayload(out, geminiConfidence)
}

// redact keeps the api key out of messages that end up in extraction records
// and API responses.
func (p *GeminiProvider) redact(err error) string {
	return strings.ReplaceAll(err.Error(), p.apiKey, "[redacted]")
}
