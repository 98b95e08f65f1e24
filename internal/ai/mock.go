package ai

import (
	"context"
	"encoding/json"
	"time"
)

const mockConfidence = 0.95

var mockPayload = json.RawMessage(`{"tender_info":{"title":"Extracted: Construction Project","location":"Extracted Location","estimated_budget":100000},` +
	`"boq_items":[` +
	`{"description":"Excavation works","unit":"mc","quantity":150,"item_type":"unit_priced"},` +
	`{"description":"Concrete foundation","unit":"mc","quantity":50,"item_type":"unit_priced"},` +
	`{"description":"Steel reinforcement","unit":"kg","quantity":2000,"item_type":"unit_priced"},` +
	`{"description":"Finishing works","unit":"mq","quantity":300,"item_type":"lump_sum"}]}`)

// MockProvider returns a fixed BOQ without any network access. When Text is
// set the document must still yield text, so image-only files fail the way
// they do with real providers.
type MockProvider struct {
	Text  TextExtractor
	Delay time.Duration
}

func NewMockProvider(text TextExtractor) *MockProvider {
	return &MockProvider{Text: text}
}

func (p *MockProvider) Name() string {
	return "mock"
}

func (p *MockProvider) IsConfigured() bool {
	return true
}

func (p *MockProvider) ExtractBoqFromPdf(ctx context.Context, filePath string, extractionType string) (*Result, error) {
	if p.Text != nil {
		if _, err := p.Text.ExtractText(ctx, filePath); err != nil {
			return nil, err
		}
	}

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return ParsePayload(string(mockPayload), mockConfidence)
}
