package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/entity"
)

var (
	ErrNotConfigured     = errors.New("ai provider is not configured")
	ErrNoExtractableText = errors.New("could not extract text from document, the file might be a scanned image")
	ErrMalformedResponse = errors.New("malformed ai response")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrProviderRequest   = errors.New("ai provider request failed")
)

// Result is a successful extraction. Payload is the provider's JSON as
// returned, Boq is its decoded form.
type Result struct {
	Payload    json.RawMessage
	Boq        entity.ExtractedBoq
	Confidence float64
}

type Provider interface {
	Name() string
	IsConfigured() bool
	ExtractBoqFromPdf(ctx context.Context, filePath string, extractionType string) (*Result, error)
}

// ParsePayload decodes a model response into a Result. Markdown code fences
// around the JSON are tolerated.
func ParsePayload(content string, confidence float64) (*Result, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var boq entity.ExtractedBoq
	if err := json.Unmarshal([]byte(content), &boq); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(content)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	for i := range boq.BoqItems {
		if boq.BoqItems[i].ItemType == "" {
			boq.BoqItems[i].ItemType = InferItemType(boq.BoqItems[i].Unit)
		}
	}

	return &Result{
		Payload:    compact.Bytes(),
		Boq:        boq,
		Confidence: confidence,
	}, nil
}

// InferItemType maps the units priced as a whole ("a corpo", "cad") to lump
// sum items.
func InferItemType(unit string) string {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "a corpo", "cad":
		return common.LumpSum
	}

	return common.UnitPriced
}
