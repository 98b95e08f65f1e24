package ai

import (
	"fmt"
	"tender-marketplace-api/internal/common"
)

const maxPromptText = 60000

const systemPrompt = "You are an expert construction estimator and quantity surveyor. " +
	"Your task is to extract Bill of Quantities (BOQ) items from document text."

const promptTemplate = `%s
Extract the Bill of Quantities (BOQ) items from the text below.
Return ONLY valid JSON with this exact schema:

{
    "tender_info": {
        "title": "Project Title or Client Name",
        "location": "Project Location"
    },
    "boq_items": [
        {
            "description": "Full item description",
            "unit": "Unit of measurement (e.g., mq, mc, kg, a corpo, cad)",
            "quantity": 123.45,
            "item_type": "unit_priced" or "lump_sum"
        }
    ]
}

- "quantity" must be a number. If a quantity is missing or invalid, set it to 0.
- "item_type" logic: if unit is 'a corpo' or 'cad', set to 'lump_sum', else 'unit_priced'.
- Parse European number format correctly (1.234,56 -> 1234.56).
- Ignore header and footer noise. Keep descriptions detailed.

TEXT CONTENT:
----------------
%s
----------------
`

func BuildPrompt(text string, extractionType string) string {
	instruction := "This is a standard technical document. Focus on finding item descriptions and estimated quantities."
	switch extractionType {
	case common.ExtractionBidImport:
		instruction = "This is a contractor's bid document. Focus on finding item quantities and unit prices."
	case common.ExtractionDetailed:
		instruction = "This is a detailed technical specification. Capture every measurable item, including sub-items."
	case common.ExtractionQuick:
		instruction = "This is a quick scan. Capture the main work items only."
	}

	if len(text) > maxPromptText {
		text = text[:maxPromptText]
	}

	return fmt.Sprintf(promptTemplate, instruction, text)
}
