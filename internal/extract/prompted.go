package extract

import (
	"context"
	"fmt"
	"strings"

	"rxtract/internal/llm"
	"rxtract/internal/schema"
)

// Prompted-model confidence: high when the response parses cleanly, lower
// when repairs were needed.
const (
	confidencePromptedClean    = 0.90
	confidencePromptedRepaired = 0.75
)

const promptedSystemPrompt = `You are a medical prescription data extraction assistant.
You receive raw OCR text from a scanned prescription and return ONLY a JSON object, no commentary and no code fences.

The JSON object must contain exactly these keys:
%s

Rules:
- String fields: the exact value from the text, or "" when the text does not contain it.
- Boolean fields (is_allergic, is_pregnant): true, false, or null when unknown.
- List fields (medicine_name, medicine_dose, medicine_frequency, medicine_duration): JSON arrays of strings, index-aligned so that entry N in each array describes the same medicine. Use [] when no medicines are found.
- Date fields (patient_dob, prescription_date, immunization_date): keep the value exactly as written in the text.
- Never invent values. OCR text is noisy; prefer "" over a guess.`

// PromptedExtractor fills all fields with one structured model call. The
// instruction enumerates every field with its expected JSON type; the
// response is parsed and coerced by parseModelResponse.
type PromptedExtractor struct {
	completer llm.Completer
}

// NewPromptedExtractor creates the single-call model extractor.
func NewPromptedExtractor(completer llm.Completer) *PromptedExtractor {
	return &PromptedExtractor{completer: completer}
}

// Source implements Extractor.
func (e *PromptedExtractor) Source() string {
	return schema.SourcePromptedModel
}

// Extract implements Extractor.
func (e *PromptedExtractor) Extract(ctx context.Context, text string) (*schema.ExtractionResult, error) {
	response, err := e.completer.Complete(ctx, fieldListPrompt(promptedSystemPrompt), text)
	if err != nil {
		return nil, fmt.Errorf("prompted extraction failed: %w", err)
	}

	values, repaired, err := parseModelResponse(response)
	if err != nil {
		return nil, fmt.Errorf("prompted extraction failed: %w", err)
	}

	confidence := confidencePromptedClean
	if repaired {
		confidence = confidencePromptedRepaired
	}

	result := schema.NewResult(schema.SourcePromptedModel)
	for field, value := range values {
		result.Set(field, value, confidence)
	}
	return result, nil
}

// fieldListPrompt expands a prompt template with the field contract, one
// line per field.
func fieldListPrompt(template string) string {
	var b strings.Builder
	for _, spec := range schema.Fields() {
		kind := "string"
		switch spec.Kind {
		case schema.KindBool:
			kind = "boolean or null"
		case schema.KindList:
			kind = "array of strings"
		}
		fmt.Fprintf(&b, "- %q (%s)\n", string(spec.Name), kind)
	}
	return fmt.Sprintf(template, strings.TrimRight(b.String(), "\n"))
}
