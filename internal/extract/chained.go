package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"rxtract/internal/llm"
	"rxtract/internal/logger"
	"rxtract/internal/schema"
)

// Chained-model confidence: a notch below the single-call extractor since
// errors compound across stages.
const (
	confidenceChainedClean    = 0.85
	confidenceChainedRepaired = 0.70
)

const isolateSystemPrompt = `You extract the medication section from OCR text of a medical prescription.
Return ONLY the lines describing prescribed medicines (names, doses, frequencies, durations), copied verbatim from the input.
If the text contains no medication lines, return exactly: NONE`

const medicineSystemPrompt = `You turn prescription medication lines into structured JSON.
Return ONLY a JSON object with exactly these keys:
- "medicine_name" (array of strings)
- "medicine_dose" (array of strings)
- "medicine_frequency" (array of strings)
- "medicine_duration" (array of strings)

The arrays must be index-aligned: entry N of each array describes the same medicine. Use "" for an unknown entry and [] when nothing applies. No commentary, no code fences.`

const demographicsSystemPrompt = `You extract patient, doctor, and clinic details from OCR text of a medical prescription.
Return ONLY a JSON object with exactly these keys:
%s

Rules:
- String fields: the value from the text, or "" when absent.
- Boolean fields: true, false, or null when unknown.
- Date fields (patient_dob, prescription_date, immunization_date): normalize to YYYY-MM-DD when the text allows it, otherwise keep the value as written.
- Never invent values. No commentary, no code fences.`

// ChainedExtractor runs a short pipeline of model calls: isolate the
// medication block, structure it, then extract the remaining fields with
// date and boolean normalization. A stage that fails leaves its fields
// absent and the remaining stages still run.
type ChainedExtractor struct {
	completer llm.Completer
	log       zerolog.Logger
}

// NewChainedExtractor creates the multi-stage model extractor.
func NewChainedExtractor(completer llm.Completer) *ChainedExtractor {
	return &ChainedExtractor{
		completer: completer,
		log:       logger.WithComponent("chained-extractor"),
	}
}

// Source implements Extractor.
func (e *ChainedExtractor) Source() string {
	return schema.SourceChainedModel
}

// Extract implements Extractor.
func (e *ChainedExtractor) Extract(ctx context.Context, text string) (*schema.ExtractionResult, error) {
	result := schema.NewResult(schema.SourceChainedModel)

	if block, err := e.isolateMedicines(ctx, text); err != nil {
		e.log.Warn().Err(err).Msg("Medicine isolation stage failed, skipping medicine fields")
	} else if block != "" {
		if err := e.extractMedicines(ctx, block, result); err != nil {
			e.log.Warn().Err(err).Msg("Medicine structuring stage failed, skipping medicine fields")
		}
	}

	if err := e.extractDemographics(ctx, text, result); err != nil {
		e.log.Warn().Err(err).Msg("Demographics stage failed, skipping demographic fields")
	}

	if result.Populated() == 0 {
		return nil, fmt.Errorf("all chained stages failed")
	}
	return result, nil
}

// isolateMedicines returns the verbatim medication block, or empty when the
// model reports none.
func (e *ChainedExtractor) isolateMedicines(ctx context.Context, text string) (string, error) {
	response, err := e.completer.Complete(ctx, isolateSystemPrompt, text)
	if err != nil {
		return "", err
	}
	block := strings.TrimSpace(response)
	if block == "" || strings.EqualFold(block, "NONE") {
		return "", nil
	}
	return block, nil
}

// extractMedicines structures the isolated block into the four medicine
// list fields.
func (e *ChainedExtractor) extractMedicines(ctx context.Context, block string, result *schema.ExtractionResult) error {
	response, err := e.completer.Complete(ctx, medicineSystemPrompt, block)
	if err != nil {
		return err
	}

	values, repaired, err := parseModelResponse(response)
	if err != nil {
		return err
	}

	confidence := stageConfidence(repaired)
	for _, field := range schema.MedicineFields {
		if value, ok := values[field]; ok {
			result.Set(field, value, confidence)
		}
	}
	return nil
}

// extractDemographics fills every non-medicine field.
func (e *ChainedExtractor) extractDemographics(ctx context.Context, text string, result *schema.ExtractionResult) error {
	response, err := e.completer.Complete(ctx, demographicsFieldPrompt(), text)
	if err != nil {
		return err
	}

	values, repaired, err := parseModelResponse(response)
	if err != nil {
		return err
	}

	confidence := stageConfidence(repaired)
	for field, value := range values {
		if isMedicineField(field) {
			continue
		}
		result.Set(field, value, confidence)
	}
	return nil
}

func stageConfidence(repaired bool) float64 {
	if repaired {
		return confidenceChainedRepaired
	}
	return confidenceChainedClean
}

func isMedicineField(field schema.FieldName) bool {
	for _, m := range schema.MedicineFields {
		if m == field {
			return true
		}
	}
	return false
}

// demographicsFieldPrompt expands the demographics template with every
// non-medicine field and its expected JSON type.
func demographicsFieldPrompt() string {
	var b strings.Builder
	for _, spec := range schema.Fields() {
		if isMedicineField(spec.Name) {
			continue
		}
		kind := "string"
		if spec.Kind == schema.KindBool {
			kind = "boolean or null"
		}
		fmt.Fprintf(&b, "- %q (%s)\n", string(spec.Name), kind)
	}
	return fmt.Sprintf(demographicsSystemPrompt, strings.TrimRight(b.String(), "\n"))
}
