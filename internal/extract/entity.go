package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"

	"rxtract/internal/schema"
)

// Entity confidence tiers. NER over noisy OCR text is the weakest signal in
// the set, so these sit below every pattern rule.
const (
	confidenceEntityContext = 0.55
	confidenceEntityPlain   = 0.40
)

// Entity is a labeled span found in text.
type Entity struct {
	Text  string
	Label string
}

// Recognizer finds named entities in text.
type Recognizer interface {
	Entities(text string) ([]Entity, error)
}

// proseRecognizer backs Recognizer with the prose NLP tokenizer and tagger.
type proseRecognizer struct{}

func (proseRecognizer) Entities(text string) ([]Entity, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("entity tagging failed: %w", err)
	}
	var entities []Entity
	for _, ent := range doc.Entities() {
		entities = append(entities, Entity{Text: ent.Text, Label: ent.Label})
	}
	return entities, nil
}

var doctorContextRe = regexp.MustCompile(`(?i)\b(?:Dr\.?|Doctor|MD|SIGNATURE)\b`)

// EntityExtractor maps named entities onto schema fields: person entities
// become patient or doctor names depending on surrounding context, location
// entities become the clinic address. It is a low-confidence fallback for
// when neither the models nor the pattern rules produce a value.
type EntityExtractor struct {
	recognizer Recognizer
}

// NewEntityExtractor creates the NER-based extractor.
func NewEntityExtractor() *EntityExtractor {
	return &EntityExtractor{recognizer: proseRecognizer{}}
}

// NewEntityExtractorWithRecognizer creates the extractor with an explicit
// recognizer (for testing).
func NewEntityExtractorWithRecognizer(r Recognizer) *EntityExtractor {
	return &EntityExtractor{recognizer: r}
}

// Source implements Extractor.
func (e *EntityExtractor) Source() string {
	return schema.SourceEntity
}

// Extract implements Extractor.
func (e *EntityExtractor) Extract(_ context.Context, text string) (*schema.ExtractionResult, error) {
	result := schema.NewResult(schema.SourceEntity)

	entities, err := e.recognizer.Entities(text)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(text, "\n")

	for _, ent := range entities {
		span := strings.TrimSpace(ent.Text)
		if span == "" {
			continue
		}
		switch ent.Label {
		case "PERSON":
			if nearDoctorContext(lines, span) {
				setIfAbsent(result, schema.FieldDoctorName, span, confidenceEntityContext)
			} else {
				setIfAbsent(result, schema.FieldPatientName, span, confidenceEntityPlain)
			}
		case "GPE":
			setIfAbsent(result, schema.FieldClinicAddress, span, confidenceEntityPlain)
		}
	}

	return result, nil
}

// nearDoctorContext reports whether the span shares a line with a doctor
// marker such as "Dr." or "MD".
func nearDoctorContext(lines []string, span string) bool {
	for _, line := range lines {
		if strings.Contains(line, span) && doctorContextRe.MatchString(line) {
			return true
		}
	}
	return false
}

// setIfAbsent keeps the first entity seen for a field. Later spans with the
// same label do not overwrite it.
func setIfAbsent(result *schema.ExtractionResult, field schema.FieldName, value string, confidence float64) {
	if !result.Candidate(field).Value.Present() {
		result.Set(field, schema.String(value), confidence)
	}
}
