// Package pipeline runs a document end to end: intake, OCR, concurrent
// field extraction, merge, and validation. Only intake and OCR failures are
// fatal for a document; a failing extractor just contributes nothing.
package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rxtract/internal/extract"
	"rxtract/internal/logger"
	"rxtract/internal/merge"
	"rxtract/internal/ocr"
	"rxtract/internal/validate"
	"rxtract/pkg/models"
)

// Options controls pipeline behavior.
type Options struct {
	// RequirePatientName makes validation fail records without a patient
	// name. The record is still returned alongside the error.
	RequirePatientName bool

	// IncludeRawText keeps the OCR text on the result for callers that
	// want to save it next to the structured output.
	IncludeRawText bool
}

// Pipeline processes prescription documents into structured records.
type Pipeline struct {
	ocrService ocr.Service
	extractors []extract.Extractor
	opts       Options
	log        zerolog.Logger
}

// New creates a pipeline over an OCR backend and a set of extractors.
func New(ocrService ocr.Service, extractors []extract.Extractor, opts Options) *Pipeline {
	return &Pipeline{
		ocrService: ocrService,
		extractors: extractors,
		opts:       opts,
		log:        logger.WithComponent("pipeline"),
	}
}

// Result bundles the structured output with the raw OCR text.
type Result struct {
	Output  *models.ExtractionOutput
	RawText string
}

// ProcessFile runs the pipeline on a local file.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Result, error) {
	data, mimeType, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, data, mimeType, path)
}

// ProcessURL fetches a document and runs the pipeline on it.
func (p *Pipeline) ProcessURL(ctx context.Context, url string) (*Result, error) {
	data, mimeType, err := FetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, data, mimeType, url)
}

// Process runs the pipeline on raw document bytes. The returned error is an
// *InputError or *GatewayError when the document could not be processed at
// all, or a *validate.ValidationError when a required field is missing; in
// the validation case the best-effort result is returned alongside the
// error.
func (p *Pipeline) Process(ctx context.Context, data []byte, mimeType, source string) (*Result, error) {
	runID := uuid.New().String()
	log := p.log.With().Str("run_id", runID).Str("source", source).Logger()
	start := time.Now()

	log.Info().Str("mime_type", mimeType).Int("size", len(data)).Msg("Processing document")

	ocrResult, err := p.ocrService.ProcessDocumentWithMetadata(ctx, bytes.NewReader(data), mimeType)
	if err != nil {
		return nil, &GatewayError{Source: source, Err: err}
	}
	if len(bytes.TrimSpace([]byte(ocrResult.Text))) == 0 {
		return nil, &GatewayError{Source: source, Err: ErrEmptyText}
	}

	log.Debug().
		Int("text_length", len(ocrResult.Text)).
		Int("pages", ocrResult.PageCount).
		Float32("ocr_confidence", ocrResult.Confidence).
		Msg("OCR complete")

	results := extract.RunAll(ctx, ocrResult.Text, p.extractors)
	record := merge.Merge(results)

	record, validationErr := validate.Validate(record, validate.Options{
		RequirePatientName: p.opts.RequirePatientName,
	})

	output := &models.ExtractionOutput{
		Prescription:     models.PrescriptionFromRecord(record),
		CompletionStatus: models.CompletionFromRecord(record),
		Metadata: &models.ExtractionMetadata{
			RunID:         runID,
			SourceFile:    source,
			ProcessedAt:   time.Now().UTC(),
			OCRConfidence: ocrResult.Confidence,
			PageCount:     ocrResult.PageCount,
			Accuracy:      record.Accuracy,
			FieldSources:  models.ProvenanceFromRecord(record),
		},
	}
	if validationErr != nil {
		output.ValidationError = validationErr.Error()
	}

	log.Info().
		Int("populated_fields", record.Populated()).
		Float64("accuracy", record.Accuracy).
		Dur("duration", time.Since(start)).
		Msg("Document processed")

	result := &Result{Output: output}
	if p.opts.IncludeRawText {
		result.RawText = ocrResult.Text
	}
	return result, validationErr
}
