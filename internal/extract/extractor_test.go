package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxtract/internal/schema"
)

type stubExtractor struct {
	source string
	result *schema.ExtractionResult
	err    error
	panics bool
}

func (s stubExtractor) Source() string { return s.source }

func (s stubExtractor) Extract(context.Context, string) (*schema.ExtractionResult, error) {
	if s.panics {
		panic("extractor blew up")
	}
	return s.result, s.err
}

func resultWith(source string, field schema.FieldName, value string, confidence float64) *schema.ExtractionResult {
	r := schema.NewResult(source)
	r.Set(field, schema.String(value), confidence)
	return r
}

func TestRunAllPreservesOrder(t *testing.T) {
	extractors := []Extractor{
		stubExtractor{source: schema.SourcePattern, result: resultWith(schema.SourcePattern, schema.FieldPatientName, "from pattern", 0.6)},
		stubExtractor{source: schema.SourceEntity, result: resultWith(schema.SourceEntity, schema.FieldPatientName, "from entity", 0.4)},
	}

	results := RunAll(context.Background(), "text", extractors)
	require.Len(t, results, 2)
	assert.Equal(t, "from pattern", results[0].Candidate(schema.FieldPatientName).Value.Str())
	assert.Equal(t, "from entity", results[1].Candidate(schema.FieldPatientName).Value.Str())
}

func TestRunAllIsolatesFailures(t *testing.T) {
	extractors := []Extractor{
		stubExtractor{source: schema.SourcePromptedModel, err: errors.New("model timed out")},
		stubExtractor{source: schema.SourceChainedModel, panics: true},
		stubExtractor{source: schema.SourcePattern, result: resultWith(schema.SourcePattern, schema.FieldPatientAge, "34", 0.8)},
	}

	results := RunAll(context.Background(), "text", extractors)
	require.Len(t, results, 3)

	// Failing and panicking extractors contribute all-absent results from
	// their own source.
	assert.Equal(t, schema.SourcePromptedModel, results[0].Source())
	assert.Zero(t, results[0].Populated())
	assert.Equal(t, schema.SourceChainedModel, results[1].Source())
	assert.Zero(t, results[1].Populated())

	// The healthy extractor is unaffected.
	assert.Equal(t, "34", results[2].Candidate(schema.FieldPatientAge).Value.Str())
}

func TestRunAllEmptySet(t *testing.T) {
	results := RunAll(context.Background(), "text", nil)
	assert.Empty(t, results)
}
