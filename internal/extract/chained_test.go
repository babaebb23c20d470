package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxtract/internal/schema"
)

func TestChainedExtractorAllStages(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		"Rx: Tr Belledenna 15 ml, Amphogel 120 ml",
		`{"medicine_name": ["Tr Belledenna", "Amphogel"], "medicine_dose": ["15 ml", "120 ml"], "medicine_frequency": [], "medicine_duration": []}`,
		`{"patient_name": "John R. Doe", "prescription_date": "1999-01-23"}`,
	}}

	e := NewChainedExtractor(completer)
	result, err := e.Extract(context.Background(), "raw text")
	require.NoError(t, err)
	assert.Equal(t, schema.SourceChainedModel, result.Source())
	assert.Equal(t, 3, completer.calls)

	names := result.Candidate(schema.FieldMedicineName)
	assert.Equal(t, []string{"Tr Belledenna", "Amphogel"}, names.Value.List())
	assert.Equal(t, confidenceChainedClean, names.Confidence)
	assert.Equal(t, "John R. Doe", result.Candidate(schema.FieldPatientName).Value.Str())
	assert.Equal(t, "1999-01-23", result.Candidate(schema.FieldPrescriptionDate).Value.Str())
}

func TestChainedExtractorNoMedicineBlock(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		"NONE",
		`{"patient_name": "Jane Smith"}`,
	}}

	e := NewChainedExtractor(completer)
	result, err := e.Extract(context.Background(), "raw text")
	require.NoError(t, err)

	// The structuring stage is skipped entirely when nothing was isolated.
	assert.Equal(t, 2, completer.calls)
	assert.False(t, result.Candidate(schema.FieldMedicineName).Value.Present())
	assert.Equal(t, "Jane Smith", result.Candidate(schema.FieldPatientName).Value.Str())
}

func TestChainedExtractorStageFailureIsIsolated(t *testing.T) {
	completer := &scriptedCompleter{
		errs: []error{errors.New("timeout"), nil},
		responses: []string{
			"",
			`{"patient_name": "Jane Smith"}`,
		},
	}

	e := NewChainedExtractor(completer)
	result, err := e.Extract(context.Background(), "raw text")
	require.NoError(t, err)

	assert.False(t, result.Candidate(schema.FieldMedicineName).Value.Present())
	assert.Equal(t, "Jane Smith", result.Candidate(schema.FieldPatientName).Value.Str())
}

func TestChainedExtractorDemographicsIgnoresMedicineKeys(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		"NONE",
		`{"patient_name": "Jane Smith", "medicine_name": ["Should Not Appear"]}`,
	}}

	e := NewChainedExtractor(completer)
	result, err := e.Extract(context.Background(), "raw text")
	require.NoError(t, err)
	assert.False(t, result.Candidate(schema.FieldMedicineName).Value.Present())
}

func TestChainedExtractorAllStagesFail(t *testing.T) {
	completer := &scriptedCompleter{errs: []error{
		errors.New("timeout"),
		errors.New("timeout"),
	}}

	e := NewChainedExtractor(completer)
	_, err := e.Extract(context.Background(), "raw text")
	assert.Error(t, err)
}
