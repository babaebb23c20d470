package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxtract/internal/schema"
)

type fakeRecognizer struct {
	entities []Entity
	err      error
}

func (f fakeRecognizer) Entities(string) ([]Entity, error) {
	return f.entities, f.err
}

func TestEntityExtractorRoutesPersons(t *testing.T) {
	text := "FOR John R. Doe\nSIGNATURE Jack R. Frost MD"
	e := NewEntityExtractorWithRecognizer(fakeRecognizer{entities: []Entity{
		{Text: "John R. Doe", Label: "PERSON"},
		{Text: "Jack R. Frost", Label: "PERSON"},
	}})

	result, err := e.Extract(context.Background(), text)
	require.NoError(t, err)

	patient := result.Candidate(schema.FieldPatientName)
	assert.Equal(t, "John R. Doe", patient.Value.Str())
	assert.Equal(t, confidenceEntityPlain, patient.Confidence)

	doctor := result.Candidate(schema.FieldDoctorName)
	assert.Equal(t, "Jack R. Frost", doctor.Value.Str())
	assert.Equal(t, confidenceEntityContext, doctor.Confidence)
}

func TestEntityExtractorLocationBecomesClinicAddress(t *testing.T) {
	e := NewEntityExtractorWithRecognizer(fakeRecognizer{entities: []Entity{
		{Text: "Springfield", Label: "GPE"},
	}})

	result, err := e.Extract(context.Background(), "General Hospital, Springfield")
	require.NoError(t, err)
	assert.Equal(t, "Springfield", result.Candidate(schema.FieldClinicAddress).Value.Str())
}

func TestEntityExtractorKeepsFirstSpan(t *testing.T) {
	e := NewEntityExtractorWithRecognizer(fakeRecognizer{entities: []Entity{
		{Text: "John Doe", Label: "PERSON"},
		{Text: "Jane Smith", Label: "PERSON"},
	}})

	result, err := e.Extract(context.Background(), "John Doe\nJane Smith")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", result.Candidate(schema.FieldPatientName).Value.Str())
}

func TestEntityExtractorPropagatesRecognizerError(t *testing.T) {
	e := NewEntityExtractorWithRecognizer(fakeRecognizer{err: errors.New("model data not installed")})

	_, err := e.Extract(context.Background(), "anything")
	assert.Error(t, err)
}
