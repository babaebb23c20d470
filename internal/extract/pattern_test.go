package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxtract/internal/schema"
)

const sampleScanText = `MEDICAL FACILITY U.S.S. Haven (DD 727)   DATE 23 JAN 99
Patient Name: John R. Doe
Age: 34
Sex: M
Weight: 81 kg
Allergies: NKDA
Rx: Tr Belledenna 15 ml, Amphogel 120 ml
Seg: 5ml tid a.c. for 7 days
Phone: (555) 123-4567
SIGNATURE Jack R. Frost LODR. MD. USNR`

func TestPatternExtractorSampleScan(t *testing.T) {
	e := NewPatternExtractor()
	result, err := e.Extract(context.Background(), sampleScanText)
	require.NoError(t, err)
	assert.Equal(t, schema.SourcePattern, result.Source())

	assert.Equal(t, "John R. Doe", result.Candidate(schema.FieldPatientName).Value.Str())
	assert.Equal(t, "34", result.Candidate(schema.FieldPatientAge).Value.Str())
	assert.Equal(t, "M", result.Candidate(schema.FieldPatientSex).Value.Str())
	assert.Equal(t, "81 kg", result.Candidate(schema.FieldWeight).Value.Str())
	assert.Equal(t, "23 JAN 99", result.Candidate(schema.FieldPrescriptionDate).Value.Str())
	assert.Equal(t, "(555) 123-4567", result.Candidate(schema.FieldClinicPhone).Value.Str())
	assert.Equal(t, "5ml tid a.c. for 7 days", result.Candidate(schema.FieldInstructions).Value.Str())

	allergic := result.Candidate(schema.FieldIsAllergic)
	require.True(t, allergic.Value.Present())
	assert.False(t, allergic.Value.Bool())
}

func TestPatternExtractorMedicineAlignment(t *testing.T) {
	e := NewPatternExtractor()
	result, err := e.Extract(context.Background(), sampleScanText)
	require.NoError(t, err)

	names := result.Candidate(schema.FieldMedicineName).Value
	doses := result.Candidate(schema.FieldMedicineDose).Value
	require.True(t, names.Present())
	require.True(t, doses.Present())
	assert.Equal(t, []string{"Tr Belledenna", "Amphogel"}, names.List())
	assert.Equal(t, []string{"15 ml", "120 ml"}, doses.List())
	assert.Equal(t, names.Len(), doses.Len())
}

func TestPatternExtractorMedicineContinuationLines(t *testing.T) {
	text := `Rx: Amoxicillin 500 mg
Paracetamol 650 mg
Some unrelated closing note`

	e := NewPatternExtractor()
	result, err := e.Extract(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, []string{"Amoxicillin", "Paracetamol"}, result.Candidate(schema.FieldMedicineName).Value.List())
	assert.Equal(t, []string{"500 mg", "650 mg"}, result.Candidate(schema.FieldMedicineDose).Value.List())
}

func TestPatternExtractorNameStaysOnItsLine(t *testing.T) {
	// A greedy match must not swallow the following line.
	text := "Patient Name: John R. Doe\nAge: 34"

	e := NewPatternExtractor()
	result, err := e.Extract(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, "John R. Doe", result.Candidate(schema.FieldPatientName).Value.Str())
}

func TestPatternExtractorDatesAndBooleans(t *testing.T) {
	text := `Patient: Jane M. Smith
DOB: 12/03/1990
Prescription Date: 14/02/2024
Pregnant: Yes
Allergic to penicillin`

	e := NewPatternExtractor()
	result, err := e.Extract(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, "12/03/1990", result.Candidate(schema.FieldPatientDOB).Value.Str())
	assert.Equal(t, "14/02/2024", result.Candidate(schema.FieldPrescriptionDate).Value.Str())

	pregnant := result.Candidate(schema.FieldIsPregnant)
	require.True(t, pregnant.Value.Present())
	assert.True(t, pregnant.Value.Bool())

	allergic := result.Candidate(schema.FieldIsAllergic)
	require.True(t, allergic.Value.Present())
	assert.True(t, allergic.Value.Bool())
}

func TestPatternExtractorEmptyText(t *testing.T) {
	e := NewPatternExtractor()
	result, err := e.Extract(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, result.Populated())
}

func TestPatternExtractorConfidenceTiers(t *testing.T) {
	e := NewPatternExtractor()
	result, err := e.Extract(context.Background(), sampleScanText)
	require.NoError(t, err)

	// Label-anchored matches carry the anchored tier.
	assert.Equal(t, confidenceAnchored, result.Candidate(schema.FieldPatientName).Confidence)
	assert.Equal(t, confidenceAnchored, result.Candidate(schema.FieldPrescriptionDate).Confidence)
	// The frequency token is a free-floating heuristic.
	assert.Equal(t, confidenceHeuristic, result.Candidate(schema.FieldMedicineFrequency).Confidence)
}

func TestPatternExtractorLotAndExpiryFragments(t *testing.T) {
	e := NewPatternExtractor()

	t.Run("appended to instructions", func(t *testing.T) {
		text := "Sig: take with food\nLOT NO: A1B2C3\nEXP DATE: 12/2027"
		result, err := e.Extract(context.Background(), text)
		require.NoError(t, err)
		got := result.Candidate(schema.FieldInstructions)
		assert.Equal(t, "take with food; LOT NO: A1B2C3; EXP DATE: 12/2027", got.Value.Str())
		assert.Equal(t, confidenceAnchored, got.Confidence)
	})

	t.Run("standalone when no instructions line", func(t *testing.T) {
		result, err := e.Extract(context.Background(), "LOT NO: A1B2C3")
		require.NoError(t, err)
		got := result.Candidate(schema.FieldInstructions)
		assert.Equal(t, "LOT NO: A1B2C3", got.Value.Str())
		assert.Equal(t, confidenceHeuristic, got.Confidence)
	})
}
