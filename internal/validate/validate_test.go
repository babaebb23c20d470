package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxtract/internal/merge"
	"rxtract/internal/schema"
)

func recordWith(values map[schema.FieldName]schema.Value) *merge.Record {
	result := schema.NewResult(schema.SourcePattern)
	for field, value := range values {
		result.Set(field, value, 0.8)
	}
	return merge.Merge([]*schema.ExtractionResult{result})
}

func TestValidateNormalizesDates(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"23 JAN 99", "1999-01-23"},
		{"23 Jan 1999", "1999-01-23"},
		{"01/23/1999", "1999-01-23"},
		{"1999-01-23", "1999-01-23"},
		{"Jan 23, 1999", "1999-01-23"},
		{"sometime last spring", "sometime last spring"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			record := recordWith(map[schema.FieldName]schema.Value{
				schema.FieldPrescriptionDate: schema.String(tt.in),
			})
			record, err := Validate(record, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, record.Value(schema.FieldPrescriptionDate).Str())
		})
	}
}

func TestValidateOnlyDateFieldsAreCanonicalized(t *testing.T) {
	record := recordWith(map[schema.FieldName]schema.Value{
		schema.FieldInstructions: schema.String("23 JAN 99"),
	})
	record, err := Validate(record, Options{})
	require.NoError(t, err)
	assert.Equal(t, "23 JAN 99", record.Value(schema.FieldInstructions).Str())
}

func TestValidateTrimsWhitespace(t *testing.T) {
	record := recordWith(map[schema.FieldName]schema.Value{
		schema.FieldPatientName: schema.String("  John R. Doe "),
	})
	record, err := Validate(record, Options{})
	require.NoError(t, err)
	assert.Equal(t, "John R. Doe", record.Value(schema.FieldPatientName).Str())
}

func TestValidateCoercesBooleanStrings(t *testing.T) {
	record := recordWith(map[schema.FieldName]schema.Value{
		schema.FieldIsAllergic: schema.String("Yes"),
		schema.FieldIsPregnant: schema.String("no"),
	})
	record, err := Validate(record, Options{})
	require.NoError(t, err)

	allergic := record.Value(schema.FieldIsAllergic)
	assert.Equal(t, schema.KindBool, allergic.Kind())
	assert.True(t, allergic.Bool())

	pregnant := record.Value(schema.FieldIsPregnant)
	assert.Equal(t, schema.KindBool, pregnant.Kind())
	assert.False(t, pregnant.Bool())
}

func TestValidateDeduplicatesLists(t *testing.T) {
	record := recordWith(map[schema.FieldName]schema.Value{
		schema.FieldMedicineName: schema.List([]string{"Amphogel", " Amphogel ", "Tr Belledenna", "Amphogel"}),
	})
	record, err := Validate(record, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Amphogel", "Tr Belledenna"}, record.Value(schema.FieldMedicineName).List())
}

func TestValidateKeepsListPlaceholders(t *testing.T) {
	record := recordWith(map[schema.FieldName]schema.Value{
		schema.FieldMedicineName: schema.List([]string{"Tr Belledenna", "Amphogel"}),
		schema.FieldMedicineDose: schema.List([]string{"", "120 ml", " "}),
	})
	record, err := Validate(record, Options{})
	require.NoError(t, err)

	// The interior placeholder keeps Amphogel's dose at index 1; the
	// trailing blank entry goes.
	assert.Equal(t, []string{"", "120 ml"}, record.Value(schema.FieldMedicineDose).List())
	assert.False(t, record.Provenance[schema.FieldMedicineDose].Misaligned)
}

func TestValidateRechecksMedicineAlignment(t *testing.T) {
	t.Run("dedupe shortening one list flags the group", func(t *testing.T) {
		record := recordWith(map[schema.FieldName]schema.Value{
			schema.FieldMedicineName: schema.List([]string{"Amphogel", "Amphogel"}),
			schema.FieldMedicineDose: schema.List([]string{"15 ml", "120 ml"}),
		})
		require.False(t, record.Provenance[schema.FieldMedicineName].Misaligned)

		record, err := Validate(record, Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Amphogel"}, record.Value(schema.FieldMedicineName).List())
		assert.True(t, record.Provenance[schema.FieldMedicineName].Misaligned)
		assert.True(t, record.Provenance[schema.FieldMedicineDose].Misaligned)
	})

	t.Run("lengths equalized clears stale flags", func(t *testing.T) {
		record := recordWith(map[schema.FieldName]schema.Value{
			schema.FieldMedicineName: schema.List([]string{"Amphogel"}),
			schema.FieldMedicineDose: schema.List([]string{"15 ml", " "}),
		})
		require.True(t, record.Provenance[schema.FieldMedicineName].Misaligned)

		record, err := Validate(record, Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"15 ml"}, record.Value(schema.FieldMedicineDose).List())
		assert.False(t, record.Provenance[schema.FieldMedicineName].Misaligned)
		assert.False(t, record.Provenance[schema.FieldMedicineDose].Misaligned)
	})
}

func TestValidateIsIdempotent(t *testing.T) {
	record := recordWith(map[schema.FieldName]schema.Value{
		schema.FieldPatientName:      schema.String(" John R. Doe "),
		schema.FieldPrescriptionDate: schema.String("23 JAN 99"),
		schema.FieldIsAllergic:       schema.String("yes"),
		schema.FieldMedicineName:     schema.List([]string{"Amphogel", "Amphogel"}),
	})

	once, err := Validate(record, Options{})
	require.NoError(t, err)

	twice, err := Validate(once, Options{})
	require.NoError(t, err)

	for _, spec := range schema.Fields() {
		assert.True(t, once.Value(spec.Name).Equal(twice.Value(spec.Name)), "field %q changed on revalidation", spec.Name)
	}
}

func TestValidateRequiredPatientName(t *testing.T) {
	record := recordWith(map[schema.FieldName]schema.Value{
		schema.FieldPatientAge: schema.String("34"),
	})

	// Relaxed mode passes partial records.
	_, err := Validate(record, Options{})
	assert.NoError(t, err)

	// Strict mode fails but still returns the normalized record.
	normalized, err := Validate(record, Options{RequirePatientName: true})
	require.Error(t, err)
	require.NotNil(t, normalized)
	assert.Equal(t, "34", normalized.Value(schema.FieldPatientAge).Str())

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, schema.FieldPatientName, validationErr.Field)
}
