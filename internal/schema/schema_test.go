package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCoversAllFields(t *testing.T) {
	fields := Fields()
	require.Len(t, fields, FieldCount)

	seen := make(map[FieldName]bool)
	for _, spec := range fields {
		assert.False(t, seen[spec.Name], "duplicate field %q", spec.Name)
		seen[spec.Name] = true
	}

	for _, field := range MedicineFields {
		spec, ok := Lookup(field)
		require.True(t, ok)
		assert.Equal(t, KindList, spec.Kind)
	}
}

func TestLookupUnknownField(t *testing.T) {
	_, ok := Lookup("shoe_size")
	assert.False(t, ok)
}

func TestValueConstructors(t *testing.T) {
	assert.False(t, Absent().Present())

	s := String("John R. Doe")
	assert.True(t, s.Present())
	assert.Equal(t, KindString, s.Kind())
	assert.Equal(t, "John R. Doe", s.Str())

	b := Bool(true)
	assert.True(t, b.Present())
	assert.True(t, b.Bool())

	l := List([]string{"Tr Belledenna", "Amphogel"})
	assert.True(t, l.Present())
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []string{"Tr Belledenna", "Amphogel"}, l.List())
}

func TestEmptyListIsAbsent(t *testing.T) {
	assert.False(t, List(nil).Present())
	assert.False(t, List([]string{}).Present())
}

func TestListIsCopied(t *testing.T) {
	src := []string{"a", "b"}
	v := List(src)
	src[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, v.List())

	out := v.List()
	out[1] = "mutated"
	assert.Equal(t, []string{"a", "b"}, v.List())
}

func TestValueEqual(t *testing.T) {
	assert.True(t, Absent().Equal(Absent()))
	assert.True(t, String("x").Equal(String("x")))
	assert.False(t, String("x").Equal(String("y")))
	assert.False(t, String("x").Equal(Absent()))
	assert.False(t, String("true").Equal(Bool(true)))
	assert.True(t, List([]string{"a"}).Equal(List([]string{"a"})))
	assert.False(t, List([]string{"a"}).Equal(List([]string{"a", "b"})))
}

func TestValueMarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"absent", Absent(), "null"},
		{"string", String("34"), `"34"`},
		{"bool", Bool(false), "false"},
		{"list", List([]string{"15 ml", "120 ml"}), `["15 ml","120 ml"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestNewResultHasEveryField(t *testing.T) {
	result := NewResult(SourcePattern)
	assert.Equal(t, SourcePattern, result.Source())
	assert.Zero(t, result.Populated())

	for _, spec := range Fields() {
		c := result.Candidate(spec.Name)
		assert.False(t, c.Value.Present())
		assert.Equal(t, SourcePattern, c.Source)
	}
}

func TestResultSet(t *testing.T) {
	result := NewResult(SourceEntity)

	result.Set(FieldPatientName, String("John R. Doe"), 0.4)
	c := result.Candidate(FieldPatientName)
	assert.True(t, c.Value.Present())
	assert.Equal(t, 0.4, c.Confidence)
	assert.Equal(t, SourceEntity, c.Source)
	assert.Equal(t, 1, result.Populated())

	// Setting absent resets confidence.
	result.Set(FieldPatientName, Absent(), 0.9)
	c = result.Candidate(FieldPatientName)
	assert.False(t, c.Value.Present())
	assert.Zero(t, c.Confidence)

	// Unknown fields are ignored.
	result.Set("shoe_size", String("42"), 1)
	assert.Zero(t, result.Populated())
}

func TestNilResultCandidate(t *testing.T) {
	var result *ExtractionResult
	c := result.Candidate(FieldPatientName)
	assert.False(t, c.Value.Present())
}
