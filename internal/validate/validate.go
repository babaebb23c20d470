// Package validate normalizes a merged record against the field contract.
// Normalization is idempotent: validating an already-validated record is a
// no-op.
package validate

import (
	"fmt"
	"strings"
	"time"

	"rxtract/internal/merge"
	"rxtract/internal/schema"
)

// CanonicalDateFormat is the output format for date fields.
const CanonicalDateFormat = "2006-01-02"

// dateLayouts are tried in order; the first successful parse wins. Values
// that match none stay as written.
var dateLayouts = []string{
	"2006-01-02",
	"2 Jan 2006",
	"2 Jan 06",
	"2 January 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"1-2-2006",
}

// ValidationError reports a required field missing from the record.
type ValidationError struct {
	Field schema.FieldName
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: required field %q is absent", string(e.Field))
}

// Options controls validation strictness.
type Options struct {
	// RequirePatientName fails validation when patient_name is absent.
	// When false, partial records pass.
	RequirePatientName bool
}

// Validate normalizes the record in place and returns it. A ValidationError
// is returned alongside the normalized record, never instead of it; callers
// keep the best-effort record either way.
func Validate(record *merge.Record, opts Options) (*merge.Record, error) {
	for _, spec := range schema.Fields() {
		value := record.Value(spec.Name)
		if !value.Present() {
			continue
		}
		record.Fields[spec.Name] = normalize(spec, value)
	}

	// De-duplication can shorten one list of the medicine group, so the
	// alignment flags computed at merge time may be stale.
	record.RecheckAlignment(schema.MedicineFields)

	if opts.RequirePatientName && !record.Value(schema.FieldPatientName).Present() {
		return record, &ValidationError{Field: schema.FieldPatientName}
	}
	return record, nil
}

// normalize applies the per-kind rules: trim strings, coerce boolean-like
// strings, canonicalize dates, de-duplicate list entries.
func normalize(spec schema.FieldSpec, value schema.Value) schema.Value {
	switch value.Kind() {
	case schema.KindString:
		s := strings.TrimSpace(value.Str())
		if spec.Kind == schema.KindBool {
			if b, ok := parseBool(s); ok {
				return schema.Bool(b)
			}
		}
		if spec.Date {
			s = normalizeDate(s)
		}
		return schema.String(s)

	case schema.KindList:
		return schema.List(dedupe(value.List()))

	default:
		return value
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes", "y":
		return true, true
	case "false", "no", "n":
		return false, true
	}
	return false, false
}

// normalizeDate tries each layout and renders the first hit canonically.
// Unparseable dates pass through unchanged.
func normalizeDate(s string) string {
	compact := strings.Join(strings.Fields(s), " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, compact); err == nil {
			return t.Format(CanonicalDateFormat)
		}
	}
	return s
}

// dedupe removes exact duplicates, keeping first-seen order. Entries are
// trimmed first so OCR padding does not defeat the comparison. Empty entries
// are position placeholders, not values: interior ones stay so the medicine
// group keeps its indexing, trailing ones are dropped.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			out = append(out, item)
			continue
		}
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}
