// Package merge reconciles the per-extractor results into one record. Each
// field is decided independently: highest confidence wins, ties fall back to
// a fixed source priority. The merge is a pure function of its inputs, so
// extractors may complete in any order without changing the outcome.
package merge

import (
	"rxtract/internal/schema"
)

// sourcePriority orders sources for confidence ties; lower is stronger.
var sourcePriority = map[string]int{
	schema.SourcePromptedModel: 0,
	schema.SourceChainedModel:  1,
	schema.SourcePattern:       2,
	schema.SourceEntity:        3,
}

// Provenance records how one field was decided.
type Provenance struct {
	// Source is the winning extractor id, empty when the field is absent.
	Source string `json:"source,omitempty"`

	// Confidence is the winning candidate's confidence.
	Confidence float64 `json:"confidence,omitempty"`

	// Candidates counts how many extractors offered a present value.
	Candidates int `json:"candidates,omitempty"`

	// Misaligned marks a repeatable field whose winning sequence length
	// disagrees with another field in its group.
	Misaligned bool `json:"misaligned,omitempty"`
}

// Record is the merged output: one value and one provenance entry per
// schema field, plus the overall accuracy score.
type Record struct {
	Fields     map[schema.FieldName]schema.Value `json:"fields"`
	Provenance map[schema.FieldName]Provenance   `json:"provenance"`
	Accuracy   float64                           `json:"accuracy"`
}

// Value returns the merged value for a field, absent when the field was not
// decided.
func (r *Record) Value(field schema.FieldName) schema.Value {
	if v, ok := r.Fields[field]; ok {
		return v
	}
	return schema.Absent()
}

// Populated counts present fields.
func (r *Record) Populated() int {
	n := 0
	for _, v := range r.Fields {
		if v.Present() {
			n++
		}
	}
	return n
}

// Merge reconciles extractor results field by field. It never fails: results
// missing a field treat it as absent, an empty input produces an all-absent
// record with zero accuracy.
func Merge(results []*schema.ExtractionResult) *Record {
	record := &Record{
		Fields:     make(map[schema.FieldName]schema.Value, schema.FieldCount),
		Provenance: make(map[schema.FieldName]Provenance, schema.FieldCount),
	}

	var confidenceSum float64
	populated := 0

	for _, spec := range schema.Fields() {
		winner, count := pickWinner(spec.Name, results)
		if !winner.Value.Present() {
			record.Fields[spec.Name] = schema.Absent()
			record.Provenance[spec.Name] = Provenance{}
			continue
		}
		record.Fields[spec.Name] = winner.Value
		record.Provenance[spec.Name] = Provenance{
			Source:     winner.Source,
			Confidence: winner.Confidence,
			Candidates: count,
		}
		populated++
		confidenceSum += winner.Confidence
	}

	flagMisalignment(record, schema.MedicineFields)

	record.Accuracy = (float64(populated) + confidenceSum) / (2 * schema.FieldCount)
	return record
}

// RecheckAlignment recomputes the misalignment flags for a field group.
// Normalization can change sequence lengths after the merge, so stale flags
// are cleared before the group is flagged again.
func (r *Record) RecheckAlignment(group []schema.FieldName) {
	for _, field := range group {
		if p, ok := r.Provenance[field]; ok && p.Misaligned {
			p.Misaligned = false
			r.Provenance[field] = p
		}
	}
	flagMisalignment(r, group)
}

// pickWinner selects the best candidate for one field and reports how many
// extractors offered a present value. For list fields, empty sequences never
// beat non-empty ones regardless of confidence.
func pickWinner(field schema.FieldName, results []*schema.ExtractionResult) (schema.Candidate, int) {
	var best schema.Candidate
	count := 0

	for _, result := range results {
		if result == nil {
			continue
		}
		candidate := result.Candidate(field)
		if !candidate.Value.Present() {
			continue
		}
		count++
		if better(candidate, best) {
			best = candidate
		}
	}
	return best, count
}

// better reports whether a beats the current best b.
func better(a, b schema.Candidate) bool {
	if !b.Value.Present() {
		return true
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return priorityOf(a.Source) < priorityOf(b.Source)
}

func priorityOf(source string) int {
	if p, ok := sourcePriority[source]; ok {
		return p
	}
	return len(sourcePriority)
}

// flagMisalignment marks every present list field in the group as misaligned
// when the present sequences do not all share one length.
func flagMisalignment(record *Record, group []schema.FieldName) {
	length := -1
	aligned := true
	for _, field := range group {
		v := record.Fields[field]
		if !v.Present() || v.Kind() != schema.KindList {
			continue
		}
		if length == -1 {
			length = v.Len()
		} else if v.Len() != length {
			aligned = false
		}
	}
	if aligned {
		return
	}
	for _, field := range group {
		if !record.Fields[field].Present() {
			continue
		}
		p := record.Provenance[field]
		p.Misaligned = true
		record.Provenance[field] = p
	}
}
