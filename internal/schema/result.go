package schema

// Candidate is one extractor's answer for one field: a value, the
// extractor's confidence in it, and the extractor that produced it.
type Candidate struct {
	Value      Value
	Confidence float64
	Source     string
}

// ExtractionResult holds one extractor's partial field mapping for a single
// document. Every schema field is always represented; fields the extractor
// could not answer carry an absent value with confidence 0.
//
// Results are produced once per extractor per run and not mutated after the
// extractor returns them.
type ExtractionResult struct {
	source string
	fields map[FieldName]Candidate
}

// NewResult returns a result with every schema field absent.
func NewResult(source string) *ExtractionResult {
	fields := make(map[FieldName]Candidate, FieldCount)
	for _, spec := range registry {
		fields[spec.Name] = Candidate{Value: Absent(), Source: source}
	}
	return &ExtractionResult{source: source, fields: fields}
}

// Source returns the extractor identifier that produced this result.
func (r *ExtractionResult) Source() string {
	return r.source
}

// Set records a candidate for a field. Unknown field names are ignored;
// setting an absent value resets the field's confidence to 0.
func (r *ExtractionResult) Set(name FieldName, v Value, confidence float64) {
	if _, ok := Lookup(name); !ok {
		return
	}
	if !v.Present() {
		r.fields[name] = Candidate{Value: Absent(), Source: r.source}
		return
	}
	r.fields[name] = Candidate{Value: v, Confidence: confidence, Source: r.source}
}

// Candidate returns the extractor's answer for a field. A field missing
// from the underlying map (malformed input) is reported as absent.
func (r *ExtractionResult) Candidate(name FieldName) Candidate {
	if r == nil {
		return Candidate{Value: Absent()}
	}
	if c, ok := r.fields[name]; ok {
		return c
	}
	return Candidate{Value: Absent(), Source: r.source}
}

// Populated returns the number of present fields.
func (r *ExtractionResult) Populated() int {
	n := 0
	for _, c := range r.fields {
		if c.Value.Present() {
			n++
		}
	}
	return n
}
