package extract

import (
	"context"
	"regexp"
	"strings"

	"rxtract/internal/schema"
)

// Rule confidence tiers. Label-anchored matches are more reliable than
// free-floating heuristics.
const (
	confidenceAnchored  = 0.80
	confidenceLabeled   = 0.70
	confidenceHeuristic = 0.60
)

// rule is one line-anchored pattern for a field. Rules run against each line
// of the OCR text in order; the first match across the rule list wins.
type rule struct {
	re         *regexp.Regexp
	confidence float64
}

var scalarRules = map[schema.FieldName][]rule{
	schema.FieldPatientName: {
		{regexp.MustCompile(`(?i)Patient[ \t]*Name[:\-][ \t]*([A-Z][a-z]+(?:[ \t]+[A-Z]\.?)?[ \t]+[A-Z][a-z]+)`), confidenceAnchored},
		{regexp.MustCompile(`(?i)(?:FOR|Patient)[:\-]?[ \t]+([A-Z][a-z]+(?:[ \t]+[A-Z]\.?)?[ \t]+[A-Z][a-z]+)`), confidenceLabeled},
		{regexp.MustCompile(`(?i)Name[:\-][ \t]*([A-Z][a-z]+(?:[ \t]+[A-Z]\.?)?[ \t]+[A-Z][a-z]+)`), confidenceLabeled},
	},
	schema.FieldPatientDOB: {
		{regexp.MustCompile(`(?i)(?:DOB|Date[ \t]+of[ \t]+Birth)[:\-]?[ \t]*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`), confidenceAnchored},
		{regexp.MustCompile(`(?i)(?:DOB|Date[ \t]+of[ \t]+Birth)[:\-]?[ \t]*(\d{4}-\d{2}-\d{2})`), confidenceAnchored},
	},
	schema.FieldPatientAge: {
		{regexp.MustCompile(`(?i)Age[:\-][ \t]*(\d{1,3})`), confidenceAnchored},
		{regexp.MustCompile(`(?i)\b(\d{1,3})[ \t]*(?:years?[ \t]*old|y\.?o\.?)\b`), confidenceHeuristic},
	},
	schema.FieldPatientSex: {
		{regexp.MustCompile(`(?i)(?:Sex|Gender)[:\-][ \t]*(Male|Female|M|F)\b`), confidenceAnchored},
		{regexp.MustCompile(`\b(Male|Female)\b`), confidenceHeuristic},
	},
	schema.FieldPatientAddress: {
		{regexp.MustCompile(`(?i)Patient[ \t]*Address[:\-][ \t]*(.+)`), confidenceAnchored},
		{regexp.MustCompile(`(?i)^Address[:\-][ \t]*(.+)`), confidenceLabeled},
	},
	schema.FieldWeight: {
		{regexp.MustCompile(`(?i)(?:Weight|Wt\.?)[:\-]?[ \t]*(\d+(?:\.\d+)?[ \t]*(?:kg|lbs?|pounds)?)\b`), confidenceAnchored},
	},
	schema.FieldPrescriptionDate: {
		{regexp.MustCompile(`(?i)(?:Prescription[ \t]*Date|DATE)[:\-]?[ \t]+(\d{1,2}[ \t]+[A-Za-z]{3,9}[ \t]+\d{2,4})`), confidenceAnchored},
		{regexp.MustCompile(`(?i)(?:Prescription[ \t]*Date|DATE)[:\-]?[ \t]+(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`), confidenceAnchored},
		{regexp.MustCompile(`(?i)\b(\d{1,2}[ \t]+(?:JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)[ \t]+\d{2,4})\b`), confidenceHeuristic},
		{regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`), confidenceHeuristic},
	},
	schema.FieldDoctorName: {
		{regexp.MustCompile(`(?i)Dr\.?[ \t]+([A-Z][a-z]+(?:[ \t]+[A-Z]\.?)?[ \t]+[A-Z][a-z]+)`), confidenceAnchored},
		{regexp.MustCompile(`(?i)SIGNATURE[:\-]?[ \t]*([A-Z][a-z]+[ \t]+[A-Z]\.[ \t]+[A-Z][a-z]+)`), confidenceLabeled},
		{regexp.MustCompile(`([A-Z][a-z]+[ \t]+[A-Z]\.[ \t]+[A-Z][a-z]+)[ \t]*,?[ \t]+(?:MD|DR|LODR|DDS|DO|NP|PA)\b`), confidenceHeuristic},
	},
	schema.FieldDoctorTitle: {
		{regexp.MustCompile(`(?i)[A-Z][a-z]+[ \t]+[A-Z]\.?[ \t]+[A-Z][a-z]+[ \t]*,?[ \t]+((?:MD|DR|LODR|USNR|DDS|DO|NP|PA)[\w \t.]*)`), confidenceLabeled},
	},
	schema.FieldClinicAddress: {
		{regexp.MustCompile(`(?i)(?:MEDICAL[ \t]+FACILITY|Clinic|Hospital)[:\-]?[ \t]+(.+?)(?:[ \t]+DATE\b.*)?$`), confidenceAnchored},
		{regexp.MustCompile(`(?i)U\.S\.S\.?[ \t]+(.+?)(?:[ \t]+\(DD[ \t]+\d+\))?$`), confidenceHeuristic},
	},
	schema.FieldClinicPhone: {
		{regexp.MustCompile(`(?i)(?:Phone|Tel|Ph)\.?[:\-]?[ \t]*(\(?\d{3}\)?[ \t.\-]?\d{3}[ \t.\-]?\d{4})`), confidenceAnchored},
	},
	schema.FieldMedicineFrequency: {
		{regexp.MustCompile(`(?i)\b((?:[1-9][ \t]*times?[ \t]*(?:a|per)[ \t]*day|once[ \t]+daily|twice[ \t]+daily|every[ \t]+\d+[ \t]+hours?|[bt]\.?i\.?d\.?|q\.?i\.?d\.?|q\d+h))\b`), confidenceHeuristic},
	},
	schema.FieldMedicineDuration: {
		{regexp.MustCompile(`(?i)\bfor[ \t]+(\d+[ \t]*(?:days?|weeks?|months?))\b`), confidenceLabeled},
		{regexp.MustCompile(`(?i)\b(\d+[ \t]*(?:days?|weeks?|months?))[ \t]+(?:course|supply)\b`), confidenceHeuristic},
	},
	schema.FieldInstructions: {
		{regexp.MustCompile(`(?i)^(?:Instructions?|Directions?)[:\-][ \t]*(.+)`), confidenceAnchored},
		{regexp.MustCompile(`(?i)^(?:Sig|Signa|Seg)[.:\-][ \t]*(.+)`), confidenceAnchored},
		{regexp.MustCompile(`(?i)^(?:Take|Use)[:\-]?[ \t]+(.+)`), confidenceHeuristic},
	},
	schema.FieldImmunization: {
		{regexp.MustCompile(`(?i)(?:Immunization|Vaccination|Vaccine)[:\-][ \t]*([A-Za-z][\w \t\-]*)`), confidenceAnchored},
	},
	schema.FieldImmunizationDate: {
		{regexp.MustCompile(`(?i)(?:Immunization|Vaccination|Vaccine)[ \t]*Date[:\-]?[ \t]*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}|\d{4}-\d{2}-\d{2})`), confidenceAnchored},
	},
}

// Boolean rules. A negative rule wins over a positive one on the same field
// so "Allergies: None" is not read as allergic.
var boolRules = map[schema.FieldName]struct {
	negative   *regexp.Regexp
	positive   *regexp.Regexp
	confidence float64
}{
	schema.FieldIsAllergic: {
		negative:   regexp.MustCompile(`(?i)(?:Allerg(?:y|ies|ic)[:\-]?[ \t]*(?:None|No|NKDA|N/A)\b|\bNKDA\b|no[ \t]+known[ \t]+allergies)`),
		positive:   regexp.MustCompile(`(?i)Allerg(?:y|ies|ic)(?:[ \t]+to)?[:\-]?[ \t]*[A-Za-z]`),
		confidence: confidenceLabeled,
	},
	schema.FieldIsPregnant: {
		negative:   regexp.MustCompile(`(?i)(?:Pregnan(?:t|cy)[:\-]?[ \t]*(?:No|None|N/A|Negative)\b|not[ \t]+pregnant)`),
		positive:   regexp.MustCompile(`(?i)Pregnan(?:t|cy)[:\-]?[ \t]*(?:Yes|Positive|\+)\b`),
		confidence: confidenceLabeled,
	},
}

// Medicine line scanning. The Rx marker opens a medicine group; each
// comma-separated entry is a name followed by a dose with a unit.
var (
	rxLineRe = regexp.MustCompile(`(?i)^[ \t]*(?:Rx|℞)[.:]?[ \t]+(.+)$`)
	rxItemRe = regexp.MustCompile(`^([A-Za-z][A-Za-z .\-]*?)[ \t]+(\d+(?:\.\d+)?[ \t]*(?:ml|mg|mcg|g|tabs?|tablets?|caps?|capsules?|drops?|units?))[.]?$`)
)

// Lot and expiry fragments carry dispensing context; they ride along on the
// instructions field rather than getting fields of their own.
var lotExpRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(LOT[ \t]*(?:NO|#)?[.:]?[ \t]*[A-Z0-9\-]+)\b`),
	regexp.MustCompile(`(?i)\b(EXP(?:IRY|IRES)?[ \t]*(?:DATE)?[.:]?[ \t]*\d{1,2}[/\-][A-Za-z0-9]{1,4}(?:[/\-]\d{2,4})?)\b`),
}

// PatternExtractor fills fields by applying ordered regex rules to the OCR
// text one line at a time. It makes no network calls and never fails; text
// that matches nothing yields an all-absent result.
type PatternExtractor struct{}

// NewPatternExtractor creates the rule-based extractor.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

// Source implements Extractor.
func (e *PatternExtractor) Source() string {
	return schema.SourcePattern
}

// Extract implements Extractor.
func (e *PatternExtractor) Extract(_ context.Context, text string) (*schema.ExtractionResult, error) {
	result := schema.NewResult(schema.SourcePattern)
	lines := strings.Split(strings.TrimSpace(text), "\n")

	for field, rules := range scalarRules {
		value, confidence, ok := firstMatch(lines, rules)
		if !ok {
			continue
		}
		if spec, _ := schema.Lookup(field); spec.Kind == schema.KindList {
			result.Set(field, schema.List([]string{value}), confidence)
		} else {
			result.Set(field, schema.String(value), confidence)
		}
	}

	for field, br := range boolRules {
		for _, line := range lines {
			if br.negative.MatchString(line) {
				result.Set(field, schema.Bool(false), br.confidence)
				break
			}
			if br.positive.MatchString(line) {
				result.Set(field, schema.Bool(true), br.confidence)
				break
			}
		}
	}

	if fragments := scanLotExpiry(lines); len(fragments) > 0 {
		instructions := strings.Join(fragments, "; ")
		confidence := confidenceHeuristic
		if existing := result.Candidate(schema.FieldInstructions); existing.Value.Present() {
			instructions = existing.Value.Str() + "; " + instructions
			confidence = existing.Confidence
		}
		result.Set(schema.FieldInstructions, schema.String(instructions), confidence)
	}

	names, doses := scanMedicines(lines)
	if len(names) > 0 {
		result.Set(schema.FieldMedicineName, schema.List(names), confidenceAnchored)
	}
	if len(doses) > 0 {
		result.Set(schema.FieldMedicineDose, schema.List(doses), confidenceAnchored)
	}

	return result, nil
}

// firstMatch applies the rules in order against each line and returns the
// first captured group.
func firstMatch(lines []string, rules []rule) (string, float64, bool) {
	for _, r := range rules {
		for _, line := range lines {
			if m := r.re.FindStringSubmatch(line); m != nil {
				value := strings.TrimSpace(m[1])
				if value != "" {
					return value, r.confidence, true
				}
			}
		}
	}
	return "", 0, false
}

// scanLotExpiry collects lot-number and expiry-date fragments in the order
// they appear.
func scanLotExpiry(lines []string) []string {
	var fragments []string
	for _, line := range lines {
		for _, re := range lotExpRes {
			if m := re.FindStringSubmatch(line); m != nil {
				fragments = append(fragments, strings.TrimSpace(m[1]))
			}
		}
	}
	return fragments
}

// scanMedicines collects index-aligned medicine names and doses from Rx
// lines. Entries are comma-separated; an entry that does not split into a
// name and a dose with a recognized unit is skipped so the two lists stay
// aligned.
func scanMedicines(lines []string) (names, doses []string) {
	inGroup := false
	for _, line := range lines {
		var body string
		if m := rxLineRe.FindStringSubmatch(line); m != nil {
			body = m[1]
			inGroup = true
		} else if inGroup {
			body = strings.TrimSpace(line)
			if body == "" || !strings.ContainsAny(body, "0123456789") {
				inGroup = false
				continue
			}
		} else {
			continue
		}

		for _, entry := range strings.Split(body, ",") {
			entry = strings.TrimSpace(entry)
			if m := rxItemRe.FindStringSubmatch(entry); m != nil {
				names = append(names, strings.TrimSpace(m[1]))
				doses = append(doses, strings.TrimSpace(m[2]))
			}
		}
	}
	return names, doses
}
