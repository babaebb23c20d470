package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"rxtract/internal/schema"
)

// ErrUnparseableResponse means no JSON object could be recovered from the
// model output, even after repair.
var ErrUnparseableResponse = errors.New("model response could not be parsed as JSON")

var (
	codeFenceRe     = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// parseModelResponse turns raw model output into field values. It first
// tries the response as-is (after stripping code fences and locating the
// outermost object); if that fails it applies repairs before retrying.
// The repaired flag is true when either a repair was needed to parse or a
// value needed coercion to its declared field kind.
func parseModelResponse(response string) (values map[schema.FieldName]schema.Value, repaired bool, err error) {
	raw, parseRepaired, err := decodeObject(response)
	if err != nil {
		return nil, false, err
	}

	values = make(map[schema.FieldName]schema.Value)
	coerced := false
	for key, v := range raw {
		spec, ok := schema.Lookup(schema.FieldName(key))
		if !ok {
			continue
		}
		value, wasCoerced := coerceValue(spec, v)
		if value.Present() {
			values[spec.Name] = value
			coerced = coerced || wasCoerced
		}
	}

	return values, parseRepaired || coerced, nil
}

// decodeObject extracts and unmarshals the outermost JSON object.
func decodeObject(response string) (map[string]any, bool, error) {
	candidate := strings.TrimSpace(response)
	if m := codeFenceRe.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(candidate), &raw); err == nil {
		return raw, false, nil
	}

	// Repairs: cut to the outermost braces, then drop trailing commas.
	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start < 0 || end <= start {
		return nil, false, ErrUnparseableResponse
	}
	candidate = trailingCommaRe.ReplaceAllString(candidate[start:end+1], "$1")

	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
	}
	return raw, true, nil
}

// coerceValue converts a decoded JSON value into the field's declared kind.
// The second return reports whether the value had to be reshaped (non-bool
// for a bool field, scalar for a list field, and so on).
func coerceValue(spec schema.FieldSpec, v any) (schema.Value, bool) {
	switch spec.Kind {
	case schema.KindBool:
		switch b := v.(type) {
		case bool:
			return schema.Bool(b), false
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true", "yes", "y":
				return schema.Bool(true), true
			case "false", "no", "n":
				return schema.Bool(false), true
			}
		}
		return schema.Absent(), false

	case schema.KindList:
		switch l := v.(type) {
		case []any:
			// Interior empty entries are placeholders that keep the
			// medicine group index-aligned; only trailing empties carry
			// no position and are dropped.
			items := make([]string, len(l))
			for i, item := range l {
				items[i] = stringify(item)
			}
			for len(items) > 0 && items[len(items)-1] == "" {
				items = items[:len(items)-1]
			}
			return schema.List(items), false
		case string:
			var items []string
			for _, part := range strings.Split(l, ",") {
				if part = strings.TrimSpace(part); part != "" {
					items = append(items, part)
				}
			}
			return schema.List(items), true
		}
		return schema.Absent(), false

	default:
		s := stringify(v)
		if s == "" {
			return schema.Absent(), false
		}
		_, isString := v.(string)
		return schema.String(s), !isString
	}
}

// stringify renders a scalar JSON value as a trimmed string. Nulls, objects,
// and arrays render empty.
func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
