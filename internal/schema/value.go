package schema

import "encoding/json"

// Value is the variant type for field values: a scalar string, a boolean,
// or an ordered list of strings. The zero Value is absent.
type Value struct {
	kind    Kind
	present bool
	str     string
	boolean bool
	list    []string
}

// Absent returns the explicit absent marker.
func Absent() Value {
	return Value{}
}

// String returns a present scalar string value.
func String(s string) Value {
	return Value{kind: KindString, present: true, str: s}
}

// Bool returns a present boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, present: true, boolean: b}
}

// List returns a present list value. An empty or nil list is absent: a
// repeatable field with no entries carries no information.
func List(items []string) Value {
	if len(items) == 0 {
		return Absent()
	}
	copied := make([]string, len(items))
	copy(copied, items)
	return Value{kind: KindList, present: true, list: copied}
}

// Present reports whether the value is set.
func (v Value) Present() bool {
	return v.present
}

// Kind returns the value's kind. Only meaningful when present.
func (v Value) Kind() Kind {
	return v.kind
}

// Str returns the scalar string. Empty unless present and KindString.
func (v Value) Str() string {
	if !v.present || v.kind != KindString {
		return ""
	}
	return v.str
}

// Bool returns the boolean. False unless present and KindBool.
func (v Value) Bool() bool {
	if !v.present || v.kind != KindBool {
		return false
	}
	return v.boolean
}

// List returns a copy of the list entries. Nil unless present and KindList.
func (v Value) List() []string {
	if !v.present || v.kind != KindList {
		return nil
	}
	copied := make([]string, len(v.list))
	copy(copied, v.list)
	return copied
}

// Len returns the number of list entries, 0 for non-list values.
func (v Value) Len() int {
	if !v.present || v.kind != KindList {
		return 0
	}
	return len(v.list)
}

// Equal reports whether two values are identical in presence, kind and
// content.
func (v Value) Equal(other Value) bool {
	if v.present != other.present {
		return false
	}
	if !v.present {
		return true
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindBool:
		return v.boolean == other.boolean
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != other.list[i] {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON renders the value per the output contract: string, boolean,
// list of strings, or null when absent.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.present {
		return []byte("null"), nil
	}
	switch v.kind {
	case KindBool:
		return json.Marshal(v.boolean)
	case KindList:
		return json.Marshal(v.list)
	default:
		return json.Marshal(v.str)
	}
}
