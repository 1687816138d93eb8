package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FieldKind tags the JSON shape a FieldValue was decoded from.
type FieldKind int

const (
	FieldNull FieldKind = iota
	FieldScalar
	FieldList
	FieldObject
)

// FieldValue holds a document field whose mapping differs between indices:
// the same field may be a string, a list or a nested object.
type FieldValue struct {
	Kind   FieldKind
	Scalar string
	List   []FieldValue
	Object map[string]FieldValue

	raw json.RawMessage
}

// labelKeys are tried in order when an object has to be reduced to a label.
var labelKeys = []string{"name", "title", "label"}

// StringField builds a scalar value, mostly for producers and tests.
func StringField(s string) FieldValue {
	raw, _ := json.Marshal(s)
	return FieldValue{Kind: FieldScalar, Scalar: s, raw: raw}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = FieldValue{}
		return nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return err
	}
	raw := json.RawMessage(compact.Bytes())

	switch trimmed[0] {
	case '[':
		var items []FieldValue
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*v = FieldValue{Kind: FieldList, List: items, raw: raw}
	case '{':
		var obj map[string]FieldValue
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return err
		}
		*v = FieldValue{Kind: FieldObject, Object: obj, raw: raw}
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = FieldValue{Kind: FieldScalar, Scalar: s, raw: raw}
	default:
		*v = FieldValue{Kind: FieldScalar, Scalar: string(raw), raw: raw}
	}
	return nil
}

// MarshalJSON implements json.Marshaler and preserves the decoded shape.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.Kind == FieldNull {
		return []byte("null"), nil
	}
	if len(v.raw) > 0 {
		return v.raw, nil
	}
	switch v.Kind {
	case FieldList:
		return json.Marshal(v.List)
	case FieldObject:
		return json.Marshal(v.Object)
	default:
		return json.Marshal(v.Scalar)
	}
}

// IsZero reports whether the value carries no data.
func (v FieldValue) IsZero() bool {
	return v.Kind == FieldNull
}

// Labels reduces the value to countable labels:
//   - null yields nothing, a scalar yields its trimmed text unless blank;
//   - a list yields the labels of every element;
//   - an object yields its name, title or label sub-field, then the sub-field
//     named after the field itself, and otherwise its compact JSON text.
func (v FieldValue) Labels(field string) []string {
	switch v.Kind {
	case FieldScalar:
		s := strings.TrimSpace(v.Scalar)
		if s == "" {
			return nil
		}
		return []string{s}
	case FieldList:
		var out []string
		for _, item := range v.List {
			out = append(out, item.Labels(field)...)
		}
		return out
	case FieldObject:
		if len(v.Object) == 0 {
			return nil
		}
		keys := labelKeys
		if field != "" {
			keys = append(append([]string{}, labelKeys...), field)
		}
		for _, key := range keys {
			sub, ok := v.Object[key]
			if !ok || sub.Kind != FieldScalar {
				continue
			}
			if s := strings.TrimSpace(sub.Scalar); s != "" {
				return []string{s}
			}
		}
		raw, err := v.MarshalJSON()
		if err != nil {
			return nil
		}
		return []string{string(raw)}
	default:
		return nil
	}
}
