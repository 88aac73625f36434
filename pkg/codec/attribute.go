package codec

import (
	"encoding/json"
	"fmt"
	"sort"
)

// AttributeKind tags the variant of an AttributeValue
type AttributeKind string

const (
	KindString AttributeKind = "S"
	KindNumber AttributeKind = "N"
)

// AttributeValue is a tagged scalar of a stored item. The only
// implementations are StringValue and NumberValue.
type AttributeValue interface {
	Kind() AttributeKind
	Text() string
	sealed()
}

// StringValue is a string-typed attribute, {"S": "..."} on the wire
type StringValue string

// NumberValue is a numeric attribute held as base-10 text, {"N": "..."} on the wire
type NumberValue string

func (StringValue) Kind() AttributeKind { return KindString }
func (v StringValue) Text() string      { return string(v) }
func (StringValue) sealed()             {}

func (NumberValue) Kind() AttributeKind { return KindNumber }
func (v NumberValue) Text() string      { return string(v) }
func (NumberValue) sealed()             {}

// AttributeMap is the storage shape of one item: attribute name to tagged value
type AttributeMap map[string]AttributeValue

// Keys returns the attribute names in sorted order
func (m AttributeMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StringAttr returns the named attribute if it is string-typed
func (m AttributeMap) StringAttr(name string) (string, bool) {
	v, ok := m[name].(StringValue)
	return string(v), ok
}

// Clone returns a shallow copy; values are immutable so this is a full copy
func (m AttributeMap) Clone() AttributeMap {
	out := make(AttributeMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type wireValue struct {
	S *string `json:"S,omitempty"`
	N *string `json:"N,omitempty"`
}

// MarshalJSON encodes the map in the {"name": {"S"|"N": "..."}} wire shape
func (m AttributeMap) MarshalJSON() ([]byte, error) {
	wire := make(map[string]wireValue, len(m))
	for name, v := range m {
		switch tv := v.(type) {
		case StringValue:
			text := string(tv)
			wire[name] = wireValue{S: &text}
		case NumberValue:
			text := string(tv)
			wire[name] = wireValue{N: &text}
		default:
			return nil, &MalformedAttributeError{Field: name, Err: fmt.Errorf("unknown attribute type %T", v)}
		}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the wire shape. Each value must carry exactly one of S or N.
func (m *AttributeMap) UnmarshalJSON(data []byte) error {
	var wire map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("invalid attribute map: %w", err)
	}

	out := make(AttributeMap, len(wire))
	for name, tagged := range wire {
		if len(tagged) != 1 {
			return &MalformedAttributeError{Field: name, Err: fmt.Errorf("expected exactly one type tag, got %d", len(tagged))}
		}
		for tag, raw := range tagged {
			var text *string
			if err := json.Unmarshal(raw, &text); err != nil {
				return &MalformedAttributeError{Field: name, Err: err}
			}
			if text == nil {
				return &MalformedAttributeError{Field: name, Err: fmt.Errorf("null %s value", tag)}
			}
			switch AttributeKind(tag) {
			case KindString:
				out[name] = StringValue(*text)
			case KindNumber:
				out[name] = NumberValue(*text)
			default:
				return &MalformedAttributeError{Field: name, Err: fmt.Errorf("unsupported type tag %q", tag)}
			}
		}
	}
	*m = out
	return nil
}
