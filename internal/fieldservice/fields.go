package fieldservice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// defaultSpec is sent literally when no explicit fields are requested.
const defaultSpec = "default"

// ErrInvalidFieldSpec marks a request body that is neither the default sentinel nor a field list.
var ErrInvalidFieldSpec = errors.New("invalid field spec")

// Field names a value the extraction service should look for.
type Field struct {
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
}

// FieldSpec is either the default sentinel (no fields) or an ordered field list.
type FieldSpec struct {
	Fields []Field
}

// DefaultSpec lets the extraction service choose its own fields.
func DefaultSpec() FieldSpec {
	return FieldSpec{}
}

// IsDefault reports whether the spec carries no explicit fields.
func (s FieldSpec) IsDefault() bool {
	return len(s.Fields) == 0
}

// MarshalJSON encodes the default sentinel as "default" and explicit fields as an array.
func (s FieldSpec) MarshalJSON() ([]byte, error) {
	if s.IsDefault() {
		return json.Marshal(defaultSpec)
	}
	return json.Marshal(s.Fields)
}

// UnmarshalJSON accepts the same forms as ParseFieldSpec.
func (s *FieldSpec) UnmarshalJSON(data []byte) error {
	parsed, err := ParseFieldSpec(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CacheKey identifies the spec for in-flight deduplication.
func (s FieldSpec) CacheKey() string {
	raw, err := s.MarshalJSON()
	if err != nil {
		return defaultSpec
	}
	return string(raw)
}

// ParseFieldSpec reads a request body. Empty, null, "default" and [] all mean
// the default spec; an array of {key, description} is an explicit list.
func ParseFieldSpec(raw []byte) (FieldSpec, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return DefaultSpec(), nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return FieldSpec{}, fmt.Errorf("%w: %v", ErrInvalidFieldSpec, err)
		}
		if strings.EqualFold(strings.TrimSpace(s), defaultSpec) {
			return DefaultSpec(), nil
		}
		return FieldSpec{}, fmt.Errorf("%w: unknown sentinel %q", ErrInvalidFieldSpec, s)
	case '[':
		var fields []Field
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return FieldSpec{}, fmt.Errorf("%w: %v", ErrInvalidFieldSpec, err)
		}
		for i, f := range fields {
			if strings.TrimSpace(f.Key) == "" {
				return FieldSpec{}, fmt.Errorf("%w: field %d has an empty key", ErrInvalidFieldSpec, i)
			}
		}
		return FieldSpec{Fields: fields}, nil
	default:
		return FieldSpec{}, fmt.Errorf("%w: expected \"default\" or an array of fields", ErrInvalidFieldSpec)
	}
}

// FieldValue is one normalized extraction result.
type FieldValue struct {
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence"`
}

// Fields maps a trimmed field key to its extracted value.
type Fields map[string]FieldValue

// Values drops confidences, giving the plain key to value map used for redaction.
func (f Fields) Values() map[string]string {
	out := make(map[string]string, len(f))
	for k, v := range f {
		out[k] = v.Value
	}
	return out
}

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		if v.Confidence != nil {
			c := *v.Confidence
			v.Confidence = &c
		}
		out[k] = v
	}
	return out
}
