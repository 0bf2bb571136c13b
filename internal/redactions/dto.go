package redactions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"docredact-backend/internal/documents"
)

// selectedValue accepts either a plain string or the extracted
// {"value": ..., "confidence": ...} shape.
type selectedValue struct {
	Value string
}

func (v *selectedValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty value")
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &v.Value)
	case '{':
		var obj struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if len(obj.Value) == 0 {
			return errors.New("object without value")
		}
		return v.UnmarshalJSON(obj.Value)
	case 'n':
		return errors.New("null value")
	case '[':
		return errors.New("array value")
	default:
		// numbers and booleans are redacted as their literal text
		v.Value = string(data)
		return nil
	}
}

// parseSelection decodes a redaction request body into field -> value.
func parseSelection(raw []byte) (map[string]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return map[string]string{}, nil
	}
	var body map[string]selectedValue
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return nil, fmt.Errorf("%w: body must be an object of field values: %v", documents.ErrInvalidInput, err)
	}
	out := make(map[string]string, len(body))
	for k, v := range body {
		out[k] = v.Value
	}
	return out, nil
}
