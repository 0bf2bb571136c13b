package fieldservice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type responseShape int

const (
	shapeUnknown responseShape = iota
	// [{"Name": ["Alice"]}, {"Email": ["a@x.com"]}]
	shapeArrayOfSingleKeyObjects
	// {"Name": ["Alice"], "Email": ["a@x.com"]}
	shapeFlatObjectOfArrays
)

func (s responseShape) String() string {
	switch s {
	case shapeArrayOfSingleKeyObjects:
		return "array_of_single_key_objects"
	case shapeFlatObjectOfArrays:
		return "flat_object_of_arrays"
	default:
		return "unknown"
	}
}

var (
	arrayOfSingleKeyObjectsSchema = mustCompileSchema("array-of-single-key-objects.json", map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":                 "object",
			"minProperties":        1,
			"maxProperties":        1,
			"additionalProperties": map[string]any{"type": "array"},
		},
	})
	flatObjectOfArraysSchema = mustCompileSchema("flat-object-of-arrays.json", map[string]any{
		"type":                 "object",
		"additionalProperties": map[string]any{"type": "array"},
	})
)

func mustCompileSchema(name string, schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal schema %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

func detectShape(v any) responseShape {
	if err := arrayOfSingleKeyObjectsSchema.Validate(v); err == nil {
		return shapeArrayOfSingleKeyObjects
	}
	if err := flatObjectOfArraysSchema.Validate(v); err == nil {
		return shapeFlatObjectOfArrays
	}
	return shapeUnknown
}

// Normalize folds an extraction response into key -> value[0]. Keys are
// trimmed, the first value seen for a key wins and empty arrays are skipped.
func Normalize(raw []byte) (Fields, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownShape, err)
	}

	out := Fields{}
	switch detectShape(v) {
	case shapeArrayOfSingleKeyObjects:
		for _, item := range v.([]any) {
			for key, values := range item.(map[string]any) {
				addFirst(out, key, values.([]any))
			}
		}
	case shapeFlatObjectOfArrays:
		entries, err := orderedEntries(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknownShape, err)
		}
		for _, e := range entries {
			addFirst(out, e.key, e.values)
		}
	default:
		return nil, ErrUnknownShape
	}
	return out, nil
}

func addFirst(out Fields, key string, values []any) {
	key = strings.TrimSpace(key)
	if key == "" || len(values) == 0 {
		return
	}
	if _, seen := out[key]; seen {
		return
	}
	out[key] = toFieldValue(values[0])
}

func toFieldValue(v any) FieldValue {
	obj, ok := v.(map[string]any)
	if !ok {
		return FieldValue{Value: scalarString(v)}
	}
	fv := FieldValue{Value: scalarString(obj["value"])}
	for _, name := range []string{"confidence", "confidence_score"} {
		if c, ok := toFloat(obj[name]); ok {
			fv.Confidence = &c
			break
		}
	}
	return fv
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

type objectEntry struct {
	key    string
	values []any
}

// orderedEntries decodes a JSON object of arrays in document order, keeping
// repeated keys that a map would collapse.
func orderedEntries(raw []byte) ([]objectEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object")
	}
	var entries []objectEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key")
		}
		var values []any
		if err := dec.Decode(&values); err != nil {
			return nil, err
		}
		entries = append(entries, objectEntry{key: key, values: values})
	}
	return entries, nil
}
