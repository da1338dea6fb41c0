package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"google.golang.org/genai"

	"prepple/interview-api/internal/apperr"
)

// clampTolerance is how far outside [Minimum, Maximum] a number may land
// before it is rejected instead of pulled back into range.
const clampTolerance = 5.0

// ValidateAgainstSchema checks a JSON document against schema and returns a
// repaired copy along with a note for every repair applied. Repairs are limited
// to enum normalisation and clamping of numbers that are slightly out of range.
func ValidateAgainstSchema(data []byte, schema *genai.Schema) (json.RawMessage, []string, error) {
	if schema == nil {
		return nil, nil, fmt.Errorf("%w: no schema supplied", apperr.ErrConfiguration)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("%w: response is not valid JSON: %w", apperr.ErrMalformedOutput, err)
	}
	if dec.More() {
		return nil, nil, fmt.Errorf("%w: trailing data after JSON document", apperr.ErrMalformedOutput)
	}

	v := &schemaValidator{}
	repaired, err := v.validate("$", doc, schema)
	if err != nil {
		return nil, nil, err
	}

	out, err := json.Marshal(repaired)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to encode repaired response: %w", apperr.ErrMalformedOutput, err)
	}
	return out, v.repairs, nil
}

type schemaValidator struct {
	repairs []string
}

func (v *schemaValidator) validate(path string, value any, schema *genai.Schema) (any, error) {
	switch schema.Type {
	case genai.TypeObject:
		return v.validateObject(path, value, schema)
	case genai.TypeArray:
		return v.validateArray(path, value, schema)
	case genai.TypeString:
		return v.validateString(path, value, schema)
	case genai.TypeNumber, genai.TypeInteger:
		return v.validateNumber(path, value, schema)
	case genai.TypeBoolean:
		if _, ok := value.(bool); !ok {
			return nil, typeError(path, "boolean", value)
		}
		return value, nil
	default:
		return nil, fmt.Errorf("%w: unsupported schema type %q at %s", apperr.ErrConfiguration, schema.Type, path)
	}
}

func (v *schemaValidator) validateObject(path string, value any, schema *genai.Schema) (any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, typeError(path, "object", value)
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, known := schema.Properties[k]; !known {
			return nil, fmt.Errorf("%w: unexpected property %s.%s", apperr.ErrMalformedOutput, path, k)
		}
	}

	for _, k := range schema.Required {
		if val, present := obj[k]; !present || val == nil {
			return nil, fmt.Errorf("%w: %w: required property %s.%s is missing", apperr.ErrMalformedOutput, apperr.ErrSchemaViolation, path, k)
		}
	}

	out := make(map[string]any, len(obj))
	for _, k := range keys {
		child, err := v.validate(path+"."+k, obj[k], schema.Properties[k])
		if err != nil {
			return nil, err
		}
		if s, isString := child.(string); isString && slices.Contains(schema.Required, k) && strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%w: required property %s.%s is blank", apperr.ErrMalformedOutput, path, k)
		}
		out[k] = child
	}
	return out, nil
}

func (v *schemaValidator) validateArray(path string, value any, schema *genai.Schema) (any, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, typeError(path, "array", value)
	}

	out := make([]any, 0, len(items))
	for i, item := range items {
		if schema.Items == nil {
			out = append(out, item)
			continue
		}
		child, err := v.validate(fmt.Sprintf("%s[%d]", path, i), item, schema.Items)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

func (v *schemaValidator) validateString(path string, value any, schema *genai.Schema) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, typeError(path, "string", value)
	}
	if len(schema.Enum) == 0 || slices.Contains(schema.Enum, s) {
		return s, nil
	}

	normalized := normalizeEnum(s)
	if !slices.Contains(schema.Enum, normalized) {
		return nil, fmt.Errorf("%w: %s has value %q, want one of %s", apperr.ErrMalformedOutput, path, s, strings.Join(schema.Enum, ", "))
	}
	v.repairs = append(v.repairs, fmt.Sprintf("%s normalized %q to %q", path, s, normalized))
	return normalized, nil
}

func (v *schemaValidator) validateNumber(path string, value any, schema *genai.Schema) (any, error) {
	num, ok := value.(json.Number)
	if !ok {
		return nil, typeError(path, "number", value)
	}
	f, err := num.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("%w: %s is not a finite number", apperr.ErrMalformedOutput, path)
	}
	if schema.Type == genai.TypeInteger && f != math.Trunc(f) {
		return nil, typeError(path, "integer", value)
	}

	if schema.Minimum != nil && f < *schema.Minimum {
		if *schema.Minimum-f > clampTolerance {
			return nil, fmt.Errorf("%w: %s is %g, below minimum %g", apperr.ErrSchemaViolation, path, f, *schema.Minimum)
		}
		v.repairs = append(v.repairs, fmt.Sprintf("%s clamped %g to %g", path, f, *schema.Minimum))
		f = *schema.Minimum
	}
	if schema.Maximum != nil && f > *schema.Maximum {
		if f-*schema.Maximum > clampTolerance {
			return nil, fmt.Errorf("%w: %s is %g, above maximum %g", apperr.ErrSchemaViolation, path, f, *schema.Maximum)
		}
		v.repairs = append(v.repairs, fmt.Sprintf("%s clamped %g to %g", path, f, *schema.Maximum))
		f = *schema.Maximum
	}
	return f, nil
}

// normalizeEnum maps "Strongly Recommend" or "strongly-recommend" to
// "strongly_recommend".
func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}

func typeError(path, want string, got any) error {
	return fmt.Errorf("%w: %s must be %s, got %s", apperr.ErrMalformedOutput, path, want, jsonKind(got))
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
