package schema

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Body is the raw body of the current request.
type Body []byte

// FromBody is a factory validating the request body into a *T. Use it with
// reqdep.Depends when a parameter needs an explicit input schema:
//
//	reqdep.Depends(schema.FromBody[CreateUser])
func FromBody[T any](body Body) (*T, error) {
	return Validate[T]([]byte(body))
}

// toMap normalizes any supported payload into a map keyed by payload field name.
func toMap(payload any, st reflect.Type) (map[string]any, *ValidationError) {
	switch p := payload.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return p, nil
	case string:
		return parseText([]byte(p))
	case []byte:
		return parseText(p)
	case Body:
		return parseText(p)
	}

	rv := reflect.ValueOf(payload)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return map[string]any{}, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, newValidationError("payload must be an object")
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return m, nil
	case reflect.Struct:
		return readAttributes(rv.Interface(), st)
	case reflect.String:
		return parseText([]byte(rv.String()))
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return parseText(rv.Bytes())
		}
	}
	return nil, newValidationError("payload must be an object")
}

// parseText parses JSON text. A document that is a JSON string is taken to be
// double-encoded and parsed once more.
func parseText(text []byte) (map[string]any, *ValidationError) {
	if len(strings.TrimSpace(string(text))) == 0 {
		return map[string]any{}, nil
	}
	var doc any
	if err := json.Unmarshal(text, &doc); err != nil {
		return nil, newValidationError("payload is not valid JSON")
	}
	if inner, ok := doc.(string); ok {
		doc = nil
		if err := json.Unmarshal([]byte(inner), &doc); err != nil {
			return nil, newValidationError("payload is not valid JSON")
		}
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, newValidationError("payload must be an object")
	}
	return m, nil
}

// readAttributes reads the fields the schema declares from an arbitrary
// object. Attributes are matched to schema fields by payload name or Go name,
// ignoring case.
func readAttributes(obj any, st reflect.Type) (map[string]any, *ValidationError) {
	attrs := map[string]any{}
	if err := mapstructure.Decode(obj, &attrs); err != nil {
		return nil, newValidationError("payload attributes cannot be read")
	}

	out := map[string]any{}
	for _, f := range getStructInfo(st).fields {
		for k, v := range attrs {
			if strings.EqualFold(k, f.name) || strings.EqualFold(k, f.goName) {
				out[f.name] = v
				break
			}
		}
	}
	return out, nil
}
