package schema

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return sf.Name
		}
		return name
	})
	return v
}

// Validate builds a *T from payload. Payload is one of:
//   - raw JSON text (string, []byte, Body); a JSON document that is itself a
//     string is parsed once more
//   - a map with string keys
//   - any other struct or pointer to struct, whose fields are read by name
//
// Failures are returned as *ValidationError.
func Validate[T any](payload any) (*T, error) {
	target := new(T)
	if err := ValidateInto(target, payload); err != nil {
		return nil, err
	}
	return target, nil
}

// ValidateInto fills target, a non-nil pointer to a schema struct, from payload.
// See Validate.
func ValidateInto(target any, payload any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("schema target must be a non-nil pointer to a struct, got %T", target)
	}
	st := rv.Elem().Type()
	info := getStructInfo(st)

	fields, verr := toMap(payload, st)
	if verr != nil {
		return verr
	}

	problems := map[int][]string{}
	// Indexes of fields given a non-null value, which satisfies required
	// even when that value is zero.
	given := map[int]bool{}
	for i, f := range info.fields {
		raw, present := fields[f.name]
		if !present || raw == nil {
			if f.required {
				problems[i] = append(problems[i], f.name+" field required")
			}
			continue
		}
		given[i] = true
		if err := decodeField(raw, rv.Elem().Field(f.index)); err != nil {
			problems[i] = append(problems[i], f.name+" field has invalid type")
		}
	}

	if err := validate.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			i, ok := info.byName[topLevelField(fe)]
			if !ok {
				i = len(info.fields)
			}
			if len(problems[i]) > 0 && i < len(info.fields) {
				// Already reported while decoding.
				continue
			}
			if ok && given[i] && fe.Tag() == "required" && strings.Count(fe.Namespace(), ".") == 1 {
				continue
			}
			problems[i] = append(problems[i], describe(fe))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	order := make([]int, 0, len(problems))
	for i := range problems {
		order = append(order, i)
	}
	sort.Ints(order)
	var msgs []string
	for _, i := range order {
		msgs = append(msgs, problems[i]...)
	}
	return newValidationError(msgs...)
}

// topLevelField returns the payload name of the top-level field a validator
// error belongs to.
func topLevelField(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	name, _, _ := strings.Cut(ns, ".")
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

func describe(fe validator.FieldError) string {
	name := fe.Field()
	if ns := fe.Namespace(); strings.Count(ns, ".") > 1 {
		_, name, _ = strings.Cut(ns, ".")
	}
	switch fe.Tag() {
	case "required":
		return name + " field required"
	case "min", "gte":
		return fmt.Sprintf("%s field must be at least %s", name, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s field must be at most %s", name, fe.Param())
	case "gt":
		return fmt.Sprintf("%s field must be greater than %s", name, fe.Param())
	case "lt":
		return fmt.Sprintf("%s field must be less than %s", name, fe.Param())
	case "len":
		return fmt.Sprintf("%s field must have length %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s field must be one of [%s]", name, fe.Param())
	case "email":
		return name + " field must be a valid email address"
	}
	return fmt.Sprintf("%s field failed %s validation", name, fe.Tag())
}

// decodeField decodes one raw payload value into a struct field.
func decodeField(raw any, dst reflect.Value) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     dst.Addr().Interface(),
		DecodeHook: integralNumbers,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// integralNumbers rejects JSON numbers with a fraction for integer fields,
// which mapstructure would otherwise truncate.
func integralNumbers(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 && from.Kind() != reflect.Float32 {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f := reflect.ValueOf(data).Float()
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%v is not an integer", f)
		}
	}
	return data, nil
}
