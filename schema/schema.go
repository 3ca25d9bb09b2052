// Package schema turns request payloads into validated, typed values.
//
// A schema is a struct. Field names come from `json` tags and field rules
// from go-playground/validator `validate` tags:
//
//	type CreateUser struct {
//	    schema.Form
//	    ID   int    `json:"id" validate:"required"`
//	    Name string `json:"name" validate:"required,max=64"`
//	}
//
// Embedding Form marks the struct as an input schema, which lets the route
// package bind it from the request body without an explicit factory.
package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Model is implemented by input schemas, by embedding Form.
type Model interface {
	schemaModel()
}

// Form marks the embedding struct as an input schema.
type Form struct{}

func (Form) schemaModel() {}

var (
	modelType = reflect.TypeOf((*Model)(nil)).Elem()
	formType  = reflect.TypeOf(Form{})
)

// IsModel reports whether t, or the struct t points to, is an input schema.
func IsModel(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && t.Implements(modelType)
}

// field describes one schema field.
type field struct {
	index    int
	goName   string
	name     string
	required bool
}

type structInfo struct {
	fields []field
	byName map[string]int
}

var structCache sync.Map // map[reflect.Type]*structInfo

func getStructInfo(t reflect.Type) *structInfo {
	if cached, ok := structCache.Load(t); ok {
		return cached.(*structInfo)
	}
	info := &structInfo{byName: map[string]int{}}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || (sf.Anonymous && sf.Type == formType) {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		f := field{
			index:    i,
			goName:   sf.Name,
			name:     name,
			required: hasRule(sf.Tag.Get("validate"), "required"),
		}
		info.byName[name] = len(info.fields)
		info.fields = append(info.fields, f)
	}
	actual, _ := structCache.LoadOrStore(t, info)
	return actual.(*structInfo)
}

func hasRule(tag, rule string) bool {
	for _, r := range strings.Split(tag, ",") {
		if r == rule {
			return true
		}
	}
	return false
}

// structType returns the struct type a schema target describes.
func structType(t reflect.Type) (reflect.Type, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema must be a struct, got %v", t)
	}
	return t, nil
}

// RequiredFields lists the payload names of the fields t requires, in
// declaration order.
func RequiredFields(t reflect.Type) []string {
	st, err := structType(t)
	if err != nil {
		return nil
	}
	var names []string
	for _, f := range getStructInfo(st).fields {
		if f.required {
			names = append(names, f.name)
		}
	}
	return names
}

// Exists reports whether payload could plausibly be validated into t: it is
// an object that carries every required field. Field rules are not checked.
func Exists(t reflect.Type, payload any) bool {
	st, err := structType(t)
	if err != nil {
		return false
	}
	fields, verr := toMap(payload, st)
	if verr != nil {
		return false
	}
	for _, f := range getStructInfo(st).fields {
		if !f.required {
			continue
		}
		if v, ok := fields[f.name]; !ok || v == nil {
			return false
		}
	}
	return true
}
