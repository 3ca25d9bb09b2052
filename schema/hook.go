package schema

import (
	"context"
	"reflect"

	reqdep "github.com/gburgyan/go-reqdep"
)

// BodyHook resolves implicit dependencies on input schemas (types embedding
// Form) by validating the request body into them. The body itself is resolved
// as a Body dependency, so some provider must produce one; the route package
// registers it.
//
// BodyHook is a reqdep.ExistenceHook: an input schema is said to exist when the
// body carries all of its required fields, which is what lets OneOf choose
// between several schemas.
type BodyHook struct{}

var bodyType = reflect.TypeOf(Body(nil))

func (BodyHook) Handles(t reflect.Type) bool {
	return IsModel(t)
}

func (BodyHook) Produce(ctx context.Context, t reflect.Type) (any, error) {
	body, err := reqdep.Get[Body](ctx, nil)
	if err != nil {
		return nil, err
	}
	st, err := structType(t)
	if err != nil {
		return nil, err
	}
	target := reflect.New(st)
	if err := ValidateInto(target.Interface(), []byte(body)); err != nil {
		return nil, err
	}
	if t.Kind() == reflect.Pointer {
		return target.Interface(), nil
	}
	return target.Elem().Interface(), nil
}

func (BodyHook) Exists(ctx context.Context, t reflect.Type) bool {
	v, err := reqdep.ResolveType(ctx, bodyType)
	if err != nil {
		return false
	}
	body, _ := v.(Body)
	return Exists(t, []byte(body))
}
