package reqdep

import (
	"fmt"
	"reflect"
)

// optionalWrapper is an internal wrapper to signal that a nil pointer
// should be silently skipped instead of panicking.
type optionalWrapper struct {
	dependency any
}

// Optional wraps a provided value so that a typed nil pointer is silently
// skipped. If the value is non-nil it is provided as usual.
//
// Constraints:
//   - Only pointer and interface types are allowed
//   - Generators (functions) cannot be optional
//
// Primary use case is testing where values may be conditionally provided:
//
//	var mockDB *MockDatabase // may be nil in some tests
//	providers := NewProviders(Optional(mockDB), ...)
func Optional(dep any) *optionalWrapper {
	return &optionalWrapper{
		dependency: dep,
	}
}

// processOptional handles optional values.
// If nil, silently skipped. If non-nil, added as a normal value.
func (p *Providers) processOptional(ow *optionalWrapper) {
	dep := ow.dependency

	if _, ok := dep.(*optionalWrapper); ok {
		panic("Optional() cannot wrap another Optional()")
	}
	if _, ok := dep.(ProviderOption); ok {
		panic("Optional() cannot wrap an option")
	}

	depType := reflect.TypeOf(dep)
	if depType == nil {
		return // untyped nil - skip silently
	}

	if depType.Kind() == reflect.Func {
		panic("Optional() cannot wrap a generator function")
	}
	if _, ok := dep.(producer); ok {
		panic("Optional() cannot wrap a generator")
	}

	kind := depType.Kind()
	if kind != reflect.Pointer && kind != reflect.Interface {
		panic(fmt.Sprintf("Optional() requires a pointer or interface type, got: %s", depType.String()))
	}

	if reflect.ValueOf(dep).IsNil() {
		return // typed nil - skip silently
	}

	p.addValue(depType, dep)
}
