package reqdep

import (
	"context"
	"fmt"
	"reflect"
)

// Binding is a function together with the dependency declarations of its
// parameters. It plays the part of a decorated handler: the declarations are
// fixed when Bind is called and every call resolves them against the scope of
// the current invocation.
//
// Declarations line up with the function's parameters, skipping any
// context.Context parameter, which always receives the invocation context.
// Parameters without a declaration are resolved with Infer.
//
//	h := Bind(func(ctx context.Context, in *InputForm, a, b int) error {
//	    ...
//	}, Infer(), Depends(randomValue), Depends(randomValue))
//
// A Binding is also a factory: passed to Depends, it lets a dependency declare
// explicit dependencies of its own.
type Binding struct {
	fn    reflect.Value
	info  *funcInfo
	decls []*Dependency
}

// Bind binds fn to the given parameter declarations. It panics if fn is not a
// function or if there are more declarations than injectable parameters.
func Bind(fn any, decls ...*Dependency) *Binding {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		panic(fmt.Sprintf("Bind needs a function, got %T", fn))
	}
	info := getFuncInfo(fv.Type())

	b := &Binding{
		fn:    fv,
		info:  info,
		decls: make([]*Dependency, len(info.params)),
	}

	next := 0
	for i, p := range info.params {
		if p == contextType {
			continue
		}
		if next < len(decls) {
			b.decls[i] = decls[next]
			next++
		}
	}
	if next < len(decls) {
		panic(fmt.Sprintf("%d dependencies declared for %d injectable parameters of %s",
			len(decls), next, funcName(fv)))
	}
	return b
}

// Call resolves every parameter in the scope carried by ctx and calls the
// function, returning its raw results. If any parameter fails to resolve the
// function is not called.
func (b *Binding) Call(ctx context.Context) ([]reflect.Value, error) {
	s, err := scopeOrError(ctx)
	if err != nil {
		return nil, err
	}
	params := make([]reflect.Value, len(b.info.params))
	for i, inType := range b.info.params {
		arg, err := s.argument(ctx, b.decls[i], inType)
		if err != nil {
			return nil, err
		}
		params[i] = arg
	}
	return b.fn.Call(params), nil
}

// Invoke calls the binding and returns its produced value (nil if it has
// none) and its error result. A cleanup result is registered on the scope.
func (b *Binding) Invoke(ctx context.Context) (any, error) {
	results, err := b.Call(ctx)
	if err != nil {
		return nil, err
	}
	s, _ := ScopeFrom(ctx)
	value, cleanup, err := splitResults(s, b.label(), b.info, results)
	if cleanup != nil {
		s.RecordTeardown(b.label(), cleanup)
	}
	return value, err
}

// ResultType is the type of the value the bound function produces, or nil.
func (b *Binding) ResultType() reflect.Type {
	return b.resultType()
}

func (b *Binding) String() string {
	return b.label()
}

func (b *Binding) key() depKey {
	return depKey{kind: keyPointer, ref: b}
}

func (b *Binding) resultType() reflect.Type {
	return b.info.valueType(b.fn.Type())
}

func (b *Binding) label() string {
	return funcName(b.fn)
}

func (b *Binding) produce(ctx context.Context, s *Scope) (any, func() error, error) {
	results, err := b.Call(ctx)
	if err != nil {
		return nil, nil, err
	}
	return splitResults(s, b.label(), b.info, results)
}
