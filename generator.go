package reqdep

import (
	"context"
	"reflect"
	"runtime"
	"strings"
)

// funcProducer calls a plain function, resolving each of its parameters by type.
type funcProducer struct {
	fn   reflect.Value
	info *funcInfo
}

func (f *funcProducer) key() depKey {
	return depKey{kind: keyFunc, code: f.fn.Pointer(), typ: f.fn.Type()}
}

func (f *funcProducer) resultType() reflect.Type {
	return f.info.valueType(f.fn.Type())
}

func (f *funcProducer) label() string {
	return funcName(f.fn)
}

func (f *funcProducer) produce(ctx context.Context, s *Scope) (any, func() error, error) {
	params := make([]reflect.Value, len(f.info.params))
	for i, inType := range f.info.params {
		arg, err := s.argument(ctx, nil, inType)
		if err != nil {
			return nil, nil, err
		}
		params[i] = arg
	}
	return splitResults(s, f.label(), f.info, f.fn.Call(params))
}

// argument resolves one function parameter. A nil declaration means the
// parameter is resolved implicitly by its type.
func (s *Scope) argument(ctx context.Context, dep *Dependency, inType reflect.Type) (reflect.Value, error) {
	if inType == contextType {
		return reflect.ValueOf(ctx), nil
	}
	v, err := s.resolve(ctx, dep, inType)
	if err != nil {
		return reflect.Value{}, err
	}
	return valueFor(v, inType)
}

// splitResults takes the results returned from a factory and separates the
// produced value, the cleanup func and the error.
func splitResults(s *Scope, label string, info *funcInfo, results []reflect.Value) (any, func() error, error) {
	var err error
	if info.errorIndex >= 0 && !results[info.errorIndex].IsNil() {
		err = results[info.errorIndex].Interface().(error)
	}

	var cleanup func() error
	if info.cleanupIndex >= 0 && !results[info.cleanupIndex].IsNil() {
		switch c := results[info.cleanupIndex].Interface().(type) {
		case func():
			cleanup = func() error {
				c()
				return nil
			}
		case func() error:
			cleanup = c
		}
	}

	if err != nil {
		// A failed factory hands back nothing to tear down, but if it did
		// return a cleanup anyway it still has to run.
		if cleanup != nil {
			s.release(label, cleanup)
		}
		return nil, nil, err
	}

	var value any
	if info.valueIndex >= 0 {
		value = results[info.valueIndex].Interface()
	}
	return value, cleanup, nil
}

// funcName returns a readable name for a function, e.g. "go-reqdep.randomValue".
func funcName(fn reflect.Value) string {
	rf := runtime.FuncForPC(fn.Pointer())
	if rf == nil {
		return formatGeneratorDebug(fn.Type())
	}
	name := rf.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
