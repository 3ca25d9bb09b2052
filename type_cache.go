package reqdep

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

var (
	contextType      = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType        = reflect.TypeOf((*error)(nil)).Elem()
	cleanupType      = reflect.TypeOf((func())(nil))
	cleanupErrorType = reflect.TypeOf((func() error)(nil))
)

// funcInfo caches the reflection work needed to call a function as a factory
// or a handler.
type funcInfo struct {
	params []reflect.Type

	// Index of the produced value in the results, or -1 when the function
	// only returns an error (or nothing).
	valueIndex int
	// Index of the cleanup func in the results, or -1.
	cleanupIndex int
	// Index of the error in the results, or -1.
	errorIndex int
}

// valueType returns the type of the produced value, or nil if the function does not produce one.
func (fi *funcInfo) valueType(fnType reflect.Type) reflect.Type {
	if fi.valueIndex < 0 {
		return nil
	}
	return fnType.Out(fi.valueIndex)
}

var globalFuncCache sync.Map // map[reflect.Type]*funcInfo

// getFuncInfo returns the cached analysis of a function type. The result layout
// accepted is a value first, optionally followed by a cleanup func and/or an
// error. A lone error (or no result at all) is allowed for handlers and guards.
// Malformed layouts panic since they are programming errors found at
// declaration time.
func getFuncInfo(t reflect.Type) *funcInfo {
	if cached, ok := globalFuncCache.Load(t); ok {
		return cached.(*funcInfo)
	}
	if t.Kind() != reflect.Func {
		panic(fmt.Sprintf("expected a function, got %v", t))
	}
	if t.IsVariadic() {
		panic(fmt.Sprintf("variadic functions cannot be injected: %v", t))
	}

	info := &funcInfo{
		params:       make([]reflect.Type, t.NumIn()),
		valueIndex:   -1,
		cleanupIndex: -1,
		errorIndex:   -1,
	}
	for i := 0; i < t.NumIn(); i++ {
		info.params[i] = t.In(i)
	}

	for i := 0; i < t.NumOut(); i++ {
		out := t.Out(i)
		switch {
		case out == errorType:
			if info.errorIndex >= 0 {
				panic("multiple error results on a function not permitted")
			}
			if i != t.NumOut()-1 {
				panic("the error result must be the last result")
			}
			info.errorIndex = i
		case i == 0:
			info.valueIndex = i
		case out == cleanupType || out == cleanupErrorType:
			if info.cleanupIndex >= 0 {
				panic("multiple cleanup results on a function not permitted")
			}
			info.cleanupIndex = i
		default:
			panic(fmt.Sprintf("unexpected result %v at position %d of %v", out, i, t))
		}
	}

	actual, _ := globalFuncCache.LoadOrStore(t, info)
	return actual.(*funcInfo)
}

// assignCache caches which concrete types are assignable to which target types.
type assignCache struct {
	mu    sync.RWMutex
	cache map[assignCacheKey]bool
}

type assignCacheKey struct {
	concrete reflect.Type
	target   reflect.Type
}

var globalAssignCache = &assignCache{
	cache: make(map[assignCacheKey]bool),
}

// canAssign checks if the concrete type can be assigned to the target type, with caching.
func canAssign(concrete, target reflect.Type) bool {
	if concrete == target {
		return true
	}
	if target.Kind() != reflect.Interface {
		return false
	}

	key := assignCacheKey{concrete: concrete, target: target}

	globalAssignCache.mu.RLock()
	if result, ok := globalAssignCache.cache[key]; ok {
		globalAssignCache.mu.RUnlock()
		return result
	}
	globalAssignCache.mu.RUnlock()

	result := concrete.AssignableTo(target)

	globalAssignCache.mu.Lock()
	globalAssignCache.cache[key] = result
	globalAssignCache.mu.Unlock()

	return result
}

// valueFor converts a resolved value into an argument of the given parameter type.
func valueFor(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, &DependencyError{
			Message:        fmt.Sprintf("resolved %v is not assignable", rv.Type()),
			ReferencedType: t,
			SourceError:    ErrNotAssignable,
		}
	}
	return rv, nil
}

// zeroInstance returns a usable zero value of t for calling methods on it. Pointer
// types get a freshly allocated element so pointer-receiver methods work.
func zeroInstance(t reflect.Type) any {
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface()
	}
	if t.Kind() == reflect.Interface {
		return nil
	}
	return reflect.Zero(t).Interface()
}
