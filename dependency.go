package reqdep

import (
	"context"
	"fmt"
	"reflect"
)

// Dependency declares how a handler parameter gets its value. It is built once,
// when the handler is bound, and never changes afterwards.
//
// An explicit dependency (Depends, Named) always calls its factory and ignores
// the type of the parameter it is attached to. An implicit one (Infer, OneOf)
// is resolved from the parameter type, or from a list of alternatives tried in
// order.
type Dependency struct {
	producer     producer
	explicit     bool
	alternatives []alternative
}

type alternative struct {
	// producer is nil for alternatives that are resolved by type.
	producer producer
	typ      reflect.Type
}

// Depends declares an explicit dependency on a factory. The factory is a
// function, a *Binding or a *Resource.
//
// Function factories return a value, optionally followed by a cleanup func
// (func() or func() error) and/or an error. Their parameters are resolved
// from the same scope: context.Context receives the invocation context and
// every other parameter is resolved implicitly by type.
//
// Two declarations of the same factory share one value per invocation.
func Depends(factory any) *Dependency {
	p := asProducer(factory)
	if p.resultType() == nil {
		panic(fmt.Sprintf("factory must produce a value: %s", p.label()))
	}
	return &Dependency{producer: p, explicit: true}
}

// Named declares an explicit dependency whose cache identity is the given name
// rather than the factory. Closures built from the same function literal
// share their identity; Named tells them apart.
func Named(name string, factory any) *Dependency {
	d := Depends(factory)
	d.producer = &namedProducer{producer: d.producer, name: name}
	return d
}

// Infer declares an implicit dependency resolved from the parameter type.
func Infer() *Dependency {
	return &Dependency{}
}

// OneOf declares an implicit dependency with several alternatives. Each
// alternative is either a factory or a type token from TypeOf. On resolution
// the alternatives are tried in order and the first one that exists is
// used; see ExistenceChecker.
func OneOf(alternatives ...any) *Dependency {
	if len(alternatives) == 0 {
		panic("OneOf needs at least one alternative")
	}
	d := &Dependency{}
	for _, a := range alternatives {
		if t, ok := a.(reflect.Type); ok {
			d.alternatives = append(d.alternatives, alternative{typ: t})
			continue
		}
		p := asProducer(a)
		if p.resultType() == nil {
			panic(fmt.Sprintf("alternative must produce a value: %s", p.label()))
		}
		d.alternatives = append(d.alternatives, alternative{producer: p, typ: p.resultType()})
	}
	return d
}

// TypeOf returns the type token for T, for use with OneOf and ResolveType.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Explicit reports whether the dependency names its own factory.
func (d *Dependency) Explicit() bool {
	return d.explicit
}

func (d *Dependency) String() string {
	switch {
	case d.explicit:
		return "Depends(" + d.producer.label() + ")"
	case len(d.alternatives) > 0:
		s := "OneOf("
		for i, a := range d.alternatives {
			if i > 0 {
				s += ", "
			}
			if a.producer != nil {
				s += a.producer.label()
			} else {
				s += a.typ.String()
			}
		}
		return s + ")"
	default:
		return "Infer()"
	}
}

// producer is anything the engine can call to make a value.
type producer interface {
	key() depKey
	// resultType is the type of the produced value, nil if nothing is produced.
	resultType() reflect.Type
	produce(ctx context.Context, s *Scope) (value any, cleanup func() error, err error)
	label() string
}

type keyKind uint8

const (
	keyFunc keyKind = iota + 1
	keyPointer
	keyType
	keyName
	keyUnion
	keyExternal
)

// depKey is the identity of a dependency inside a Scope.
type depKey struct {
	kind keyKind
	code uintptr
	typ  reflect.Type
	ref  any
	name string
}

func typeKey(t reflect.Type) depKey {
	return depKey{kind: keyType, typ: t}
}

// asProducer turns a declared factory into a producer, panicking on anything
// that cannot be called.
func asProducer(factory any) producer {
	switch f := factory.(type) {
	case nil:
		panic("factory must not be nil")
	case producer:
		return f
	}
	fv := reflect.ValueOf(factory)
	if fv.Kind() != reflect.Func {
		panic(fmt.Sprintf("factory must be a function, got %T", factory))
	}
	if fv.IsNil() {
		panic("factory must not be a nil function")
	}
	return &funcProducer{fn: fv, info: getFuncInfo(fv.Type())}
}

type namedProducer struct {
	producer
	name string
}

func (n *namedProducer) key() depKey {
	return depKey{kind: keyName, name: n.name}
}

func (n *namedProducer) label() string {
	return n.name
}
