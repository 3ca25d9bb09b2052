package reqdep

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Providers is the application-level half of the engine: process-wide values
// (a worker pool, a database handle) and generators that implicit
// dependencies are resolved from. It is built once at startup and shared by
// every invocation. Values are handed out as they are; generators run at most
// once per invocation and their results live in that invocation's Scope only.
//
// Providers is immutable after construction and safe for concurrent use.
type Providers struct {
	logger *zap.Logger

	values     []provided
	generators []generated
	hooks      []TypeHook
}

type provided struct {
	typ   reflect.Type
	value any
}

type generated struct {
	typ      reflect.Type
	producer producer
}

// TypeHook resolves implicit dependencies on types it recognizes, for types
// that are not produced by a registered value or generator. Hook results are
// cached in the scope by type.
type TypeHook interface {
	Handles(t reflect.Type) bool
	Produce(ctx context.Context, t reflect.Type) (any, error)
}

// ExistenceHook is a TypeHook that can also tell whether a value of a handled
// type can be produced in the current invocation, which lets hook-produced
// types take part in OneOf.
type ExistenceHook interface {
	TypeHook
	Exists(ctx context.Context, t reflect.Type) bool
}

// ProviderOption is a functional option for configuring Providers.
type ProviderOption func(*Providers)

// WithLogger sets the logger used by Providers and by the scopes created from them.
func WithLogger(logger *zap.Logger) ProviderOption {
	return func(p *Providers) {
		p.logger = logger
	}
}

// WithHook adds a type hook. Hooks are consulted in the order they were added.
func WithHook(hook TypeHook) ProviderOption {
	return func(p *Providers) {
		p.hooks = append(p.hooks, hook)
	}
}

// NewProviders builds the providers from a mix of options, values and
// generators. Functions, *Binding and *Resource arguments are generators and
// provide their result type; Optional values are skipped when nil; anything
// else is a value provided under its own type.
//
// Two providers for the same type are a configuration mistake and panic.
func NewProviders(args ...any) *Providers {
	p := &Providers{}
	p.add(args...)
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// With returns new Providers holding everything p holds plus args.
func (p *Providers) With(args ...any) *Providers {
	np := &Providers{
		logger:     p.logger,
		values:     append([]provided(nil), p.values...),
		generators: append([]generated(nil), p.generators...),
		hooks:      append([]TypeHook(nil), p.hooks...),
	}
	np.add(args...)
	return np
}

// Logger returns the providers' logger.
func (p *Providers) Logger() *zap.Logger {
	return p.logger
}

func (p *Providers) add(args ...any) {
	for _, arg := range args {
		switch a := arg.(type) {
		case nil:
			panic("nil dependency provided; use Optional for values that may be nil")
		case ProviderOption:
			a(p)
		case *optionalWrapper:
			p.processOptional(a)
		case producer:
			p.addGenerator(a)
		default:
			if reflect.TypeOf(arg).Kind() == reflect.Func {
				p.addGenerator(asProducer(arg))
			} else {
				p.addValue(reflect.TypeOf(arg), arg)
			}
		}
	}
}

func (p *Providers) addValue(t reflect.Type, v any) {
	p.checkUnique(t)
	p.values = append(p.values, provided{typ: t, value: v})
}

func (p *Providers) addGenerator(g producer) {
	t := g.resultType()
	if t == nil {
		panic(fmt.Sprintf("generator must produce a value: %s", g.label()))
	}
	p.checkUnique(t)
	p.generators = append(p.generators, generated{typ: t, producer: g})
}

func (p *Providers) checkUnique(t reflect.Type) {
	for _, v := range p.values {
		if v.typ == t {
			panic(fmt.Sprintf("multiple providers for %v", t))
		}
	}
	for _, g := range p.generators {
		if g.typ == t {
			panic(fmt.Sprintf("multiple providers for %v", t))
		}
	}
}

// value finds a provided value assignable to t; exact matches win.
func (p *Providers) value(t reflect.Type) (any, bool) {
	for _, v := range p.values {
		if v.typ == t {
			return v.value, true
		}
	}
	for _, v := range p.values {
		if canAssign(v.typ, t) {
			return v.value, true
		}
	}
	return nil, false
}

// generator finds a generator whose result is assignable to t; exact matches win.
func (p *Providers) generator(t reflect.Type) producer {
	for _, g := range p.generators {
		if g.typ == t {
			return g.producer
		}
	}
	for _, g := range p.generators {
		if canAssign(g.typ, t) {
			return g.producer
		}
	}
	return nil
}

func (p *Providers) hook(t reflect.Type) TypeHook {
	for _, h := range p.hooks {
		if h.Handles(t) {
			return h
		}
	}
	return nil
}
