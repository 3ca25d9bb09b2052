package reqdep

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type scopeContextKey int

const scopeKey scopeContextKey = 0

// Scope is the dependency cache of one invocation. It holds every value
// resolved during the invocation, keyed by dependency identity, and the
// teardowns of the scoped resources entered along the way.
//
// A Scope is created at the start of an invocation and closed when it ends.
// It belongs to that invocation alone and is not safe for concurrent use.
type Scope struct {
	id        string
	providers *Providers
	logger    *zap.Logger

	values    map[depKey]any
	labels    map[depKey]string
	inProcess map[depKey]bool
	teardowns []teardown
	closed    bool
}

type teardown struct {
	name string
	fn   func() error
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithScopeLogger sets the logger of the scope. By default the scope logs
// through the providers' logger, tagged with the scope id.
func WithScopeLogger(logger *zap.Logger) ScopeOption {
	return func(s *Scope) {
		s.logger = logger
	}
}

// WithScopeID overrides the generated scope id, e.g. with an incoming request id.
func WithScopeID(id string) ScopeOption {
	return func(s *Scope) {
		s.id = id
	}
}

// Seed places a value of type T in the scope before anything is resolved.
// Implicit dependencies on exactly T receive it.
func Seed[T any](value T) ScopeOption {
	t := TypeOf[T]()
	return func(s *Scope) {
		key := typeKey(t)
		s.values[key] = value
		s.labels[key] = "seeded"
	}
}

// NewScope starts the dependency cache for one invocation and returns a
// context carrying it. The caller must Close the scope when the invocation
// completes.
func NewScope(ctx context.Context, providers *Providers, opts ...ScopeOption) (context.Context, *Scope) {
	if providers == nil {
		providers = NewProviders()
	}
	s := &Scope{
		id:        uuid.NewString(),
		providers: providers,
		values:    map[depKey]any{},
		labels:    map[depKey]string{},
		inProcess: map[depKey]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = providers.logger.With(zap.String("scope", s.id))
	}
	return context.WithValue(ctx, scopeKey, s), s
}

// ScopeFrom returns the Scope carried by ctx.
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey).(*Scope)
	return s, ok
}

func scopeOrError(ctx context.Context) (*Scope, error) {
	s, ok := ScopeFrom(ctx)
	if !ok {
		return nil, &DependencyError{
			Message:     "resolution outside of an invocation",
			SourceError: ErrNoScope,
		}
	}
	return s, nil
}

// ID returns the identifier of the invocation this scope belongs to.
func (s *Scope) ID() string {
	return s.id
}

// Logger returns the scope's logger.
func (s *Scope) Logger() *zap.Logger {
	return s.logger
}

// Providers returns the application-level providers the scope resolves from.
func (s *Scope) Providers() *Providers {
	return s.providers
}

// GetOrCompute returns the value cached under identity, calling compute to
// produce and cache it on the first request. Identity must be comparable.
// Errors are not cached.
func (s *Scope) GetOrCompute(identity any, compute func() (any, error)) (any, error) {
	key := depKey{kind: keyExternal, ref: identity}
	return s.getOrCompute(key, fmt.Sprintf("%v", identity), nil, compute)
}

func (s *Scope) getOrCompute(key depKey, label string, t reflect.Type, compute func() (any, error)) (any, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	if s.closed {
		return nil, &DependencyError{
			Message:        "cannot resolve " + label,
			ReferencedType: t,
			SourceError:    ErrScopeClosed,
		}
	}
	unlock, err := s.enterProcessing(key, label, t)
	defer unlock()
	if err != nil {
		return nil, err
	}

	v, err := compute()
	if err != nil {
		return nil, err
	}
	s.values[key] = v
	s.labels[key] = label
	return v, nil
}

// RecordTeardown registers fn to run when the scope is closed. Teardowns run
// in reverse order of registration.
func (s *Scope) RecordTeardown(name string, fn func() error) {
	if s.closed {
		// Too late to defer it; release right away so nothing leaks.
		s.release(name, fn)
		return
	}
	s.teardowns = append(s.teardowns, teardown{name: name, fn: fn})
}

// release runs fn right away, logging a failure like any other teardown.
func (s *Scope) release(name string, fn func() error) {
	if err := runTeardown(fn); err != nil {
		s.logger.Error("teardown failed", zap.String("dependency", name), zap.Error(err))
	}
}

// Close runs every registered teardown once, last registered first. A failing
// teardown does not stop the others; each failure is logged and all of them
// are returned combined. Closing twice is a no-op.
func (s *Scope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs error
	for i := len(s.teardowns) - 1; i >= 0; i-- {
		td := s.teardowns[i]
		if err := runTeardown(td.fn); err != nil {
			s.logger.Error("teardown failed", zap.String("dependency", td.name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", td.name, err))
		}
	}
	s.teardowns = nil
	s.values = map[depKey]any{}
	return errs
}

func runTeardown(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in teardown: %v", r)
		}
	}()
	return fn()
}
