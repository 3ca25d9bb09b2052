package reqdep

import (
	"context"
	"fmt"
)

type TimingMode int

const (
	// TimingDisable will disable timing for all resolutions.
	TimingDisable TimingMode = iota

	// TimingGenerators will start a timing context for each factory that is called. This is
	// useful to see where the time of an invocation is being spent. It can also be helpful to
	// see the exact stack of the dependency resolution.
	TimingGenerators
)

var EnableTiming = TimingDisable

// Get resolves dep as a parameter of type T. A nil dep resolves T implicitly.
func Get[T any](ctx context.Context, dep *Dependency) (T, error) {
	var target T
	v, err := Resolve(ctx, dep, TypeOf[T]())
	if err != nil {
		return target, err
	}
	if v == nil {
		return target, nil
	}
	target, ok := v.(T)
	if !ok {
		return target, &DependencyError{
			Message:        fmt.Sprintf("resolved %T", v),
			ReferencedType: TypeOf[T](),
			SourceError:    ErrNotAssignable,
		}
	}
	return target, nil
}

// MustGet behaves like Get but panics on error. The typical behavior for a
// dependency that cannot be resolved is a failed request, so this presents a
// simplified interface inside handlers and tests.
func MustGet[T any](ctx context.Context, dep *Dependency) T {
	v, err := Get[T](ctx, dep)
	if err != nil {
		panic(err)
	}
	return v
}

// Status is a diagnostic tool that returns a string describing the state of
// the scope carried by ctx.
func Status(ctx context.Context) string {
	s, ok := ScopeFrom(ctx)
	if !ok {
		return "no dependency scope"
	}
	return s.Status()
}
