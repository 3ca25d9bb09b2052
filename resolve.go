package reqdep

import (
	"context"
	"reflect"

	"github.com/gburgyan/go-timing"
	"go.uber.org/zap"
)

// Resolve turns a dependency declaration into a value using the scope carried
// by ctx. paramType is the static type of the parameter the declaration is
// attached to; explicit declarations ignore it.
//
// Errors returned by factories, validation failures included, come back
// unchanged. Problems with the declarations themselves are reported as
// *DependencyError.
func Resolve(ctx context.Context, dep *Dependency, paramType reflect.Type) (any, error) {
	s, err := scopeOrError(ctx)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, dep, paramType)
}

// ResolveType resolves an implicit dependency on t.
func ResolveType(ctx context.Context, t reflect.Type) (any, error) {
	return Resolve(ctx, nil, t)
}

func (s *Scope) resolve(ctx context.Context, dep *Dependency, paramType reflect.Type) (any, error) {
	switch {
	case dep == nil:
		return s.resolveType(ctx, paramType)
	case dep.explicit:
		return s.resolveProducer(ctx, dep.producer)
	case len(dep.alternatives) > 0:
		return s.resolveUnion(ctx, dep, paramType)
	default:
		return s.resolveType(ctx, paramType)
	}
}

// resolveProducer returns the cached value of p or produces it, registering
// any cleanup on the scope.
func (s *Scope) resolveProducer(ctx context.Context, p producer) (any, error) {
	return s.getOrCompute(p.key(), p.label(), p.resultType(), func() (any, error) {
		if EnableTiming == TimingGenerators {
			timingCtx, complete := timing.Start(ctx, p.label())
			defer complete()
			ctx = timingCtx
		}

		s.logger.Debug("resolving dependency", zap.String("dependency", p.label()))
		v, cleanup, err := p.produce(ctx, s)
		if err != nil {
			return nil, err
		}
		if cleanup != nil {
			s.RecordTeardown(p.label(), cleanup)
		}
		return v, nil
	})
}

// resolveType resolves an implicit dependency on a single type. This is the
// same as an explicit dependency on whatever provides the type: no existence checks
// takes place.
func (s *Scope) resolveType(ctx context.Context, t reflect.Type) (any, error) {
	if t == nil || (t.Kind() == reflect.Interface && t.NumMethod() == 0) {
		return nil, &DependencyError{
			Message:        "cannot infer a dependency",
			ReferencedType: t,
			SourceError:    ErrNoAnnotation,
		}
	}

	key := typeKey(t)
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	if v, ok := s.providers.value(t); ok {
		return v, nil
	}
	if g := s.providers.generator(t); g != nil {
		return s.resolveProducer(ctx, g)
	}
	if h := s.providers.hook(t); h != nil {
		return s.getOrCompute(key, t.String(), t, func() (any, error) {
			return h.Produce(ctx, t)
		})
	}
	return nil, &DependencyError{
		Message:        "no provider",
		ReferencedType: t,
		Status:         s.Status(),
		SourceError:    ErrNoProvider,
	}
}
