package reqdep

import (
	"context"
	"reflect"
)

// ExistenceChecker is the existence check an alternative of OneOf must offer,
// either by implementing it on its type or through an ExistenceHook. Exists is
// called on a zero value of the type and must be cheap and free of side
// effects: it only answers whether a value of this type can be produced for
// the current invocation.
type ExistenceChecker interface {
	Exists(ctx context.Context) bool
}

// resolveUnion picks the first alternative whose existence check succeeds.
// The choice is made once per invocation and declaration.
func (s *Scope) resolveUnion(ctx context.Context, dep *Dependency, paramType reflect.Type) (any, error) {
	key := depKey{kind: keyUnion, ref: dep}
	return s.getOrCompute(key, dep.String(), paramType, func() (any, error) {
		for _, alt := range dep.alternatives {
			ok, err := s.exists(ctx, alt.typ)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if alt.producer != nil {
				return s.resolveProducer(ctx, alt.producer)
			}
			return s.resolveType(ctx, alt.typ)
		}
		return nil, &DependencyError{
			Message:        "none of " + dep.String() + " exists",
			ReferencedType: paramType,
			SourceError:    ErrNoCandidate,
		}
	})
}

func (s *Scope) exists(ctx context.Context, t reflect.Type) (bool, error) {
	if p, ok := zeroInstance(t).(ExistenceChecker); ok {
		return p.Exists(ctx), nil
	}
	if ph, ok := s.providers.hook(t).(ExistenceHook); ok {
		return ph.Exists(ctx, t), nil
	}
	return false, &DependencyError{
		Message:        "cannot check alternative",
		ReferencedType: t,
		SourceError:    ErrNoExistenceCheck,
	}
}
