package reqdep

import (
	"errors"
	"fmt"
	"reflect"
)

// Configuration errors. These are programming mistakes in how dependencies are
// declared; they surface on the first resolution attempt and are never retried.
var (
	ErrNoScope          = errors.New("no dependency scope in context")
	ErrScopeClosed      = errors.New("dependency scope already closed")
	ErrNoAnnotation     = errors.New("implicit dependency needs a concrete parameter type")
	ErrNoProvider       = errors.New("no provider for type")
	ErrNoCandidate      = errors.New("no alternative could be satisfied")
	ErrNoExistenceCheck = errors.New("alternative has no existence check")
	ErrCycle            = errors.New("cyclic dependency")
	ErrNotAssignable    = errors.New("resolved value does not match parameter")
)

type DependencyError struct {
	Message        string
	ReferencedType reflect.Type
	Status         string
	SourceError    error
}

func (e *DependencyError) Error() string {
	if e.SourceError == nil {
		return fmt.Sprintf("%s: %v", e.Message, e.ReferencedType)
	} else {
		return fmt.Sprintf("%s: %v (%v)", e.Message, e.ReferencedType, e.Unwrap().Error())
	}
}

func (e *DependencyError) Unwrap() error {
	return e.SourceError
}

// IsConfigError reports whether err is a configuration error raised by the
// resolution engine, as opposed to an error returned by a factory.
func IsConfigError(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}
