package reqdep

import "reflect"

type unlocker func()

// enterProcessing marks key as being resolved. Seeing the same key again
// before the returned unlocker runs means the dependency needs itself.
func (s *Scope) enterProcessing(key depKey, label string, t reflect.Type) (unlocker, error) {
	if s.inProcess[key] {
		return func() {}, &DependencyError{
			Message:        "cyclic dependency resolving " + label,
			ReferencedType: t,
			Status:         s.Status(),
			SourceError:    ErrCycle,
		}
	}
	s.inProcess[key] = true
	return func() {
		delete(s.inProcess, key)
	}, nil
}
