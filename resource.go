package reqdep

import (
	"context"
	"fmt"
	"reflect"
)

// Resource is a scoped acquisition: an enter factory that produces a value and
// an exit function that releases it. Exit runs exactly once, when the scope of
// the invocation that entered the resource is closed, whether the handler
// succeeded or not.
type Resource struct {
	enter producer
	exit  func(any) error
	typ   reflect.Type
}

// Scoped builds a Resource. Enter follows the same rules as any factory passed
// to Depends and must produce a T.
//
//	conn := Scoped(func(ctx context.Context, db *sql.DB) (*sql.Conn, error) {
//	    return db.Conn(ctx)
//	}, func(c *sql.Conn) error {
//	    return c.Close()
//	})
func Scoped[T any](enter any, exit func(T) error) *Resource {
	if exit == nil {
		panic("Scoped needs an exit function")
	}
	p := asProducer(enter)
	t := TypeOf[T]()
	rt := p.resultType()
	if rt == nil || !rt.AssignableTo(t) {
		panic(fmt.Sprintf("enter of %s must produce %v, produces %v", p.label(), t, rt))
	}
	return &Resource{
		enter: p,
		typ:   t,
		exit: func(v any) error {
			var tv T
			if v != nil {
				tv = v.(T)
			}
			return exit(tv)
		},
	}
}

func (r *Resource) String() string {
	return r.label()
}

func (r *Resource) key() depKey {
	return depKey{kind: keyPointer, ref: r}
}

func (r *Resource) resultType() reflect.Type {
	return r.typ
}

func (r *Resource) label() string {
	return "scoped " + r.enter.label()
}

func (r *Resource) produce(ctx context.Context, s *Scope) (any, func() error, error) {
	v, enterCleanup, err := r.enter.produce(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	return v, func() error {
		err := r.exit(v)
		if enterCleanup != nil {
			if cerr := enterCleanup(); err == nil {
				err = cerr
			}
		}
		return err
	}, nil
}
