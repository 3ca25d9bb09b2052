package reqdep

import (
	"context"
	"fmt"
	"reflect"
)

// Guard is a check that runs before a handler. Its parameters are resolved
// from the invocation scope like any factory's, so a guard shares the
// dependencies the handler itself will receive.
//
// Example:
//
//	func ownsOrder(user *User, order *Order) error {
//	    if order.Owner != user.ID {
//	        return ErrForbidden
//	    }
//	    return nil
//	}
//
//	guard := NewGuard(ownsOrder)
type Guard struct {
	binding *Binding
}

// NewGuard wraps fn, which must return exactly one value of type error, as a
// guard. Declarations work as in Bind.
func NewGuard(fn any, decls ...*Dependency) *Guard {
	vType := reflect.TypeOf(fn)
	if vType == nil || vType.Kind() != reflect.Func {
		panic(fmt.Sprintf("NewGuard argument must be a function, got %v", vType))
	}
	if vType.NumOut() != 1 {
		panic(fmt.Sprintf("guard must return exactly one value (error), got %d", vType.NumOut()))
	}
	if vType.Out(0) != errorType {
		panic(fmt.Sprintf("guard must return error, got %v", vType.Out(0)))
	}
	if vType.NumIn() == 0 {
		panic("guard must have at least one parameter")
	}
	return &Guard{binding: Bind(fn, decls...)}
}

// Check runs the guard in the scope carried by ctx.
func (g *Guard) Check(ctx context.Context) error {
	_, err := g.binding.Invoke(ctx)
	return err
}

// CheckAll runs guards in order and stops at the first failure.
func CheckAll(ctx context.Context, guards ...*Guard) error {
	for _, g := range guards {
		if err := g.Check(ctx); err != nil {
			return err
		}
	}
	return nil
}
