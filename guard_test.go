package reqdep

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_BasicValidation(t *testing.T) {
	type User struct {
		Name string
		Age  int
	}

	adult := func(ctx context.Context, u *User) error {
		if u.Age < 18 {
			return errors.New("user must be 18 or older")
		}
		return nil
	}

	t.Run("successful validation", func(t *testing.T) {
		ctx, s := NewScope(context.Background(), NewProviders(&User{Name: "John", Age: 25}))
		defer s.Close()

		assert.NoError(t, NewGuard(adult).Check(ctx))
	})

	t.Run("failed validation", func(t *testing.T) {
		ctx, s := NewScope(context.Background(), NewProviders(&User{Name: "Jane", Age: 16}))
		defer s.Close()

		err := NewGuard(adult).Check(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "user must be 18 or older")
	})
}

func TestGuard_SharesHandlerDependencies(t *testing.T) {
	calls := 0
	loadUser := func() *testUser {
		calls++
		return &testUser{Name: "ann"}
	}
	providers := NewProviders(loadUser)

	guard := NewGuard(func(u *testUser) error {
		if u.Name == "" {
			return errors.New("anonymous")
		}
		return nil
	})
	handler := Bind(func(u *testUser) string { return "hello " + u.Name })

	ctx, s := NewScope(context.Background(), providers)
	defer s.Close()

	require.NoError(t, guard.Check(ctx))
	v, err := handler.Invoke(ctx)
	require.NoError(t, err)

	assert.Equal(t, "hello ann", v)
	assert.Equal(t, 1, calls)
}

func TestCheckAll_StopsAtFirstFailure(t *testing.T) {
	var ran []string
	guard := func(name string, fail bool) *Guard {
		return NewGuard(func(ctx context.Context, w *testWidget) error {
			ran = append(ran, name)
			if fail {
				return errors.New(name + " failed")
			}
			return nil
		})
	}

	ctx, s := NewScope(context.Background(), NewProviders(&testWidget{}))
	defer s.Close()

	err := CheckAll(ctx, guard("first", false), guard("second", true), guard("third", false))
	assert.EqualError(t, err, "second failed")
	assert.Equal(t, []string{"first", "second"}, ran)
}

func TestNewGuard_Panics(t *testing.T) {
	assert.Panics(t, func() { NewGuard("nope") })
	assert.Panics(t, func() { NewGuard(func(*testWidget) {}) })
	assert.Panics(t, func() { NewGuard(func(*testWidget) bool { return true }) })
	assert.Panics(t, func() { NewGuard(func() error { return nil }) })
}
