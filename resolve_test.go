package reqdep

import (
	"context"
	"errors"
	"testing"

	"github.com/gburgyan/go-timing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testUser struct {
	Name string
}

type testAudit struct {
	User *testUser
	Log  []string
}

func newTestUser() *testUser {
	return &testUser{Name: "ann"}
}

func TestResolve_ExplicitAndImplicitAgree(t *testing.T) {
	providers := NewProviders(newTestUser)
	ctx, s := NewScope(context.Background(), providers)
	defer s.Close()

	explicit, err := Get[*testUser](ctx, Depends(newTestUser))
	require.NoError(t, err)
	implicit, err := Get[*testUser](ctx, Infer())
	require.NoError(t, err)

	// The generator is cached under its own identity, so both routes to it
	// share one value.
	assert.Same(t, explicit, implicit)
}

func TestResolve_ExplicitIgnoresParameterType(t *testing.T) {
	ctx, s := NewScope(context.Background(), nil)
	defer s.Close()

	v, err := Resolve(ctx, Depends(func() string { return "made" }), TypeOf[any]())
	require.NoError(t, err)
	assert.Equal(t, "made", v)
}

func TestResolve_FactoryParametersByType(t *testing.T) {
	providers := NewProviders(newTestUser, func(u *testUser) *testAudit {
		return &testAudit{User: u}
	})
	ctx, s := NewScope(context.Background(), providers)
	defer s.Close()

	audit, err := Get[*testAudit](ctx, nil)
	require.NoError(t, err)
	user, err := Get[*testUser](ctx, nil)
	require.NoError(t, err)

	assert.Same(t, user, audit.User)
}

func TestResolve_ContextParameter(t *testing.T) {
	type key struct{}
	base := context.WithValue(context.Background(), key{}, "value")
	ctx, s := NewScope(base, nil)
	defer s.Close()

	v, err := Get[string](ctx, Depends(func(ctx context.Context) string {
		return ctx.Value(key{}).(string)
	}))
	require.NoError(t, err)
	assert.Equal(t, "value", v)
}

func TestResolve_BindingRecursion(t *testing.T) {
	calls := 0
	base := func() int {
		calls++
		return 21
	}
	doubled := Bind(func(a, b int) int {
		return a + b
	}, Depends(base), Depends(base))

	ctx, s := NewScope(context.Background(), nil)
	defer s.Close()

	v, err := Get[int](ctx, Depends(doubled))
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
	assert.Equal(t, TypeOf[int](), doubled.ResultType())
}

func TestResolve_FactoryErrorUnchanged(t *testing.T) {
	sentinel := errors.New("backend down")
	ctx, s := NewScope(context.Background(), nil)
	defer s.Close()

	_, err := Get[*testUser](ctx, Depends(func() (*testUser, error) {
		return nil, sentinel
	}))
	assert.Same(t, sentinel, err)
	assert.False(t, IsConfigError(err))
}

func TestResolve_FailedFactoryCleanupLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	ctx, s := NewScope(context.Background(), NewProviders(WithLogger(zap.New(core))))
	defer s.Close()

	failing := func() (*testWidget, func() error, error) {
		return nil, func() error { return errors.New("release failed") }, errors.New("factory failed")
	}
	_, err := Get[*testWidget](ctx, Depends(failing))
	assert.EqualError(t, err, "factory failed")

	_, err = Bind(func() (int, func(), error) {
		return 0, func() { panic("release exploded") }, errors.New("handler failed")
	}).Invoke(ctx)
	assert.EqualError(t, err, "handler failed")

	entries := logs.FilterMessage("teardown failed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "release failed", entries[0].ContextMap()["error"])
	assert.Equal(t, "panic in teardown: release exploded", entries[1].ContextMap()["error"])

	require.NoError(t, s.Close())
	assert.Equal(t, 2, logs.FilterMessage("teardown failed").Len())
}

func TestResolve_ConfigErrors(t *testing.T) {
	ctx, s := NewScope(context.Background(), nil)
	defer s.Close()

	_, err := Resolve(ctx, Infer(), TypeOf[any]())
	assert.ErrorIs(t, err, ErrNoAnnotation)

	_, err = Get[*testUser](ctx, Infer())
	assert.ErrorIs(t, err, ErrNoProvider)
	assert.True(t, IsConfigError(err))

	var de *DependencyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, TypeOf[*testUser](), de.ReferencedType)
}

type cycleA struct{}
type cycleB struct{}

func TestResolve_Cycle(t *testing.T) {
	providers := NewProviders(
		func(*cycleB) *cycleA { return &cycleA{} },
		func(*cycleA) *cycleB { return &cycleB{} },
	)
	ctx, s := NewScope(context.Background(), providers)
	defer s.Close()

	_, err := Get[*cycleA](ctx, nil)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestResolve_Named(t *testing.T) {
	factory := func(v int) func() int {
		return func() int { return v }
	}

	ctx, s := NewScope(context.Background(), nil)
	defer s.Close()

	one, err := Get[int](ctx, Named("one", factory(1)))
	require.NoError(t, err)
	two, err := Get[int](ctx, Named("two", factory(2)))
	require.NoError(t, err)

	assert.Equal(t, 1, one)
	assert.Equal(t, 2, two)
	assert.Equal(t, "Depends(one)", Named("one", factory(1)).String())
}

func TestResolve_CleanupRegistered(t *testing.T) {
	var events []string
	open := func() (*testWidget, func(), error) {
		events = append(events, "open")
		return &testWidget{Val: 1}, func() { events = append(events, "close") }, nil
	}

	ctx, s := NewScope(context.Background(), nil)
	_, err := Get[*testWidget](ctx, Depends(open))
	require.NoError(t, err)
	_, err = Get[*testWidget](ctx, Depends(open))
	require.NoError(t, err)

	assert.Equal(t, []string{"open"}, events)
	require.NoError(t, s.Close())
	assert.Equal(t, []string{"open", "close"}, events)
}

func TestResolve_ScopedResource(t *testing.T) {
	var events []string
	conn := Scoped[*testWidget](
		func() *testWidget {
			events = append(events, "enter")
			return &testWidget{Val: 5}
		},
		func(w *testWidget) error {
			events = append(events, "exit")
			return nil
		},
	)

	handler := Bind(func(w *testWidget) error {
		events = append(events, "handler")
		return errors.New("handler failed")
	}, Depends(conn))

	ctx, s := NewScope(context.Background(), nil)
	_, err := handler.Invoke(ctx)
	assert.EqualError(t, err, "handler failed")
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, []string{"enter", "handler", "exit"}, events)
}

func TestResolve_Timing(t *testing.T) {
	EnableTiming = TimingGenerators
	defer func() { EnableTiming = TimingDisable }()

	root := timing.Root(context.Background())
	ctx, s := NewScope(root, NewProviders(newTestUser))
	defer s.Close()

	user, err := Get[*testUser](ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "ann", user.Name)
}

func TestMustGet(t *testing.T) {
	ctx, s := NewScope(context.Background(), NewProviders(newTestUser))
	defer s.Close()

	assert.Equal(t, "ann", MustGet[*testUser](ctx, nil).Name)
	assert.Panics(t, func() {
		MustGet[*testAudit](ctx, nil)
	})
}

func TestDeclarations_Panics(t *testing.T) {
	assert.Panics(t, func() { Depends(nil) })
	assert.Panics(t, func() { Depends(42) })
	assert.Panics(t, func() { Depends(func() error { return nil }) })
	assert.Panics(t, func() { Depends(func() (error, int) { return nil, 0 }) })
	assert.Panics(t, func() { Depends(func(...int) int { return 0 }) })
	assert.Panics(t, func() { OneOf() })
	assert.Panics(t, func() { Bind(func(int) {}, Infer(), Infer()) })
	assert.Panics(t, func() { Bind("not a function") })
	assert.Panics(t, func() {
		Scoped[string](func() int { return 0 }, func(string) error { return nil })
	})
}

func TestBind_ContextParameterSkipped(t *testing.T) {
	b := Bind(func(ctx context.Context, u *testUser, n int) (string, error) {
		return u.Name, nil
	}, Infer(), Depends(func() int { return 1 }))

	ctx, s := NewScope(context.Background(), NewProviders(newTestUser))
	defer s.Close()

	v, err := b.Invoke(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ann", v)
	assert.Equal(t, "Infer()", Infer().String())
	assert.True(t, Depends(newTestUser).Explicit())
	assert.False(t, Infer().Explicit())
}
