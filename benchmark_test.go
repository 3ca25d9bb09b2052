package reqdep

import (
	"context"
	"testing"
)

func BenchmarkGetStruct(b *testing.B) {
	ctx, s := NewScope(context.Background(), NewProviders(&testWidget{42}))
	defer s.Close()

	for i := 0; i < b.N; i++ {
		_, _ = Get[*testWidget](ctx, nil)
	}
}

func BenchmarkGetInterface(b *testing.B) {
	ctx, s := NewScope(context.Background(), NewProviders(func(ctx context.Context) *tempImpl {
		return &tempImpl{}
	}))
	defer s.Close()

	for i := 0; i < b.N; i++ {
		_, _ = Get[tempInterface](ctx, nil)
	}
}

// One scope per iteration, the way every request gets its own.
func BenchmarkScopePerRequest(b *testing.B) {
	providers := NewProviders(newTestUser)
	handler := Bind(func(u *testUser, n int) string {
		return u.Name
	}, Infer(), Depends(func() int { return 1 }))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx, s := NewScope(context.Background(), providers)
		_, _ = handler.Invoke(ctx)
		_ = s.Close()
	}
}
