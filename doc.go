// Package reqdep resolves the dependencies of HTTP handlers, once per request.
//
// A handler declares what each of its parameters needs with a Dependency:
// Depends for an explicit factory, Infer to resolve by the parameter's type,
// or OneOf to pick the first of several alternatives that exists. Bind ties the
// declarations to the handler when it is registered.
//
// Every invocation gets its own Scope. The Scope memoizes resolved values, so
// two parameters that depend on the same factory receive the same value within
// one invocation, and a fresh value on the next. Factories may return a
// cleanup func, and Scoped builds enter/exit resources; both are released when
// the Scope is closed, last entered first.
//
// Process-wide values and generators for implicit dependencies live in
// Providers, which is built once at startup.
//
// The route package adapts bound handlers to net/http routers, and the schema
// package validates request payloads into typed values.
package reqdep
