package route

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"go.uber.org/zap"

	reqdep "github.com/gburgyan/go-reqdep"
	"github.com/gburgyan/go-reqdep/schema"
)

// RequestIDHeader is read to name the scope of an invocation, when present.
const RequestIDHeader = "X-Request-ID"

// Route is one registered handler with its input and response schemas.
type Route struct {
	router    *Router
	providers *reqdep.Providers

	path    string
	methods []string
	name    string

	handler  *reqdep.Binding
	decls    []*reqdep.Dependency
	guards   []*reqdep.Guard
	input    reflect.Type
	response *responseSchema
}

type responseSchema struct {
	typ      reflect.Type
	validate func(any) (any, error)
}

// RouteOption configures a Route.
type RouteOption func(*Route)

// Methods restricts the route to the given HTTP methods.
func Methods(methods ...string) RouteOption {
	return func(rt *Route) {
		rt.methods = append(rt.methods, methods...)
	}
}

// Name sets the endpoint name of the route.
func Name(name string) RouteOption {
	return func(rt *Route) {
		rt.name = name
	}
}

// Declare supplies the parameter declarations of a plain function handler.
func Declare(decls ...*reqdep.Dependency) RouteOption {
	return func(rt *Route) {
		rt.decls = append(rt.decls, decls...)
	}
}

// WithGuard adds a guard that runs after the input is validated and before
// the handler.
func WithGuard(guards ...*reqdep.Guard) RouteOption {
	return func(rt *Route) {
		rt.guards = append(rt.guards, guards...)
	}
}

// Input declares the input schema of the route. The body is validated into a
// *T before the handler runs, whether or not the handler asks for it, and
// implicit dependencies on *T receive the validated value.
func Input[T any]() RouteOption {
	return func(rt *Route) {
		rt.input = reqdep.TypeOf[*T]()
		rt.providers = rt.providers.With(schema.FromBody[T])
	}
}

// Response declares the response schema of the route. The handler's result
// is validated into a T, which is what gets written. Validation runs once the
// request's scoped resources have been released.
func Response[T any]() RouteOption {
	return func(rt *Route) {
		rt.response = &responseSchema{
			typ: reqdep.TypeOf[T](),
			validate: func(result any) (any, error) {
				return schema.Validate[T](result)
			},
		}
	}
}

// Reply lets a handler choose the status code of a successful response.
type Reply struct {
	Status int
	Body   any
}

func newRoute(r *Router, path string, handler any, opts ...RouteOption) *Route {
	rt := &Route{
		router:    r,
		providers: r.providers,
		path:      path,
	}
	for _, opt := range opts {
		opt(rt)
	}
	switch h := handler.(type) {
	case *reqdep.Binding:
		if len(rt.decls) > 0 {
			panic(fmt.Sprintf("route %s: Declare cannot be combined with a *reqdep.Binding", path))
		}
		rt.handler = h
	default:
		rt.handler = reqdep.Bind(handler, rt.decls...)
	}
	return rt
}

// Path returns the registered path.
func (rt *Route) Path() string { return rt.path }

// Methods returns the HTTP methods the route accepts; empty means any.
func (rt *Route) Methods() []string { return append([]string(nil), rt.methods...) }

// Name returns the endpoint name.
func (rt *Route) Name() string { return rt.name }

func (rt *Route) endpoint() string {
	if rt.name != "" {
		return rt.name
	}
	return rt.path
}

func (rt *Route) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	rec := &recorder{ResponseWriter: w}

	opts := []reqdep.ScopeOption{
		reqdep.Seed[*http.Request](req),
		reqdep.Seed[http.ResponseWriter](rec),
	}
	if id := req.Header.Get(RequestIDHeader); id != "" {
		opts = append(opts, reqdep.WithScopeID(id))
	}
	ctx, scope := reqdep.NewScope(req.Context(), rt.providers, opts...)
	logger := scope.Logger().With(zap.String("endpoint", rt.endpoint()))
	// Releases the scope if anything below panics; Close is idempotent.
	defer scope.Close()

	result, err := rt.invoke(ctx)

	if cerr := scope.Close(); cerr != nil {
		// Teardown failures are already logged by the scope; they only
		// become the outcome when the handler produced nothing at all.
		if err == nil && result == nil && !rec.wrote {
			err = cerr
		}
	}

	// The response schema only sees the returned value, after every scoped
	// resource has been released. A result must not depend on a resource
	// that is still open.
	if err == nil && rt.response != nil && result != nil {
		result, err = rt.validateResponse(result)
	}

	switch {
	case err != nil:
		rt.router.handleError(rec, req, logger, err)
	case rec.wrote:
	default:
		writeResult(rec, logger, result)
	}

	code := rec.status
	if code == 0 {
		code = http.StatusOK
	}
	rt.router.metrics.observe(rt.endpoint(), code, time.Since(start), schema.IsValidationError(err))
}

// invoke resolves the input schema, runs the guards and calls the handler.
// Nothing after a failed step runs.
func (rt *Route) invoke(ctx context.Context) (any, error) {
	if rt.input != nil {
		if _, err := reqdep.ResolveType(ctx, rt.input); err != nil {
			return nil, err
		}
	}
	if err := reqdep.CheckAll(ctx, rt.guards...); err != nil {
		return nil, err
	}
	return rt.handler.Invoke(ctx)
}

func (rt *Route) validateResponse(result any) (any, error) {
	if reply, ok := result.(Reply); ok {
		body, err := rt.response.validate(reply.Body)
		if err != nil {
			return nil, err
		}
		reply.Body = body
		return reply, nil
	}
	return rt.response.validate(result)
}

func writeResult(w http.ResponseWriter, logger *zap.Logger, result any) {
	status := http.StatusOK
	body := result
	if reply, ok := result.(Reply); ok {
		status, body = reply.Status, reply.Body
		if status == 0 {
			status = http.StatusOK
		}
	}
	if body == nil {
		if status == http.StatusOK {
			status = http.StatusNoContent
		}
		w.WriteHeader(status)
		return
	}
	if err := JSON(w, status, body); err != nil {
		logger.Error("writing response failed", zap.Error(err))
	}
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}

// recorder remembers whether and with which status a response was written.
type recorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *recorder) WriteHeader(code int) {
	if r.wrote {
		return
	}
	r.status = code
	r.wrote = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

func (r *recorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
