// Package route adapts reqdep-bound handlers to HTTP routers.
//
// Every incoming call gets a fresh reqdep.Scope seeded with the request and
// response writer. The handler's declared dependencies are resolved in that
// scope, the handler runs, the scope is closed, and the result is written as
// JSON. Validation failures anywhere in the pipeline become a 422 response
// unless an error handler was registered for them with OnError.
//
//	r := route.New(providers)
//	r.Handle("/users", reqdep.Bind(createUser, reqdep.Infer(), reqdep.Depends(newID)),
//	    route.Methods(http.MethodPost), route.Name("create_user"))
//	http.ListenAndServe(":8080", r)
package route

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	reqdep "github.com/gburgyan/go-reqdep"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultMaxBodyBytes bounds request bodies read for schema validation.
const DefaultMaxBodyBytes = 1 << 20

// Router registers handlers on a gorilla/mux router and serves them.
type Router struct {
	mux       *mux.Router
	providers *reqdep.Providers
	logger    *zap.Logger
	metrics   *metrics
	errors    *errorRegistry

	validationMessage string
	maxBodyBytes      int64
	registerer        prometheus.Registerer

	routes []*Route
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger of the router and of every request scope. It
// defaults to the providers' logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithMux registers routes on an existing gorilla/mux router.
func WithMux(m *mux.Router) Option {
	return func(r *Router) {
		r.mux = m
	}
}

// WithValidationMessage replaces the summary of every 422 response.
func WithValidationMessage(message string) Option {
	return func(r *Router) {
		r.validationMessage = message
	}
}

// WithMaxBodyBytes bounds how much of a request body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(r *Router) {
		r.maxBodyBytes = n
	}
}

// WithRegisterer sets where the router's metrics are registered. By default
// they are registered on a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Router) {
		r.registerer = reg
	}
}

// New builds a router resolving dependencies from providers. The router adds
// the request-level providers: *http.Request, http.ResponseWriter,
// http.Header, Vars, schema.Body and every input schema type.
func New(providers *reqdep.Providers, opts ...Option) *Router {
	if providers == nil {
		providers = reqdep.NewProviders()
	}
	r := &Router{
		providers:    providers,
		maxBodyBytes: DefaultMaxBodyBytes,
		errors:       newErrorRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.mux == nil {
		r.mux = mux.NewRouter()
	}
	if r.logger == nil {
		r.logger = providers.Logger()
	} else {
		providers = providers.With(reqdep.WithLogger(r.logger))
	}
	if r.registerer == nil {
		r.registerer = prometheus.NewRegistry()
	}
	r.metrics = newMetrics(r.registerer)
	r.providers = providers.With(requestProviders(r.maxBodyBytes)...)
	return r
}

// Handle registers handler at path. Handler is a *reqdep.Binding or a plain
// function, in which case Declare supplies its parameter declarations.
func (r *Router) Handle(path string, handler any, opts ...RouteOption) *Route {
	rt := newRoute(r, path, handler, opts...)
	r.routes = append(r.routes, rt)

	mr := r.mux.Handle(path, rt)
	if len(rt.methods) > 0 {
		mr.Methods(rt.methods...)
	}
	if rt.name != "" {
		mr.Name(rt.name)
	}
	r.logger.Debug("route registered",
		zap.String("path", path),
		zap.Strings("methods", rt.methods),
		zap.String("endpoint", rt.endpoint()))
	return rt
}

// Group returns a group registering routes under prefix on the same router,
// the way a blueprint groups the routes of one feature.
func (r *Router) Group(prefix string) *Group {
	return &Group{router: r, prefix: prefix}
}

// Routes returns every registered route, in registration order.
func (r *Router) Routes() []*Route {
	return append([]*Route(nil), r.routes...)
}

// Mux returns the underlying gorilla/mux router.
func (r *Router) Mux() *mux.Router {
	return r.mux
}

// Mount registers every route of r on a chi router as well.
func (r *Router) Mount(cr chi.Router) {
	for _, rt := range r.routes {
		if len(rt.methods) == 0 {
			cr.Handle(rt.path, rt)
			continue
		}
		for _, m := range rt.methods {
			cr.Method(m, rt.path, rt)
		}
	}
}

// URL builds the URL of a named route.
func (r *Router) URL(name string, pairs ...string) (string, error) {
	mr := r.mux.Get(name)
	if mr == nil {
		return "", &RouteError{Name: name}
	}
	u, err := mr.URL(pairs...)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Group registers routes under a common path prefix.
type Group struct {
	router *Router
	prefix string
}

// Handle registers handler at the group prefix followed by path.
func (g *Group) Handle(path string, handler any, opts ...RouteOption) *Route {
	return g.router.Handle(g.prefix+path, handler, opts...)
}

// Group returns a nested group.
func (g *Group) Group(prefix string) *Group {
	return &Group{router: g.router, prefix: g.prefix + prefix}
}

// RouteError reports an unknown route name.
type RouteError struct {
	Name string
}

func (e *RouteError) Error() string {
	return "route: no route named " + e.Name
}
