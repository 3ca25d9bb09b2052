package route

import (
	"errors"
	"net/http"
	"reflect"
	"sync"

	"go.uber.org/zap"

	reqdep "github.com/gburgyan/go-reqdep"
	"github.com/gburgyan/go-reqdep/schema"
)

// ErrorBody is the JSON body of error responses written by the router.
type ErrorBody struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// ValidationBody is the JSON body of 422 responses.
type ValidationBody struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// StatusCoder is implemented by errors that know their HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// errorRegistry holds application error handlers keyed by error kind.
type errorRegistry struct {
	mu       sync.RWMutex
	order    []reflect.Type
	handlers map[reflect.Type]func(http.ResponseWriter, *http.Request, error) bool
}

func newErrorRegistry() *errorRegistry {
	return &errorRegistry{handlers: map[reflect.Type]func(http.ResponseWriter, *http.Request, error) bool{}}
}

// OnError registers fn for errors of kind E, matched with errors.As. It
// replaces any handler previously registered for E. Handlers are consulted in
// registration order before the router's default translation.
//
//	route.OnError(r, func(w http.ResponseWriter, req *http.Request, err *schema.ValidationError) {
//	    route.JSON(w, err.StatusCode(), map[string]any{"detail": err.Errors})
//	})
func OnError[E error](r *Router, fn func(w http.ResponseWriter, req *http.Request, err E)) {
	t := reflect.TypeOf((*E)(nil)).Elem()
	handler := func(w http.ResponseWriter, req *http.Request, err error) bool {
		var target E
		if !errors.As(err, &target) {
			return false
		}
		fn(w, req, target)
		return true
	}

	reg := r.errors
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.handlers[t]; !ok {
		reg.order = append(reg.order, t)
	}
	reg.handlers[t] = handler
}

func (reg *errorRegistry) handle(w http.ResponseWriter, req *http.Request, err error) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for _, t := range reg.order {
		if reg.handlers[t](w, req, err) {
			return true
		}
	}
	return false
}

// handleError hands err to a registered handler or translates it.
func (r *Router) handleError(w http.ResponseWriter, req *http.Request, logger *zap.Logger, err error) {
	if r.errors.handle(w, req, err) {
		return
	}

	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		message := ve.Message
		if r.validationMessage != "" {
			message = r.validationMessage
		}
		errs := ve.Errors
		if errs == nil {
			errs = []string{}
		}
		logger.Debug("validation failed", zap.Strings("errors", errs))
		r.write(w, logger, ve.StatusCode(), ValidationBody{Message: message, Errors: errs})
		return
	}

	if reqdep.IsConfigError(err) {
		logger.Error("dependency configuration error", zap.Error(err))
		r.write(w, logger, http.StatusInternalServerError, ErrorBody{Message: http.StatusText(http.StatusInternalServerError)})
		return
	}

	var sc StatusCoder
	if errors.As(err, &sc) && sc.StatusCode() < http.StatusInternalServerError {
		r.write(w, logger, sc.StatusCode(), ErrorBody{Message: err.Error()})
		return
	}

	logger.Error("handler failed", zap.Error(err))
	r.write(w, logger, http.StatusInternalServerError, ErrorBody{Message: http.StatusText(http.StatusInternalServerError)})
}

func (r *Router) write(w http.ResponseWriter, logger *zap.Logger, status int, body any) {
	if err := JSON(w, status, body); err != nil {
		logger.Error("writing error response failed", zap.Error(err))
	}
}
