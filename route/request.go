package route

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/mux"

	reqdep "github.com/gburgyan/go-reqdep"
	"github.com/gburgyan/go-reqdep/schema"
)

// Vars holds the path variables of the matched route.
type Vars map[string]string

// requestProviders are the generators every invocation can draw request data
// from. The request and response writer themselves are seeded per scope.
func requestProviders(maxBodyBytes int64) []any {
	readBody := func(w http.ResponseWriter, req *http.Request) (schema.Body, error) {
		if req.Body == nil {
			return nil, nil
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, &schema.ValidationError{
					Message: schema.DefaultMessage,
					Errors:  []string{"payload too large"},
				}
			}
			return nil, err
		}
		return body, nil
	}

	return []any{
		readBody,
		headers,
		pathVars,
		reqdep.WithHook(schema.BodyHook{}),
	}
}

func headers(req *http.Request) http.Header {
	return req.Header
}

func pathVars(req *http.Request) Vars {
	if vars := mux.Vars(req); len(vars) > 0 {
		return vars
	}
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		return Vars{}
	}
	vars := Vars{}
	for i, k := range rctx.URLParams.Keys {
		vars[k] = rctx.URLParams.Values[i]
	}
	return vars
}
