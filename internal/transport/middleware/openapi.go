package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/transport"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// LoadOpenAPI reads and validates the API document at path.
func LoadOpenAPI(path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}

// OpenAPIValidator rejects requests whose parameters or body do not match the
// API document. Document paths are relative to prefix. Paths the document
// does not describe pass through untouched. Authentication is left to the
// auth middleware.
func OpenAPIValidator(doc *openapi3.T, prefix string, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	unprefixed := *doc
	unprefixed.Servers = nil
	router, err := legacy.NewRouter(&unprefixed)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	base := transport.NewBaseHandler(logger)
	opts := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		MultiError:         true,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			vr := *r
			u := *r.URL
			u.Path = strings.TrimPrefix(u.Path, prefix)
			vr.URL = &u

			route, params, err := router.FindRoute(&vr)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			err = openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
				Request:    &vr,
				PathParams: params,
				Route:      route,
				Options:    opts,
			})
			r.Body = vr.Body
			if err != nil {
				logger.DebugContext(r.Context(), "request rejected by openapi validation", "path", r.URL.Path, "error", err)
				base.HandleServiceError(w, r, internal.NewBadRequestError(err.Error()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
