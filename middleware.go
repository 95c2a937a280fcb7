package permkit

import (
	"net/http"
)

// Middleware provides HTTP middleware for permission checking on resources.
type Middleware struct {
	resolver     *AssignmentResolver
	registry     *Registry
	getAuthority func(*http.Request) string
	getResource  func(*http.Request) ResourceRef
	errorHandler func(http.ResponseWriter, *http.Request)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := permkit.NewMiddleware(resolver, registry,
//	    permkit.WithAuthorityExtractor(func(r *http.Request) string {
//	        return r.Header.Get("X-Authority")
//	    }),
//	    permkit.WithResourceExtractor(func(r *http.Request) permkit.ResourceRef {
//	        return permkit.NewResourceRef(r.PathValue("id"))
//	    }),
//	)
func NewMiddleware(resolver *AssignmentResolver, registry *Registry, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		resolver:     resolver,
		registry:     registry,
		getAuthority: defaultGetAuthority,
		getResource:  defaultGetResource,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithAuthorityExtractor sets a custom function to extract the authority id
// from a request.
func WithAuthorityExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getAuthority = fn
	}
}

// WithResourceExtractor sets a custom function to extract the target resource
// from a request.
func WithResourceExtractor(fn func(*http.Request) ResourceRef) MiddlewareOption {
	return func(m *Middleware) {
		m.getResource = fn
	}
}

// WithDenyHandler sets a custom handler invoked when access is denied.
func WithDenyHandler(fn func(http.ResponseWriter, *http.Request)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetAuthority(r *http.Request) string {
	return GetAuthority(r.Context())
}

func defaultGetResource(r *http.Request) ResourceRef {
	return NewResourceRef(r.PathValue("id"))
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// checker builds a Checker for the request, or nil when no authority is
// present.
func (m *Middleware) checker(r *http.Request) *Checker {
	authority := m.getAuthority(r)
	if authority == "" {
		return nil
	}
	return NewChecker(authority, m.resolver, m.registry)
}

// RequireAction returns middleware that rejects requests whose authority may
// not perform the action on the request's resource.
//
// Example:
//
//	mux.Handle("DELETE /documents/{id}", mw.RequireAction("delete")(handler))
func (m *Middleware) RequireAction(actionID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			checker := m.checker(r)
			if checker == nil || !checker.Can(r.Context(), m.getResource(r), actionID) {
				m.errorHandler(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithChecker(r.Context(), checker)))
		})
	}
}

// RequireRead returns middleware that rejects requests whose authority may
// not read the request's resource.
func (m *Middleware) RequireRead() func(http.Handler) http.Handler {
	return m.RequireAction(ActionRead)
}

// RequireManager returns middleware that rejects requests whose authority is
// not a manager of the request's resource.
func (m *Middleware) RequireManager() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			checker := m.checker(r)
			if checker == nil || !checker.IsManager(r.Context(), m.getResource(r)) {
				m.errorHandler(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithChecker(r.Context(), checker)))
		})
	}
}

// AttachChecker returns middleware that puts a Checker for the request's
// authority into the context without enforcing anything. Handlers retrieve
// it with GetChecker.
func (m *Middleware) AttachChecker() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if checker := m.checker(r); checker != nil {
				r = r.WithContext(WithChecker(r.Context(), checker))
			}
			next.ServeHTTP(w, r)
		})
	}
}
