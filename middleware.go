package adminkit

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Middleware gates HTTP routes with the access resolver.
type Middleware struct {
	resolver     *Resolver
	getScope     ScopeExtractor
	getActorID   func(*http.Request) string
	errorHandler func(http.ResponseWriter, *http.Request, error)
	logger       *zap.Logger
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance. The scope is read from the
// X-Scope header unless WithScopeExtractor says otherwise.
//
// Example:
//
//	mw := adminkit.NewMiddleware(resolver,
//	    adminkit.WithScopeExtractor(adminkit.ScopeFromContext()),
//	)
//	router.With(mw.RequireAction("hr", "employee", adminkit.ActionEdit)).
//	    Put("/employee/{id}", updateEmployee)
func NewMiddleware(resolver *Resolver, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		resolver:     resolver,
		getScope:     ScopeFromHeader(HeaderScope),
		getActorID:   func(r *http.Request) string { return r.Header.Get("X-Actor-ID") },
		errorHandler: defaultErrorHandler,
		logger:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithScopeExtractor sets how the caller's scope is read from a request.
func WithScopeExtractor(fn ScopeExtractor) MiddlewareOption {
	return func(m *Middleware) {
		m.getScope = fn
	}
}

// WithActorIDExtractor sets how the acting user is read from a request.
func WithActorIDExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getActorID = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

// WithMiddlewareLogger sets the logger used for denials.
func WithMiddlewareLogger(logger *zap.Logger) MiddlewareOption {
	return func(m *Middleware) {
		m.logger = nopIfNil(logger)
	}
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case IsPermissionDenied(err):
		status = http.StatusForbidden
	case IsNotFound(err):
		status = http.StatusNotFound
	case IsValidationFailed(err), IsPreconditionFailed(err):
		status = http.StatusUnprocessableEntity
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": KindOf(err),
	})
}

// ScopeExtractor extracts the caller's scope from an HTTP request.
type ScopeExtractor func(*http.Request) (Scope, error)

// ScopeFromHeader reads the scope from a header.
func ScopeFromHeader(headerName string) ScopeExtractor {
	return func(r *http.Request) (Scope, error) {
		scope := r.Header.Get(headerName)
		if scope == "" {
			return "", NewError(ErrPermissionDenied, "scope not found in header "+headerName)
		}
		return Scope(scope), nil
	}
}

// ScopeFromQuery reads the scope from a query parameter.
func ScopeFromQuery(param string) ScopeExtractor {
	return func(r *http.Request) (Scope, error) {
		scope := r.URL.Query().Get(param)
		if scope == "" {
			return "", NewError(ErrPermissionDenied, "scope not found in query")
		}
		return Scope(scope), nil
	}
}

// ScopeFromContext reads the scope set with WithScope by an earlier
// authentication middleware.
func ScopeFromContext() ScopeExtractor {
	return func(r *http.Request) (Scope, error) {
		scope := GetScope(r.Context())
		if scope == "" {
			return "", NewError(ErrPermissionDenied, "scope not found in context")
		}
		return scope, nil
	}
}

// StaticScope always returns scope. Useful for single-tenant tools.
func StaticScope(scope Scope) ScopeExtractor {
	return func(r *http.Request) (Scope, error) {
		return scope, nil
	}
}

// RequireAction creates middleware that requires action on resource.
//
// Example:
//
//	router.With(mw.RequireAction("hr", "employee", adminkit.ActionDelete)).
//	    Delete("/employee/{id}", deleteEmployee)
func (m *Middleware) RequireAction(module, resource string, action Action) func(http.Handler) http.Handler {
	return m.require(module, resource, action)
}

// RequireAnyAction creates middleware that requires at least one of actions.
func (m *Middleware) RequireAnyAction(module, resource string, actions ...Action) func(http.Handler) http.Handler {
	return m.require(module, resource, actions...)
}

func (m *Middleware) require(module, resource string, actions ...Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, err := m.getScope(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			if !m.resolver.CanAny(scope, module, resource, actions...) {
				m.logger.Info("request denied",
					zap.String("scope", string(scope)),
					zap.String("resource", resource),
					zap.String("path", r.URL.Path))
				err := NewError(ErrPermissionDenied, "missing required action").WithScope(scope)
				if len(actions) == 1 {
					err = err.WithResource(resource, actions[0])
				}
				m.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(m.bind(r, scope)))
		})
	}
}

// LoadChecker creates middleware that binds the caller's Checker into
// context without enforcing anything. Requests without a scope pass through
// with no checker.
//
// Example:
//
//	router.With(mw.LoadChecker()).Get("/menu", menuHandler)
//
//	func menuHandler(w http.ResponseWriter, r *http.Request) {
//	    checker := adminkit.FromContext(r.Context())
//	    if checker != nil && checker.Can("hr", "employee", adminkit.ActionView) {
//	        // Show the employees entry
//	    }
//	}
func (m *Middleware) LoadChecker() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, err := m.getScope(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(m.bind(r, scope)))
		})
	}
}

// InjectRequestContext stores the request id (generated when the client sent
// none) and the actor id in the request context, for audit entries.
func (m *Middleware) InjectRequestContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			ctx = WithRequestID(ctx, requestID)
			w.Header().Set(HeaderRequestID, requestID)

			if actorID := m.getActorID(r); actorID != "" {
				ctx = WithActorID(ctx, actorID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m *Middleware) bind(r *http.Request, scope Scope) context.Context {
	ctx := WithScope(r.Context(), scope)
	return WithChecker(ctx, m.resolver.For(scope))
}
