package http

import (
	"context"
	"net/http"

	"github.com/corkboard-io/corkboard/internal/access"
	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/corkboard-io/corkboard/internal/service"
	"github.com/go-chi/jwtauth"
)

// PrincipalFromContext returns the principal placed by Authenticated or
// OptionallyAuthenticated, or nil.
func PrincipalFromContext(ctx context.Context) *model.Principal {
	p, _ := ctx.Value(service.ContextPrincipal).(*model.Principal)
	return p
}

func withPrincipal(r *http.Request, p *model.Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), service.ContextPrincipal, p))
}

// Authenticated requires a valid bearer access token. Inactive principals pass,
// ActiveOnly rejects them.
func Authenticated(gate *access.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := gate.Authenticate(r.Context(), jwtauth.TokenFromHeader(r))
			if err != nil {
				service.ToAPIError(err, "authenticating").BindHTTPRequest(r)
				return
			}
			next.ServeHTTP(w, withPrincipal(r, p))
		})
	}
}

// OptionallyAuthenticated resolves a principal when a valid token is present and
// continues anonymously otherwise. Store failures still fail the request.
func OptionallyAuthenticated(gate *access.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := gate.AuthenticateOptional(r.Context(), jwtauth.TokenFromHeader(r))
			if err != nil {
				service.ToAPIError(err, "authenticating").BindHTTPRequest(r)
				return
			}
			if p == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, withPrincipal(r, p))
		})
	}
}

// ActiveOnly rejects disabled accounts. It must follow Authenticated.
func ActiveOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := access.RequireActive(PrincipalFromContext(r.Context())); err != nil {
			service.ToAPIError(err, "checking account").BindHTTPRequest(r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RolesOnly admits principals whose role is in allowed. It must follow
// Authenticated.
func RolesOnly(allowed model.RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := access.RequireRole(PrincipalFromContext(r.Context()), allowed); err != nil {
				service.ToAPIError(err, "checking role").BindHTTPRequest(r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
