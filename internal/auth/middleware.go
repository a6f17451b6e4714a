package auth

import (
	"context"
	"net/http"

	"github.com/restakelabs/risk-oracle/internal/domain"
)

type contextKey string

const callerKey contextKey = "caller"

// Credentials maps API keys to the two privileged principals. Ordinary
// users self-identify with the X-Caller-Id header; privileged callers
// present X-API-Key.
type Credentials struct {
	OwnerAPIKey   string
	BackendAPIKey string
}

// Middleware resolves the calling principal for every request and stores
// it in the request context. Authorization itself happens in the services;
// this only establishes identity.
func Middleware(guard *Guard, creds Credentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var caller domain.Principal

			switch key := r.Header.Get("X-API-Key"); {
			case key != "" && key == creds.OwnerAPIKey:
				caller = guard.Owner()
			case key != "" && key == creds.BackendAPIKey:
				caller = guard.TrustedBackend()
			default:
				caller = domain.Principal(r.Header.Get("X-Caller-Id"))
			}

			ctx := context.WithValue(r.Context(), callerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerFromContext returns the principal established by Middleware, or ""
// for anonymous requests.
func CallerFromContext(ctx context.Context) domain.Principal {
	caller, _ := ctx.Value(callerKey).(domain.Principal)
	return caller
}
