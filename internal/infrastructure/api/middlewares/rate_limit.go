package middlewares

import (
	"net"
	"net/http"

	"github.com/mufasadev/transfers/internal/errors"
	"github.com/mufasadev/transfers/internal/usecases/interactor"
)

// RateLimitMiddleware rejects clients that exceeded their request budget.
// Clients are identified by their address, so it must run after
// middleware.RealIP when the service sits behind a proxy.
func RateLimitMiddleware(limiter *interactor.RateLimitInteractor) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), clientIP(r)).Allowed() {
				errors.HandleHTTPError(w, errors.NewTooManyRequestsError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
