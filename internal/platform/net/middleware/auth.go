package middleware

import (
	"net/http"

	perr "timecapsule/internal/platform/errors"
	"timecapsule/internal/platform/logger"
	pnet "timecapsule/internal/platform/net"
)

var errNoAuth = perr.Unauthorizedf("authentication is not configured")

// AuthPort resolves the caller behind a request
type AuthPort interface {
	// Parse returns the authenticated user id or an UNAUTHORIZED error
	Parse(r *http.Request) (userID string, err error)
}

// Auth rejects requests the port cannot authenticate and stores the user id on context
// A nil port rejects every request
func Auth(p AuthPort, write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := pnet.RequestID(r.Context())
			if p == nil {
				status, body := pnet.Failure(errNoAuth, reqID)
				write(w, status, body)
				return
			}
			uid, err := p.Parse(r)
			if err != nil {
				logger.C(logger.WithRequest(r.Context(), reqID, "")).Debug().Err(err).Msg("auth rejected")
				status, body := pnet.Failure(err, reqID)
				write(w, status, body)
				return
			}
			next.ServeHTTP(w, r.WithContext(pnet.WithUser(r.Context(), uid)))
		})
	}
}
