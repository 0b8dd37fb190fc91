package httpkit

import (
	"net/http"
	"strings"

	perr "timecapsule/internal/platform/errors"
	pnet "timecapsule/internal/platform/net"
)

// User returns the authenticated user id from the request context
func User(r *http.Request) (string, error) {
	uid := pnet.UserID(r.Context())
	if uid == "" {
		return "", perr.Unauthorizedf("missing bearer token")
	}
	return uid, nil
}

// Bearer returns the raw token from an "Authorization: Bearer <token>" header
// The scheme is matched case-insensitively
func Bearer(r *http.Request) (string, error) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", perr.Unauthorizedf("missing bearer token")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", perr.Unauthorizedf("missing bearer token")
	}
	return raw, nil
}
