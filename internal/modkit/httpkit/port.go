package httpkit

import (
	"net/http"

	perr "timecapsule/internal/platform/errors"
)

// TokenFunc verifies a raw bearer token and returns the user id it names
type TokenFunc func(token string) (userID string, err error)

// Port implements middleware.AuthPort by reading Authorization and delegating to a TokenFunc
type Port struct {
	parse TokenFunc
}

// NewPortFunc builds a Port from a verifier function
func NewPortFunc(fn TokenFunc) *Port { return &Port{parse: fn} }

// Parse returns UNAUTHORIZED when the header is missing or malformed or the verifier rejects it
// Verifier errors are not echoed to the client
func (p *Port) Parse(r *http.Request) (string, error) {
	raw, err := Bearer(r)
	if err != nil {
		return "", err
	}
	if p == nil || p.parse == nil {
		return "", perr.Unauthorizedf("invalid bearer token")
	}
	uid, err := p.parse(raw)
	if err != nil || uid == "" {
		return "", perr.Unauthorizedf("invalid bearer token")
	}
	return uid, nil
}
