package modkit

import (
	"net/http"

	"timecapsule/internal/platform/net/middleware"
)

// Option mutates build configuration for a module
type Option func(*buildCfg)

type buildCfg struct {
	name      string
	prefix    string
	mw        []func(http.Handler) http.Handler
	ports     any
	auth      middleware.AuthPort
	swaggerOn bool
}

// WithName sets a module name used in logs and PortsOf panics
func WithName(name string) Option {
	return func(c *buildCfg) { c.name = name }
}

// WithPrefix mounts a module under a path prefix
func WithPrefix(prefix string) Option {
	return func(c *buildCfg) { c.prefix = prefix }
}

// WithMiddlewares attaches per module middleware in order
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(c *buildCfg) { c.mw = append(c.mw, mw...) }
}

// WithPorts injects ports owned by another module or adapter
func WithPorts[T any](p T) Option {
	return func(c *buildCfg) { c.ports = p }
}

// WithAuth sets the bearer verifier protecting the module routes
func WithAuth(p middleware.AuthPort) Option {
	return func(c *buildCfg) { c.auth = p }
}

// WithSwagger toggles swagger UI for this module when mounted
func WithSwagger(enabled bool) Option {
	return func(c *buildCfg) { c.swaggerOn = enabled }
}
