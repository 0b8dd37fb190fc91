// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"net/http"

	modkit "timecapsule/internal/modkit"
	"timecapsule/internal/modkit/httpkit"
	str "timecapsule/internal/platform/strings"

	metahttp "timecapsule/internal/services/api/meta/http"
)

// Module implements the modkit.Module interface
type Module struct {
	deps    modkit.Deps
	name    string
	prefix  string
	service string
	mws     []func(http.Handler) http.Handler
}

// New constructs a meta module; routes sit at the API root unless WithPrefix is given
func New(deps modkit.Deps, service string, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("meta")}, opts...)...)
	return &Module{
		deps:    deps,
		name:    b.Name,
		prefix:  b.Prefix,
		service: service,
		mws:     b.Mw,
	}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	register := func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		d := metahttp.Deps{
			ServiceName: m.service,
			StartedAt:   m.deps.Now().Now(),
			Clock:       m.deps.Now(),
		}
		// typed nils would defeat the skipped check
		if m.deps.PG != nil {
			d.PG = m.deps.PG
		}
		if m.deps.CH != nil {
			d.CH = m.deps.CH
		}
		metahttp.Register(rr, d)
	}
	if m.prefix == "" {
		r.Group(register)
		return
	}
	r.Route(m.prefix, register)
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return str.MustString(m.name, "meta") }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
