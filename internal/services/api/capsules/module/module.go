// Package module wires the capsules service into HTTP via modkit
package module

import (
	"net/http"
	"strconv"
	"time"

	"timecapsule/internal/adapters/blob"
	"timecapsule/internal/adapters/events"
	"timecapsule/internal/core/admission"
	"timecapsule/internal/modkit"
	"timecapsule/internal/modkit/httpkit"
	"timecapsule/internal/modkit/repokit"
	"timecapsule/internal/modkit/swaggerkit"
	"timecapsule/internal/platform/net/middleware"
	"timecapsule/internal/platform/strings"
	"timecapsule/internal/services/api/capsules/domain"

	capsuleshttp "timecapsule/internal/services/api/capsules/http"
	"timecapsule/internal/services/api/capsules/repo"
	"timecapsule/internal/services/api/capsules/service"
)

// Ports exposes the service port for cross-module lookups
type Ports struct {
	Service domain.ServicePort
}

// Options are the collaborators the capsules module needs beyond Deps
type Options struct {
	// Blobs is required
	Blobs blob.Store

	// Limits defaults to admission.DefaultLimits
	Limits *admission.Limits

	// Events defaults to a no-op sink
	Events events.Sink

	// StatementTimeout is applied to every capsules transaction; zero disables it
	StatementTimeout time.Duration
}

// Module implements the capsules module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws    []func(http.Handler) http.Handler
	auth   middleware.AuthPort
	ports  Ports
	limits admission.Limits
}

// New constructs the capsules module
// a Ports bundle passed through modkit.WithPorts replaces the Postgres backed service
func New(deps modkit.Deps, opt Options, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("capsules"), modkit.WithPrefix("/capsules")}, opts...)...)

	var svc domain.ServicePort
	if p, ok := modkit.PortsAs[Ports](b); ok && p.Service != nil {
		svc = p.Service
	} else {
		db := deps.PG
		if opt.StatementTimeout > 0 && db != nil {
			db = repokit.WithBeginHooks(db, repokit.SetLocal("statement_timeout", timeoutSetting(opt.StatementTimeout)))
		}
		svc = service.New(db, repo.NewPG(), service.Options{
			Blobs:  opt.Blobs,
			Limits: opt.Limits,
			Events: opt.Events,
			Clock:  deps.Now(),
		})
	}

	limits := admission.DefaultLimits()
	if opt.Limits != nil {
		limits = *opt.Limits
	}

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		auth:   b.Auth,
		limits: limits,
	}
	m.ports = Ports{Service: svc}
	if b.SwaggerOn {
		swaggerkit.Register(limitsDoc(limits))
	}
	return m
}

// limitsDoc publishes the active media quotas under info.x-media-limits
func limitsDoc(l admission.Limits) swaggerkit.SpecMutator {
	perKind := map[string]int{}
	maxBytes := map[string]int64{}
	for _, k := range admission.Kinds {
		if n, ok := l.PerKindMax[k]; ok {
			perKind[string(k)] = n
		}
		if n, ok := l.MaxBytes[k]; ok {
			maxBytes[string(k)] = n
		}
	}
	return func(spec map[string]any) {
		info, ok := spec["info"].(map[string]any)
		if !ok {
			return
		}
		info["x-media-limits"] = map[string]any{
			"per_kind":  perKind,
			"total":     l.TotalMax,
			"max_bytes": maxBytes,
		}
	}
}

// timeoutSetting renders d as whole milliseconds, the unit postgres assumes for statement_timeout
func timeoutSetting(d time.Duration) string {
	return strconv.FormatInt(max(d.Milliseconds(), 1), 10)
}

// MountRoutes mounts the module routes behind bearer auth
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		httpkit.Protected(rr, m.auth, func(pr httpkit.Router) {
			capsuleshttp.Register(pr, m.ports.Service, m.limits)
		})
	})
}

// Name is the module name
func (m *Module) Name() string { return strings.MustString(m.name, "module name") }

// Prefix is the module route prefix
func (m *Module) Prefix() string { return strings.MustPrefix(m.prefix) }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
