// Package module wires the unlock sweeper and exposes its ports
package module

import (
	"timecapsule/internal/adapters/events"
	"timecapsule/internal/modkit"
	"timecapsule/internal/modkit/httpkit"
	"timecapsule/internal/services/unlocker/domain"
	"timecapsule/internal/services/unlocker/repo"
	"timecapsule/internal/services/unlocker/service"
)

// Ports exposes the sweeper to the worker binary
type Ports struct {
	Worker  domain.Worker
	Sweeper domain.Sweeper
}

// Module defines the unlocker module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the unlocker module; env settings are read first, then overrides win
func New(deps modkit.Deps, overrides Options, sink events.Sink) *Module {
	opts := FromConfig(deps.Cfg).merge(overrides)

	svc := service.New(deps.PG, repo.NewPG(), sink, service.Config{
		Interval:   opts.Interval,
		Batch:      opts.Batch,
		MaxBatches: opts.MaxBatches,
		DryRun:     opts.DryRun,
	})
	return &Module{
		deps:  deps,
		opts:  opts,
		ports: Ports{Worker: svc, Sweeper: svc},
	}
}

// Name returns the module name
func (m *Module) Name() string { return "unlocker" }

// Ports returns the module ports (Worker, Sweeper)
func (m *Module) Ports() any { return m.ports }

// Options returns the merged options
func (m *Module) Options() Options { return m.opts }

// MountRoutes is a no-op; the sweeper has no HTTP surface
func (m *Module) MountRoutes(_ httpkit.Router) {}
