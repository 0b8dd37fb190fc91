// Package modkit provides module wiring and core deps
package modkit

import (
	"timecapsule/internal/modkit/repokit"
	"timecapsule/internal/platform/clock"
	"timecapsule/internal/platform/config"
	"timecapsule/internal/platform/logger"
	"timecapsule/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// CH is nil when the event log is not configured
type Deps struct {
	Log   logger.Logger
	Cfg   config.Conf
	PG    repokit.TxRunner
	CH    store.Clickhouse
	Clock clock.Clock
}

// FromStore fills the database seams from an opened Store
func FromStore(s *store.Store, log logger.Logger, cfg config.Conf) Deps {
	d := Deps{Log: log, Cfg: cfg, Clock: clock.Real()}
	if s != nil {
		d.PG, d.CH = s.PG, s.CH
	}
	return d
}

// Now returns the deps clock, falling back to wall time
func (d Deps) Now() clock.Clock {
	if d.Clock == nil {
		return clock.Real()
	}
	return d.Clock
}
