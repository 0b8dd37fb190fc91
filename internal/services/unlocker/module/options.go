package module

import (
	"time"

	"timecapsule/internal/platform/config"
)

// Options controls the sweeper; values may also be read from env
type Options struct {
	Interval   time.Duration
	Batch      int
	MaxBatches int
	DryRun     bool
}

// FromConfig reads options using the UNLOCKER_ prefix
func FromConfig(cfg config.Conf) Options {
	u := cfg.Prefix("UNLOCKER_")
	return Options{
		Interval:   u.MayDuration("INTERVAL", 30*time.Second),
		Batch:      u.MayInt("BATCH", 200),
		MaxBatches: u.MayInt("MAX_BATCHES", 50),
		DryRun:     u.MayBool("DRYRUN", false),
	}
}

// merge applies non-zero overrides on top of o
func (o Options) merge(over Options) Options {
	if over.Interval > 0 {
		o.Interval = over.Interval
	}
	if over.Batch > 0 {
		o.Batch = over.Batch
	}
	if over.MaxBatches > 0 {
		o.MaxBatches = over.MaxBatches
	}
	if over.DryRun {
		o.DryRun = true
	}
	return o
}
