// Package service runs the background unlock sweep
package service

import (
	"context"
	"time"

	"timecapsule/internal/adapters/events"
	"timecapsule/internal/core/unlock"
	"timecapsule/internal/modkit/repokit"
	perr "timecapsule/internal/platform/errors"
	"timecapsule/internal/platform/logger"
	"timecapsule/internal/services/unlocker/domain"
	"timecapsule/internal/services/unlocker/repo"
)

// Config tunes the sweep
type Config struct {
	// Interval between sweeps; defaults to 30s
	Interval time.Duration
	// Batch is the row cap per lease; defaults to 200
	Batch int
	// MaxBatches bounds one sweep; defaults to 50
	MaxBatches int
	// DryRun counts due capsules without flipping them
	DryRun bool
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.Batch <= 0 {
		c.Batch = 200
	}
	if c.MaxBatches <= 0 {
		c.MaxBatches = 50
	}
	return c
}

// Svc flips due capsules in batches
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Repo]
	events events.Sink
	cfg    Config
	log    *logger.Logger
}

var (
	_ domain.Worker  = (*Svc)(nil)
	_ domain.Sweeper = (*Svc)(nil)
)

// New constructs the sweeper; sink may be nil
// The sweeper keeps no clock of its own: each batch decides at the database clock
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], sink events.Sink, cfg Config) *Svc {
	if db == nil || binder == nil {
		panic("unlocker: nil db or binder")
	}
	if sink == nil {
		sink = events.Nop{}
	}
	return &Svc{
		db:     db,
		binder: binder,
		events: sink,
		cfg:    cfg.withDefaults(),
		log:    logger.Named("unlocker"),
	}
}

// Config returns the effective configuration
func (s *Svc) Config() Config { return s.cfg }

// Sweep reconciles due capsules until a short lease comes back or MaxBatches is reached
func (s *Svc) Sweep(ctx context.Context) (int, error) {
	if s.cfg.DryRun {
		n, err := s.binder.Bind(s.db).CountDue(ctx)
		if err != nil {
			return 0, err
		}
		s.log.Info().Int64("due", n).Msg("dry run sweep")
		return 0, nil
	}

	total := 0
	for range s.cfg.MaxBatches {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		var b batch
		err := repokit.WithTxRetry(ctx, s.db, repokit.DefaultRetry, func(q repokit.Queryer) error {
			var err error
			b, err = s.reconcileBatch(ctx, s.binder.Bind(q))
			return err
		})
		if err != nil {
			return total, perr.WithOp(err, "unlocker.sweep")
		}
		s.record(ctx, b)
		total += len(b.flipped)
		if b.leased < s.cfg.Batch {
			return total, nil
		}
	}

	if n, err := s.binder.Bind(s.db).CountDue(ctx); err == nil && n > 0 {
		s.log.Warn().Int64("backlog", n).Int("flipped", total).Msg("sweep hit its batch cap")
	}
	return total, nil
}

type batch struct {
	at      time.Time
	leased  int
	flipped []domain.Candidate
}

// reconcileBatch leases due rows and runs each through the unlock reconciler at the database clock
func (s *Svc) reconcileBatch(ctx context.Context, r repo.Repo) (batch, error) {
	now, err := r.Now(ctx)
	if err != nil {
		return batch{}, err
	}
	cands, err := r.LeaseDue(ctx, now, s.cfg.Batch)
	if err != nil {
		return batch{}, err
	}

	b := batch{at: now, leased: len(cands)}
	var cur domain.Candidate
	rec := unlock.NewReconciler(unlock.PersisterFunc(func(ctx context.Context, id string) error {
		changed, err := r.MarkUnlocked(ctx, id)
		if changed {
			b.flipped = append(b.flipped, cur)
		}
		return err
	}))
	for _, cur = range cands {
		subj := unlock.Subject{ID: cur.ID, UnlockAt: cur.UnlockAt, IsUnlocked: cur.IsUnlocked}
		if _, err := rec.Reconcile(ctx, subj, now); err != nil {
			return batch{}, err
		}
	}
	return b, nil
}

func (s *Svc) record(ctx context.Context, b batch) {
	if len(b.flipped) == 0 {
		return
	}
	evs := make([]events.Event, 0, len(b.flipped))
	for _, c := range b.flipped {
		evs = append(evs, events.Event{
			At:        b.at,
			Kind:      events.KindUnlocked,
			CapsuleID: c.ID,
			OwnerID:   c.OwnerID,
			Source:    "sweeper",
		})
	}
	s.events.Record(ctx, evs...)
}

// Run sweeps once immediately and then on every tick until ctx ends
// sweep failures are logged and retried on the next tick
func (s *Svc) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.cfg.Interval).Int("batch", s.cfg.Batch).Bool("dry_run", s.cfg.DryRun).Msg("unlocker started")
	s.tick(ctx)

	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Svc) tick(ctx context.Context) {
	start := time.Now()
	n, err := s.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error().Err(err).Int("flipped", n).Msg("sweep failed")
		}
		return
	}
	if n > 0 {
		s.log.Info().Int("flipped", n).Dur("took", time.Since(start)).Msg("capsules unlocked")
	}
}
