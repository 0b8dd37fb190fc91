package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timecapsule/internal/adapters/events"
	"timecapsule/internal/modkit"
	"timecapsule/internal/modkit/module"
	"timecapsule/internal/modkit/repokit"
	"timecapsule/internal/platform/config"
	"timecapsule/internal/platform/logger"
	"timecapsule/internal/platform/store"

	unlockermod "timecapsule/internal/services/unlocker/module"

	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("timecapsule-unlocker", pflag.ExitOnError)
	var (
		fInterval = fs.Duration("interval", 0, "time between sweeps (overrides UNLOCKER_INTERVAL)")
		fBatch    = fs.Int("batch", 0, "capsules leased per batch (overrides UNLOCKER_BATCH)")
		fMax      = fs.Int("max-batches", 0, "batch cap per sweep (overrides UNLOCKER_MAX_BATCHES)")
		fDryRun   = fs.Bool("dry-run", false, "count due capsules without flipping them")
		fOnce     = fs.Bool("once", false, "sweep once and exit")
	)
	_ = fs.Parse(os.Args[1:])

	opt := logger.FromEnv()
	opt.Service = "timecapsule-unlocker"
	logger.Init(opt)
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.New()
	storeCfg := store.ConfigFromEnv("timecapsule-unlocker")
	if !storeCfg.PG.Enabled {
		l.Panic().Str("key", "CORE_PG_URL").Msg("postgres is required")
	}
	st, err := store.Open(ctx, storeCfg, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(ctx, st)

	sink := events.New(st.CH, logger.Named("events"))
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sink.Close(cctx); err != nil {
			l.Warn().Err(err).Msg("event queue not fully flushed")
		}
	}()

	deps := modkit.FromStore(st, *l, root)
	mod := unlockermod.New(deps, unlockermod.Options{
		Interval:   *fInterval,
		Batch:      *fBatch,
		MaxBatches: *fMax,
		DryRun:     *fDryRun,
	}, sink)
	ports := module.MustPortsOf[unlockermod.Ports](mod)

	if *fOnce {
		n, err := ports.Sweeper.Sweep(ctx)
		if err != nil {
			l.Fatal().Err(err).Int("flipped", n).Msg("sweep failed")
		}
		l.Info().Int("flipped", n).Msg("sweep done")
		return
	}

	if err := ports.Worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		l.Fatal().Err(err).Msg("unlocker worker failed")
	}
}
