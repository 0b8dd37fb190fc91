// @title         Time Capsule API
// @version       1.0.0
// @description   Sealed messages and media that unlock at a chosen instant

package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"timecapsule/internal/adapters/blob"
	"timecapsule/internal/adapters/events"
	"timecapsule/internal/core/admission"
	"timecapsule/internal/modkit/httpkit"
	"timecapsule/internal/modkit/repokit"
	"timecapsule/internal/platform/auth/token"
	"timecapsule/internal/platform/clock"
	"timecapsule/internal/platform/config"
	"timecapsule/internal/platform/logger"
	phttp "timecapsule/internal/platform/net/http"
	"timecapsule/internal/platform/store"

	"timecapsule/internal/services/api"

	"github.com/spf13/pflag"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	fs := pflag.NewFlagSet("timecapsule-api", pflag.ExitOnError)
	var (
		fPort    = fs.String("port", "", "listen port (overrides API_PORT)")
		fSwagger = fs.Bool("swagger", false, "serve the Swagger UI under /api/docs/")
		fLimits  = fs.String("limits", "", "media limits YAML file (overrides CAPSULE_MEDIA_LIMITS_FILE)")
		fStorage = fs.String("storage", "", "blob driver: disk | s3 (overrides CAPSULE_STORAGE_DRIVER)")
		fMigrate = fs.Bool("migrate", true, "apply the capsules schema on boot")
	)
	_ = fs.Parse(os.Args[1:])

	mustSetEnv("API_PORT", *fPort)
	mustSetEnv("CAPSULE_MEDIA_LIMITS_FILE", *fLimits)
	mustSetEnv("CAPSULE_STORAGE_DRIVER", *fStorage)
	if *fSwagger {
		mustSetEnv("API_SWAGGER", strconv.FormatBool(true))
	}

	opt := logger.FromEnv()
	opt.Service = api.ServiceName
	logger.Init(opt)
	l := logger.Get()

	root := config.New()
	capsule := root.Prefix("CAPSULE_")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeCfg := store.ConfigFromEnv(api.ServiceName)
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

	if *fMigrate {
		if err := api.Migrate(ctx, st, l); err != nil {
			l.Panic().Err(err).Msg("migrate failed")
		}
	}

	blobs, err := blob.Open(ctx, capsule)
	if err != nil {
		l.Panic().Err(err).Msg("blob store failed")
	}

	limits, err := admission.LoadLimits(capsule.Prefix("MEDIA_"), capsule.MayString("MEDIA_LIMITS_FILE", ""))
	if err != nil {
		l.Panic().Err(err).Msg("media limits")
	}

	pub := capsule.MayBase64("AUTH_PUBLIC_KEY")
	if pub == nil {
		l.Panic().Str("key", capsule.Key("AUTH_PUBLIC_KEY")).Msg("missing token public key")
	}
	pk, err := token.ParsePublicKey(pub)
	if err != nil {
		l.Panic().Err(err).Msg("token public key")
	}
	verifier := token.NewVerifier(pk, capsule.MayString("AUTH_AUDIENCE", ""), clock.Real())

	sink := events.New(st.CH, logger.Named("events"))
	defer closeEvents(l, sink)

	srv := phttp.NewServer(root)
	api.Mount(srv.Router(), api.Options{
		Config: capsule,
		Store:  st,
		Logger: l,
		Auth:   httpkit.NewPortFunc(verifier.UserID),
		Blobs:  blobs,
		Limits: &limits,
		Events: sink,
		Stack: httpkit.StackOptions{
			Timeout:     root.MayDuration("API_TIMEOUT", 2*time.Minute),
			CORSOrigins: root.MayCSV("API_CORS_ORIGINS", nil),
			SlowLog:     root.MayDuration("API_SLOW_LOG", time.Second),
		},
		StatementTimeout: capsule.MayDuration("STATEMENT_TIMEOUT", 15*time.Second),
		EnableSwagger:    root.MayBool("API_SWAGGER", false),
	})

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}

// closeEvents flushes queued events after the server has drained
func closeEvents(l *logger.Logger, w events.Writer) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Close(ctx); err != nil {
		l.Warn().Err(err).Msg("event queue not fully flushed")
	}
}
