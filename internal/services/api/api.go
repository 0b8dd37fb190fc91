// Package api composes the HTTP surface of the capsule service
package api

import (
	"context"
	"time"

	"timecapsule/internal/adapters/blob"
	"timecapsule/internal/adapters/events"
	"timecapsule/internal/core/admission"
	"timecapsule/internal/platform/config"
	"timecapsule/internal/platform/logger"
	phttp "timecapsule/internal/platform/net/http"
	"timecapsule/internal/platform/net/middleware"
	"timecapsule/internal/platform/store"

	"timecapsule/internal/modkit"
	"timecapsule/internal/modkit/httpkit"
	"timecapsule/internal/modkit/module"
	"timecapsule/internal/modkit/swaggerkit"

	capsulesmod "timecapsule/internal/services/api/capsules/module"
	capsulesrepo "timecapsule/internal/services/api/capsules/repo"
	metamod "timecapsule/internal/services/api/meta/module"
)

// ServiceName is reported by the meta routes
const ServiceName = "timecapsule-api"

// Options are the API options
type Options struct {
	Config config.Conf
	Store  *store.Store
	Logger *logger.Logger

	// Auth resolves the bearer on every capsule route
	Auth middleware.AuthPort

	Blobs  blob.Store
	Limits *admission.Limits
	Events events.Sink

	Stack            httpkit.StackOptions
	StatementTimeout time.Duration

	EnableSwagger  bool
	SwaggerBaseURL string
}

// Mount mounts the API service onto the given router and returns the composed modules
func Mount(r phttp.Router, opt Options) []module.Module {
	log := logger.Get()
	if opt.Logger != nil {
		log = opt.Logger
	}
	deps := modkit.FromStore(opt.Store, *log, opt.Config)

	mods := []module.Module{
		metamod.New(deps, ServiceName),
		capsulesmod.New(deps, capsulesmod.Options{
			Blobs:            opt.Blobs,
			Limits:           opt.Limits,
			Events:           opt.Events,
			StatementTimeout: opt.StatementTimeout,
		}, modkit.WithAuth(opt.Auth), modkit.WithSwagger(opt.EnableSwagger)),
	}

	httpkit.MountAPIV1(r, httpkit.CommonStack(opt.Stack), func(api httpkit.Router) {
		for _, m := range mods {
			m.MountRoutes(api)
			log.Debug().Str("module", m.Name()).Msg("module mounted")
		}
	})

	swaggerkit.Mount(r, swaggerkit.Options{
		Enabled: opt.EnableSwagger,
		BaseURL: opt.SwaggerBaseURL,
	})
	return mods
}

// Migrate applies the capsules schema and, when ClickHouse is configured, the events table
func Migrate(ctx context.Context, st *store.Store, log *logger.Logger) error {
	if st == nil || st.PG == nil {
		return nil
	}
	if err := capsulesrepo.Migrate(ctx, st.PG); err != nil {
		return err
	}
	if st.CH == nil {
		return nil
	}
	return events.NewClickHouse(st.CH, log).Migrate(ctx)
}
