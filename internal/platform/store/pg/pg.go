// Package pg opens the capsule Postgres pool with optional query tracing
package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures pgxpool for pg
type Config struct {
	URL      string
	AppName  string
	MaxConns int32
	SlowMs   int

	// LockTimeout bounds row lock waits such as SELECT ... FOR UPDATE; 0 keeps the server default
	LockTimeout time.Duration
}

// PG is a postgres client with pool and optional tracer
type PG struct {
	Pool   *pgxpool.Pool
	Tracer QueryTracer
	SlowMs int
}

var newPool = pgxpool.NewWithConfig

// Open creates a PG client from cfg, an optional tracer, and an optional pool config mutator
func Open(ctx context.Context, cfg Config, tracer QueryTracer, poolCfgMut func(*pgxpool.Config)) (*PG, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	applyRuntimeParams(pcfg, cfg)
	if poolCfgMut != nil {
		poolCfgMut(pcfg)
	}
	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	return &PG{
		Pool:   pool,
		Tracer: tracer,
		SlowMs: cfg.SlowMs,
	}, nil
}

func applyRuntimeParams(pcfg *pgxpool.Config, cfg Config) {
	rp := pcfg.ConnConfig.RuntimeParams
	if rp == nil {
		rp = map[string]string{}
		pcfg.ConnConfig.RuntimeParams = rp
	}
	if cfg.AppName != "" {
		if _, set := rp["application_name"]; !set {
			rp["application_name"] = cfg.AppName
		}
	}
	if cfg.LockTimeout > 0 {
		rp["lock_timeout"] = cfg.LockTimeout.String()
	}
}

// Close closes the pool
func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
