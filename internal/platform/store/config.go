package store

import (
	"time"

	"timecapsule/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int
	LockTimeout time.Duration

	// boot knobs; zero picks the defaults in openPG
	ConnectRetries int
	PingTimeout    time.Duration
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled bool
	URL     string
	Role    string
}

// ConfigFromEnv reads CORE_PG_* and CORE_CH_*; a blank URL leaves that backend disabled
func ConfigFromEnv(appName string) Config {
	pgc := config.New().Prefix("CORE_PG_")
	chc := config.New().Prefix("CORE_CH_")

	pgURL := pgc.MayString("URL", "")
	chURL := chc.MayString("URL", "")
	return Config{
		AppName: appName,
		PG: PGConfig{
			Enabled:        pgURL != "",
			URL:            pgURL,
			MaxConns:       int32(pgc.MayInt("MAX_CONNS", 10)),
			LogSQL:         pgc.MayBool("LOG_SQL", false),
			SlowQueryMs:    pgc.MayInt("SLOW_MS", 250),
			LockTimeout:    pgc.MayDuration("LOCK_TIMEOUT", 5*time.Second),
			ConnectRetries: pgc.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pgc.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled: chURL != "",
			URL:     chURL,
			Role:    appName,
		},
	}
}
