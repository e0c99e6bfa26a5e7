package app

import (
	"net"
	"strconv"
	"time"

	"lifeworld/server/internal/observability"
	"lifeworld/server/internal/sim"
	"lifeworld/server/internal/store"
	"lifeworld/server/internal/store/redisstore"
	"lifeworld/server/internal/telemetry"
)

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 3001
	defaultShutdownTimeout = 5 * time.Second
)

type Config struct {
	Logger        telemetry.Logger
	Observability observability.Config

	Host            string
	Port            int
	World           sim.WorldConfig
	Redis           redisstore.Config
	ShutdownTimeout time.Duration
	LogJSONPath     string

	// Store overrides the store chosen from Redis. Used by tests.
	Store store.Store
}

// DefaultConfig returns the settings used when no environment is set.
func DefaultConfig() Config {
	world := sim.DefaultWorldConfig()
	return Config{
		Host:            defaultHost,
		Port:            defaultPort,
		World:           world,
		Redis:           redisstore.Config{Timeout: world.StoreTimeout},
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LoadConfig overlays environment variables on DefaultConfig. Invalid values
// are logged and the default is kept.
func LoadConfig(getenv func(string) string, logger telemetry.Logger) Config {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	cfg := DefaultConfig()

	if raw := getenv("HOST"); raw != "" {
		cfg.Host = raw
	}
	if raw := getenv("PORT"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 && value <= 65535 {
			cfg.Port = value
		} else {
			logger.Printf("invalid PORT=%q", raw)
		}
	}
	if raw := getenv("WORLD_SIZE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.World.Size = value
		} else {
			logger.Printf("invalid WORLD_SIZE=%q", raw)
		}
	}
	if value, ok := millis(getenv, logger, "REFRESH_INTERVAL_MS"); ok {
		cfg.World.RefreshInterval = value
	}
	if raw := getenv("SNAPSHOT_KEY"); raw != "" {
		cfg.World.SnapshotKey = raw
	}
	if value, ok := millis(getenv, logger, "STORE_TIMEOUT_MS"); ok {
		cfg.World.StoreTimeout = value
		cfg.Redis.Timeout = value
	}
	if value, ok := millis(getenv, logger, "SHUTDOWN_TIMEOUT_MS"); ok {
		cfg.ShutdownTimeout = value
	}

	cfg.Redis.Addr = getenv("REDIS_ADDR")
	cfg.Redis.Password = getenv("REDIS_PASSWORD")
	if raw := getenv("REDIS_DB"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.Redis.DB = value
		} else {
			logger.Printf("invalid REDIS_DB=%q", raw)
		}
	}

	cfg.LogJSONPath = getenv("LOG_JSON_PATH")

	if raw := getenv("ENABLE_PPROF_TRACE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Observability.EnablePprofTrace = value
		} else {
			logger.Printf("invalid ENABLE_PPROF_TRACE=%q: %v", raw, err)
		}
	}

	return cfg
}

func millis(getenv func(string) string, logger telemetry.Logger, key string) (time.Duration, bool) {
	raw := getenv(key)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		logger.Printf("invalid %s=%q", key, raw)
		return 0, false
	}
	return time.Duration(value) * time.Millisecond, true
}
