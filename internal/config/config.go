package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, loaded from environment variables.
// OTel has its own env surface (OTEL_*) and is configured separately.
type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"mailforge.db"`

	// BulkTickInterval is the cadence of the cosmetic progress counter
	// while a bulk operation's batch call is in flight.
	BulkTickInterval time.Duration `env:"BULK_TICK_INTERVAL" envDefault:"1500ms"`
	// BulkHoldDelay is how long a completed operation's final counts stay
	// visible before the next operation may start.
	BulkHoldDelay time.Duration `env:"BULK_HOLD_DELAY" envDefault:"3s"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
