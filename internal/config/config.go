package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Optimization struct {
		WorkerCount   int     `env:"OPT_WORKER_COUNT" envDefault:"10"`
		DefaultRounds int     `env:"OPT_DEFAULT_ROUNDS" envDefault:"50"`
		MaxRounds     int     `env:"OPT_MAX_ROUNDS" envDefault:"10000"`
		MaxRuns       int     `env:"OPT_MAX_RUNS" envDefault:"1000"`
		StartRate     float64 `env:"OPT_START_RATE" envDefault:"20"`
		StartBurst    int     `env:"OPT_START_BURST" envDefault:"40"`
	}
	// Search holds the parameters used when a client does not supply its own.
	Search struct {
		A      float32 `env:"SEARCH_A" envDefault:"-4"`
		B      float32 `env:"SEARCH_B" envDefault:"12"`
		Step   float32 `env:"SEARCH_STEP" envDefault:"0.001"`
		Rounds int     `env:"SEARCH_ROUNDS" envDefault:"50"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Logging.Level == "" {
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		} else {
			cfg.Logging.Level = "info"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the limits that the rest of the program relies on.
func (c *Config) Validate() error {
	switch {
	case c.Optimization.WorkerCount < 1:
		return fmt.Errorf("OPT_WORKER_COUNT must be at least 1, got %d", c.Optimization.WorkerCount)
	case c.Optimization.MaxRounds < 0:
		return fmt.Errorf("OPT_MAX_ROUNDS must be non-negative, got %d", c.Optimization.MaxRounds)
	case c.Optimization.DefaultRounds < 0 || c.Optimization.DefaultRounds > c.Optimization.MaxRounds:
		return fmt.Errorf("OPT_DEFAULT_ROUNDS must be in [0, %d], got %d", c.Optimization.MaxRounds, c.Optimization.DefaultRounds)
	case c.Optimization.MaxRuns < 1:
		return fmt.Errorf("OPT_MAX_RUNS must be at least 1, got %d", c.Optimization.MaxRuns)
	case c.Optimization.StartRate <= 0:
		return fmt.Errorf("OPT_START_RATE must be positive, got %g", c.Optimization.StartRate)
	case c.Optimization.StartBurst < 1:
		return fmt.Errorf("OPT_START_BURST must be at least 1, got %d", c.Optimization.StartBurst)
	case c.Search.Rounds < 0:
		return fmt.Errorf("SEARCH_ROUNDS must be non-negative, got %d", c.Search.Rounds)
	}
	return nil
}
