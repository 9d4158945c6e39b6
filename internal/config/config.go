package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port    string `envconfig:"PORT" default:"8080"`
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	ExportEnabled bool   `envconfig:"EXPORT_ENABLED" default:"true"`
	ExportFile    string `envconfig:"EXPORT_FILE" default:"./crewcall-results.txt"`

	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`
	SessionMaxIdle time.Duration `envconfig:"SESSION_MAX_IDLE" default:"2h"`
}

func FromEnv() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}
