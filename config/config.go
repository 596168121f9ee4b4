// Package config loads engine configuration from the environment.
//
// A .env file in the working directory is loaded first (and is
// optional); flags in cmd/server override the address and database
// path afterwards.
package config

import (
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string `env:"ADDR,default=:8080"`

	// DatabasePath is the SQLite database file. ":memory:" works for
	// throwaway runs.
	DatabasePath string `env:"DATABASE_PATH,default=points.db"`

	// DatabaseURL, when set, selects the PostgreSQL store instead of
	// SQLite.
	DatabaseURL string `env:"DATABASE_URL,default="`

	// KafkaBrokers, when non-empty, enables the ledger event stream.
	// Semicolon-separated host:port pairs.
	KafkaBrokers []string `env:"KAFKA_BROKERS"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Load reads .env (if present) and decodes the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
