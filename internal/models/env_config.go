package models

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

type EnvConfig struct {
	// DatabaseURL is either a postgres:// URL or sqlite://<path> for a local file.
	DatabaseURL   string `env:"SAHIHNEWS_DATABASE_URL" envDefault:"sqlite://sahihnews.db"`
	MigrationsURL string `env:"SAHIHNEWS_MIGRATIONS_URL" envDefault:"file://migrations"`
	Port          string `env:"SAHIHNEWS_PORT" envDefault:"23495"`
	Debug         bool   `env:"SAHIHNEWS_DEBUG"`
	PolicyFile    string `env:"SAHIHNEWS_POLICY_FILE"`

	// Tokens issued by the identity provider.
	JWTKey      string `env:"SAHIHNEWS_JWT_KEY"`
	JWTIssuer   string `env:"SAHIHNEWS_JWT_ISSUER" envDefault:"sahihnews-identity"`
	JWTAudience string `env:"SAHIHNEWS_JWT_AUDIENCE" envDefault:"sahihnews"`

	OtelEndpoint string `env:"SAHIHNEWS_OTEL_ENDPOINT"`
}

func ReadEnvConfig() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// SQLitePath returns the database file when DatabaseURL points to sqlite.
func (c *EnvConfig) SQLitePath() (string, bool) {
	const prefix = "sqlite://"
	if !strings.HasPrefix(c.DatabaseURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(c.DatabaseURL, prefix), true
}
