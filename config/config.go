package config

import (
	"fmt"
	"log"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `envPrefix:"TEMPTOKENS_DB_" yaml:"database"`
	Log      LogConfig      `envPrefix:"TEMPTOKENS_LOG_" yaml:"log"`
	Tokens   TokensConfig   `envPrefix:"TEMPTOKENS_" yaml:"tokens"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite" yaml:"driver"`
	DSN         string `env:"DSN" envDefault:"file::memory:?cache=shared" yaml:"dsn"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true" yaml:"auto_migrate"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info" yaml:"level"`
	Format string `env:"FORMAT" envDefault:"json" yaml:"format"`
	Output string `env:"OUTPUT" envDefault:"stdout" yaml:"output"`
}

// TokensConfig carries the token engine settings. TableName overrides the
// storage location, DefaultTokenLength controls random numeric generation
// and PruneExpiredAfterHours is the retention window for expired records.
type TokensConfig struct {
	TableName              string `env:"TABLE_NAME" envDefault:"temporary_tokens" yaml:"table_name"`
	DefaultTokenLength     int    `env:"DEFAULT_TOKEN_LENGTH" envDefault:"6" yaml:"default_token_length"`
	PruneExpiredAfterHours int    `env:"PRUNE_EXPIRED_AFTER_HOURS" envDefault:"24" yaml:"prune_expired_after_hours"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	return env.Parse(cfg)
}

// LoadConfigFile parses environment variables first, then overlays values
// from a YAML file so file-based deployments can override the environment.
func LoadConfigFile(cfg any, path string) error {
	if err := env.Parse(cfg); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}
