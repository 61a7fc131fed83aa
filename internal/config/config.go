package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const envPrefix = "FACEID_"

type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Auth     AuthConfig     `yaml:"auth" envPrefix:"AUTH_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`
	NATS     NATSConfig     `yaml:"nats" envPrefix:"NATS_"`
	MinIO    MinIOConfig    `yaml:"minio" envPrefix:"MINIO_"`
	Matching MatchingConfig `yaml:"matching" envPrefix:"MATCHING_"`
	Worker   WorkerConfig   `yaml:"worker" envPrefix:"WORKER_"`
	Logging  LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
}

type ServerConfig struct {
	Port           int           `yaml:"port" env:"PORT"`
	APIKey         string        `yaml:"api_key" env:"API_KEY"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	BcryptCost int           `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DRIVER"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Name     string `yaml:"name" env:"NAME"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	MaxConns int    `yaml:"max_conns" env:"MAX_CONNS"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	URL     string `yaml:"url" env:"URL"`
}

type MinIOConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"BUCKET"`
	UseSSL    bool   `yaml:"use_ssl" env:"USE_SSL"`
}

type MatchingConfig struct {
	Threshold    float64       `yaml:"threshold" env:"THRESHOLD"`
	Dimension    int           `yaml:"dimension" env:"DIMENSION"`
	StoreTimeout time.Duration `yaml:"store_timeout" env:"STORE_TIMEOUT"`
	BatchWorkers int           `yaml:"batch_workers" env:"BATCH_WORKERS"`
}

// WorkerConfig drives the reconciliation worker.
type WorkerConfig struct {
	Consumers   int `yaml:"consumers" env:"CONSUMERS"`
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Load starts from Default, overlays the YAML file and then FACEID_*
// environment variables. Only keys that are present override a default, so an
// explicit zero such as `matching.dimension: 0` is kept. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Matching.Threshold < -1 || c.Matching.Threshold > 1 {
		return fmt.Errorf("matching threshold %v outside [-1, 1]", c.Matching.Threshold)
	}
	if c.Matching.Dimension < 0 {
		return errors.New("matching dimension must not be negative")
	}
	if c.Matching.StoreTimeout <= 0 {
		return errors.New("matching store_timeout must be positive")
	}
	if c.Matching.BatchWorkers <= 0 {
		return errors.New("matching batch_workers must be positive")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth token_ttl must be positive")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	return nil
}

// Default returns the configuration used for every key the file and the
// environment leave out.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			RequestTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL:   3 * time.Hour,
			BcryptCost: 10,
		},
		Database: DatabaseConfig{
			Driver:   DriverPostgres,
			Port:     5432,
			MaxConns: 20,
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
		MinIO: MinIOConfig{
			Bucket: "avatars",
		},
		Matching: MatchingConfig{
			Threshold:    0.35,
			Dimension:    512,
			StoreTimeout: 5 * time.Second,
			BatchWorkers: 4,
		},
		Worker: WorkerConfig{
			Consumers:   2,
			MetricsPort: 8082,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
