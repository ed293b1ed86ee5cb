package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinSecretLength is the minimum accepted length of AUTH_SECRET in bytes.
const MinSecretLength = 32

// Store backends.
const (
	BackendAuto     = "auto"
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config contains server configuration parameters.
type Config struct {
	Port      string     `env:"PORT" envDefault:"5000"`
	LogLevel  int        `env:"LOG_LEVEL" envDefault:"0"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text"`
	HTTP      HTTP       `envPrefix:"HTTP_"`
	Auth      Auth       `envPrefix:"AUTH_"`
	Lookup    Lookup     `envPrefix:"VT_"`
	Store     Store      `envPrefix:"STORE_"`
	GRPC      GRPCHealth `envPrefix:"GRPC_"`
}

// HTTP contains HTTP server parameters.
type HTTP struct {
	EnableHTTPS        bool     `env:"ENABLE_HTTPS" envDefault:"false"`
	CertFileName       string   `env:"CERT_FILE_NAME" envDefault:"cert.pem"`
	PrivateKeyFileName string   `env:"PRIVATE_KEY_FILE_NAME" envDefault:"key.pem"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	MaxBodyBytes       int64    `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

// Auth contains session token parameters.
type Auth struct {
	Secret string `env:"SECRET,required,notEmpty"`
}

// Lookup contains parameters of the remote threat-intel API.
type Lookup struct {
	APIKey      string        `env:"API_KEY"`
	BaseURL     string        `env:"BASE_URL" envDefault:"https://www.virustotal.com/api/v3"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"0s"`
	RequireAuth bool          `env:"REQUIRE_AUTH" envDefault:"true"`
}

// Store contains user store parameters.
type Store struct {
	Backend     string `env:"BACKEND" envDefault:"auto"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"users.db"`
	FilePath    string `env:"FILE_PATH" envDefault:"users.json"`
	LegacyPath  string `env:"LEGACY_PATH" envDefault:"users.json"`
	DatabaseDSN string `env:"DATABASE_DSN"`
}

// GRPCHealth contains parameters of the optional gRPC health server.
type GRPCHealth struct {
	HealthPort     string        `env:"HEALTH_PORT"`
	HealthInterval time.Duration `env:"HEALTH_INTERVAL" envDefault:"15s"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// NewStoreConfig loads only the STORE_ group. Used by tools that do not
// serve requests and so need no signing secret.
func NewStoreConfig() (*Store, error) {
	st := Store{}
	if err := env.ParseWithOptions(&st, env.Options{Prefix: "STORE_"}); err != nil {
		return nil, fmt.Errorf("failed to parse store config: %w", err)
	}

	if err := st.Validate(); err != nil {
		return nil, err
	}

	return &st, nil
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	if len(c.Auth.Secret) < MinSecretLength {
		return fmt.Errorf("AUTH_SECRET must be at least %d bytes", MinSecretLength)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return errors.New("HTTP_MAX_BODY_BYTES must be positive")
	}
	if c.Lookup.Timeout < 0 {
		return errors.New("VT_TIMEOUT must not be negative")
	}
	if c.GRPC.HealthPort != "" && c.GRPC.HealthInterval <= 0 {
		return errors.New("GRPC_HEALTH_INTERVAL must be positive when GRPC_HEALTH_PORT is set")
	}

	return c.Store.Validate()
}

// Validate checks the backend name and its required parameters.
func (s *Store) Validate() error {
	switch s.Backend {
	case BackendAuto, BackendSQLite, BackendFile:
		return nil
	case BackendPostgres:
		if s.DatabaseDSN == "" {
			return errors.New("STORE_DATABASE_DSN is required for the postgres backend")
		}
		return nil
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", s.Backend)
	}
}
