package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrUnknownTokenStore   = errors.New("unknown token store driver (expected 'file', 'memory' or 'postgres')")
	ErrMissingPostgresDSN  = errors.New("the postgres token store requires FLEETDASH_POSTGRES_DSN")
	ErrInvalidPollInterval = errors.New("poll intervals must be positive")
)

// Token store drivers selectable using FLEETDASH_TOKEN_STORE
const (
	TokenStoreFile     = "file"
	TokenStoreMemory   = "memory"
	TokenStorePostgres = "postgres"
)

// Config represents the application configuration structure
type Config struct {
	Environment string `default:"prod"`

	// APIBaseURL is the base address every backend path (/auth/..., /api/...) is resolved against
	APIBaseURL         string        `split_words:"true" default:"http://127.0.0.1:8001"`
	RequestTimeout     time.Duration `split_words:"true" default:"30s"`
	RequestsPerSecond  float64       `split_words:"true" default:"0"`
	AutoRefreshSession bool          `split_words:"true" default:"false"`

	TokenStore     string `split_words:"true" default:"file"`
	TokenStoreFile string `split_words:"true"`
	TokenStoreKey  string `split_words:"true" default:"auth_token"`
	PostgresDSN    string `envconfig:"POSTGRES_DSN"`

	PollStatusInterval       time.Duration `split_words:"true" default:"5s"`
	PollEmulatorsInterval    time.Duration `split_words:"true" default:"3s"`
	PollWorkstationsInterval time.Duration `split_words:"true" default:"10s"`
	PollOperationsInterval   time.Duration `split_words:"true" default:"3s"`
	CacheLifetime            time.Duration `split_words:"true" default:"30s"`

	ListenAddress          string        `split_words:"true" default:"127.0.0.1:8080"`
	AllowedOrigin          string        `split_words:"true"`
	BrowserSessionLifetime time.Duration `split_words:"true" default:"12h"`
}

// IsEnvProduction returns whether the application runs in production mode
func (config *Config) IsEnvProduction() bool {
	return strings.ToLower(config.Environment) == "prod"
}

// TokenFilePath returns the path of the file token store.
// If none was configured, a file inside the user's configuration directory is used.
func (config *Config) TokenFilePath() string {
	if config.TokenStoreFile != "" {
		return config.TokenStoreFile
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "fleetdash-session.json"
	}
	return filepath.Join(dir, "fleetdash", "session.json")
}

// Validate checks the configuration for combinations envconfig cannot express
func (config *Config) Validate() error {
	switch config.TokenStore {
	case TokenStoreFile, TokenStoreMemory:
	case TokenStorePostgres:
		if config.PostgresDSN == "" {
			return ErrMissingPostgresDSN
		}
	default:
		return ErrUnknownTokenStore
	}
	for _, interval := range []time.Duration{
		config.PollStatusInterval,
		config.PollEmulatorsInterval,
		config.PollWorkstationsInterval,
		config.PollOperationsInterval,
	} {
		if interval <= 0 {
			return ErrInvalidPollInterval
		}
	}
	return nil
}

// LoadFromEnv loads a new configuration structure using environment variables and an optional .env file
func LoadFromEnv() (*Config, error) {
	// Load a .env file if it exists
	_ = godotenv.Overload()

	// Load a new configuration structure using environment variables
	config := new(Config)
	if err := envconfig.Process("fleetdash", config); err != nil {
		return nil, err
	}
	config.APIBaseURL = strings.TrimRight(config.APIBaseURL, "/")
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
