package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mediscan-triage-server/internal/domain"
)

// EnvPrefix is prepended to every environment override, e.g.
// MEDISCAN_SERVER_PORT.
const EnvPrefix = "MEDISCAN"

// Options controls where the manager looks for configuration.
type Options struct {
	// ConfigFile is an explicit config file path. When empty the manager
	// searches ConfigPaths for config.yaml.
	ConfigFile  string
	ConfigPaths []string
	// EnvFiles are loaded into the process environment before viper reads
	// it. Missing files are skipped. Variables already set are kept.
	EnvFiles []string
}

// DefaultOptions returns the standard search locations.
func DefaultOptions() Options {
	return Options{
		ConfigPaths: []string{".", "./config", "/etc/mediscan-triage/"},
		EnvFiles:    []string{".env"},
	}
}

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	opts   Options
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a configuration manager with the default options
func NewManager() (*Manager, error) {
	return NewManagerWithOptions(DefaultOptions())
}

// NewManagerWithOptions creates a configuration manager
func NewManagerWithOptions(opts Options) (*Manager, error) {
	m := &Manager{opts: opts}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from .env files, the config file and the
// environment, in increasing order of precedence
func (m *Manager) loadConfig() error {
	if err := loadEnvFiles(m.opts.EnvFiles); err != nil {
		return err
	}

	v := viper.New()

	if m.opts.ConfigFile != "" {
		v.SetConfigFile(m.opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range m.opts.ConfigPaths {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

func loadEnvFiles(paths []string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("error loading env file %s: %w", path, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.version", "1.0.0")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.filename", "")

	// Catalog defaults (empty path selects the built-in catalog)
	v.SetDefault("catalog.path", "")

	// CORS defaults match the web frontend's dev servers
	v.SetDefault("cors.allowed_origins", []string{
		"http://localhost:5173",
		"http://127.0.0.1:5173",
		"http://localhost:5000",
		"http://127.0.0.1:5000",
	})
	v.SetDefault("cors.allow_credentials", true)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 5.0)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("rate_limit.max_clients", 10000)

	// Upload defaults
	v.SetDefault("upload.max_bytes", 20<<20)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetLoggingConfig returns logging configuration
func (m *Manager) GetLoggingConfig() *domain.LoggingConfig {
	return &m.config.Logging
}

// ConfigFileUsed returns the config file that was read, or "".
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.ReadTimeout < 0 || config.Server.WriteTimeout < 0 || config.Server.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	switch strings.ToLower(config.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	if config.RateLimit.Enabled {
		if config.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limit.requests_per_second must be positive")
		}
		if config.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate_limit.burst must be positive")
		}
		if config.RateLimit.MaxClients <= 0 {
			return fmt.Errorf("rate_limit.max_clients must be positive")
		}
	}

	if config.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}

	if config.Metrics.Enabled && !strings.HasPrefix(config.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/': %q", config.Metrics.Path)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
