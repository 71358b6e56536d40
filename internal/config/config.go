// Package config loads application configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable. Nested keys use "__".
const EnvPrefix = "ALERTY_"

// Settings backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Log           LogConfig           `koanf:"log"`
	CORS          CORSConfig          `koanf:"cors"`
	Classifier    ClassifierConfig    `koanf:"classifier"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Toast         ToastConfig         `koanf:"toast"`
	Settings      SettingsConfig      `koanf:"settings"`
	Database      DatabaseConfig      `koanf:"database"`
	Credentials   CredentialsConfig   `koanf:"credentials"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// ClassifierConfig holds remote classifier settings.
// An empty APIKey falls back to the keyring, then to local classification.
type ClassifierConfig struct {
	APIKey    string `koanf:"api_key"`
	Model     string `koanf:"model"`
	BaseURL   string `koanf:"base_url"`
	MaxTokens int64  `koanf:"max_tokens"`
	Language  string `koanf:"language"`
}

// NotificationsConfig holds dispatcher and platform settings.
type NotificationsConfig struct {
	Supported         bool          `koanf:"supported"`
	PermissionTimeout time.Duration `koanf:"permission_timeout"`
	KeepAlive         time.Duration `koanf:"keep_alive"`
	BufferSize        int           `koanf:"buffer_size"`
	IconURL           string        `koanf:"icon_url"`
	BadgeURL          string        `koanf:"badge_url"`
	Relay             RelayConfig   `koanf:"relay"`
}

// RelayConfig holds the background push relay settings. Empty URL disables it.
type RelayConfig struct {
	URL       string        `koanf:"url"`
	Token     string        `koanf:"token"`
	Source    string        `koanf:"source"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
}

// ToastConfig holds toast settings.
type ToastConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// SettingsConfig selects where notification settings persist.
type SettingsConfig struct {
	Backend    string `koanf:"backend"`
	SQLitePath string `koanf:"sqlite_path"`
}

// DatabaseConfig holds postgres settings, used by the postgres settings backend.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
}

// CredentialsConfig holds keyring settings.
type CredentialsConfig struct {
	Enabled      bool   `koanf:"enabled"`
	ServiceName  string `koanf:"service_name"`
	FileDir      string `koanf:"file_dir"`
	FilePassword string `koanf:"file_password"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      90 * time.Second,
			IdleTimeout:       120 * time.Second,
			RequestTimeout:    75 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Classifier: ClassifierConfig{
			Model:     "claude-haiku-4-5",
			MaxTokens: 256,
			Language:  "en",
		},
		Notifications: NotificationsConfig{
			Supported:         true,
			PermissionTimeout: 60 * time.Second,
			KeepAlive:         25 * time.Second,
			BufferSize:        16,
			Relay: RelayConfig{
				Source:    "alerty",
				Timeout:   10 * time.Second,
				RateLimit: 5,
			},
		},
		Toast: ToastConfig{
			TTL: 4 * time.Second,
		},
		Settings: SettingsConfig{
			Backend:    BackendSQLite,
			SQLitePath: "alerty.db",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectAttempts: 5,
			ConnectTimeout:  30 * time.Second,
		},
		Credentials: CredentialsConfig{
			Enabled:     true,
			ServiceName: "alerty",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps ALERTY_SERVER__METRICS_PORT to server.metrics_port.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is invalid", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is invalid", c.Log.Format))
	}
	switch c.Settings.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Settings.SQLitePath == "" {
			errs = append(errs, errors.New("settings.sqlite_path is required for the sqlite backend"))
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("settings.backend %q is invalid", c.Settings.Backend))
	}
	if c.Classifier.MaxTokens <= 0 {
		errs = append(errs, errors.New("classifier.max_tokens must be positive"))
	}
	if c.Notifications.Relay.RateLimit < 0 {
		errs = append(errs, errors.New("notifications.relay.rate_limit must not be negative"))
	}
	if c.Toast.TTL <= 0 {
		errs = append(errs, errors.New("toast.ttl must be positive"))
	}

	return errors.Join(errs...)
}
