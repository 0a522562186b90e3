// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.intake/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Model: Gemini model selection and call limits
//   - Delivery: SendGrid report delivery
//   - State: session persistence backend (file or postgres)
//   - Serve: HTTP listener, CORS, proxy trust
//   - Tracing: OTLP exporter endpoint and service tags
//
// Security: Sensitive data (API keys, passwords) are never logged; the config
// directory uses 0750 permissions.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingGeminiKey indicates the Gemini API key is missing.
	ErrMissingGeminiKey = errors.New("missing Gemini API key")

	// ErrMissingSendGridKey indicates the SendGrid API key is missing.
	ErrMissingSendGridKey = errors.New("missing SendGrid API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidFromEmail indicates the report sender address is invalid.
	ErrInvalidFromEmail = errors.New("invalid sender email")

	// ErrInvalidRoundTrips indicates the model round-trip limit is out of range.
	ErrInvalidRoundTrips = errors.New("invalid max round trips")

	// ErrInvalidAttachmentLimit indicates the attachment size limit is out of range.
	ErrInvalidAttachmentLimit = errors.New("invalid attachment size limit")

	// ErrInvalidStateBackend indicates the state backend is not supported.
	ErrInvalidStateBackend = errors.New("invalid state backend")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")
)

// State backend identifiers used in Config.StateBackend.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// Model configuration
	ModelName     string `mapstructure:"model_name" json:"model_name"` // Gemini model identifier (e.g. "gemini-2.5-flash")
	GeminiAPIKey  string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	MaxRoundTrips int    `mapstructure:"max_round_trips" json:"max_round_trips"`

	// Report delivery configuration
	SendGridAPIKey string `mapstructure:"sendgrid_api_key" json:"sendgrid_api_key"` // SENSITIVE: masked in MarshalJSON
	FromEmail      string `mapstructure:"from_email" json:"from_email"`

	// Attachment limits
	MaxAttachmentBytes int64 `mapstructure:"max_attachment_bytes" json:"max_attachment_bytes"`

	// State persistence configuration
	StateBackend string `mapstructure:"state_backend" json:"state_backend"` // "file" (default) or "postgres"
	DataDir      string `mapstructure:"data_dir" json:"data_dir"`           // file backend session directory

	// PostgreSQL configuration (only used when state_backend is "postgres")
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Serve mode configuration
	Addr        string   `mapstructure:"addr" json:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For headers (set true behind reverse proxy)

	// Observability configuration (see tracing.go for type definition)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".intake")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	// Model defaults
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("max_round_trips", 8)

	// Delivery defaults
	viper.SetDefault("from_email", "no-reply@opcc.bc.ca")

	// Attachment defaults (2 MiB, matching the upload form limit)
	viper.SetDefault("max_attachment_bytes", 2<<20)

	// State defaults
	viper.SetDefault("state_backend", BackendFile)
	viper.SetDefault("data_dir", filepath.Join(configDir, "sessions"))

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "intake")
	viper.SetDefault("postgres_db_name", "intake")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Serve defaults
	viper.SetDefault("addr", "localhost:8080")
	viper.SetDefault("cors_origins", []string{"http://localhost:4200"})
	viper.SetDefault("trust_proxy", false)

	// Tracing defaults
	viper.SetDefault("tracing.endpoint", "localhost:4318")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "complaint-intake")
}

// bindEnvVariables binds environment variables explicitly.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Secrets
	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("sendgrid_api_key", "SENDGRID_API_KEY")

	// Serve mode overrides
	mustBind("addr", "INTAKE_ADDR")
	mustBind("cors_origins", "INTAKE_CORS_ORIGINS")
	mustBind("trust_proxy", "INTAKE_TRUST_PROXY")

	// Model and delivery overrides
	mustBind("model_name", "INTAKE_MODEL_NAME")
	mustBind("from_email", "INTAKE_FROM_EMAIL")
	mustBind("state_backend", "INTAKE_STATE_BACKEND")

	// Tracing endpoint override
	mustBind("tracing.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	// NOTE: DATABASE_URL is parsed separately in parseDatabaseURL because it
	// expands into several postgres_* fields.
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring matching against the real secret.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Shows first 2 and last 2 characters, masks the rest.
// SECURITY: For secrets <=8 chars, fully masks to prevent substring attacks.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - GeminiAPIKey
//   - SendGridAPIKey
//   - PostgresPassword
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.SendGridAPIKey = maskSecret(a.SendGridAPIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
