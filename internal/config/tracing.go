package config

// TracingConfig holds OTLP tracing configuration.
//
// Traces are exported over OTLP/HTTP to a local collector or agent.
// See internal/observability/tracing.go for setup details.
type TracingConfig struct {
	// Endpoint is the OTLP/HTTP collector endpoint (default: localhost:4318)
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Environment is the deployment environment tag (default: dev)
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the service name attached to exported spans (default: complaint-intake)
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	// Enabled toggles trace export; when false spans stay in-process only
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}
