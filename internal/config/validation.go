package config

import (
	"fmt"
	"net/mail"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. API key validation (required for every model call)
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingGeminiKey)
	}

	// 2. Model configuration validation
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	if c.MaxRoundTrips < 1 || c.MaxRoundTrips > 64 {
		return fmt.Errorf("%w: must be between 1 and 64, got %d", ErrInvalidRoundTrips, c.MaxRoundTrips)
	}

	// 3. Delivery validation. The SendGrid key is required because the
	// interview cannot complete without emailing the report.
	if c.SendGridAPIKey == "" {
		return fmt.Errorf("%w: SENDGRID_API_KEY environment variable is required",
			ErrMissingSendGridKey)
	}

	if _, err := mail.ParseAddress(c.FromEmail); err != nil {
		return fmt.Errorf("%w: %q is not a valid address: %v", ErrInvalidFromEmail, c.FromEmail, err)
	}

	// 4. Attachment limit validation (1 KiB to 32 MiB)
	if c.MaxAttachmentBytes < 1<<10 || c.MaxAttachmentBytes > 32<<20 {
		return fmt.Errorf("%w: must be between 1 KiB and 32 MiB, got %d",
			ErrInvalidAttachmentLimit, c.MaxAttachmentBytes)
	}

	// 5. State backend validation
	switch c.StateBackend {
	case BackendFile:
		// DataDir may be anything writable; created lazily by the store.
	case BackendPostgres:
		if err := c.validatePostgres(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q is not valid, must be %q or %q",
			ErrInvalidStateBackend, c.StateBackend, BackendFile, BackendPostgres)
	}

	return nil
}

func (c *Config) validatePostgres() error {
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable)
	// Reference: https://www.postgresql.org/docs/current/libpq-ssl.html
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("invalid postgres_ssl_mode: %q is not valid, must be one of: %v",
			c.PostgresSSLMode, validSSLModes)
	}

	return nil
}
