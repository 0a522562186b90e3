package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opcc-pilot/complaint-intake/internal/complaint"
	"github.com/opcc-pilot/complaint-intake/internal/log"
)

// Sender delivers the finished report. The outcome is binary: nil means the
// report reached the mail provider, any error means it did not.
type Sender interface {
	Send(ctx context.Context, rec *complaint.Record) error
}

// Delivery failure sentinels.
var (
	// ErrMissingRecipient indicates the record has no email address.
	// Returned before any network call.
	ErrMissingRecipient = errors.New("report: no recipient email address")

	// ErrRejected indicates the mail provider refused the request.
	ErrRejected = errors.New("report: delivery rejected")
)

const defaultSendGridURL = "https://api.sendgrid.com/v3/mail/send"

// SendGridConfig configures the SendGrid mail sender.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	// BaseURL overrides the SendGrid endpoint, for tests.
	BaseURL string
	Timeout time.Duration
	Logger  log.Logger
}

func (c *SendGridConfig) validate() error {
	if c.APIKey == "" {
		return errors.New("sendgrid: api key is required")
	}
	if c.FromEmail == "" {
		return errors.New("sendgrid: from email is required")
	}
	if c.Logger == nil {
		return errors.New("sendgrid: logger is required")
	}
	return nil
}

// SendGrid delivers reports through the SendGrid v3 mail API.
type SendGrid struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
	logger  log.Logger
}

// NewSendGrid creates a SendGrid sender.
func NewSendGrid(cfg SendGridConfig) (*SendGrid, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultSendGridURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SendGrid{
		apiKey:  cfg.APIKey,
		from:    cfg.FromEmail,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  cfg.Logger,
	}, nil
}

type sgAddress struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// Send renders the report for the record and mails it to the record's email
// address.
func (s *SendGrid) Send(ctx context.Context, rec *complaint.Record) error {
	if rec == nil || rec.EmailAddress == "" {
		return ErrMissingRecipient
	}

	html, err := Render(rec, time.Now())
	if err != nil {
		return err
	}

	payload := sgMail{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: rec.EmailAddress}}}},
		From:             sgAddress{Email: s.from},
		Subject:          Subject,
		Content:          []sgContent{{Type: "text/html", Value: html}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending report email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		s.logger.Warn("sendgrid rejected report",
			"status", resp.StatusCode,
			"detail", string(detail),
		)
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	s.logger.Info("report emailed", "to", rec.EmailAddress)
	return nil
}
