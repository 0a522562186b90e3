package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opcc-pilot/complaint-intake/internal/complaint"
	"github.com/opcc-pilot/complaint-intake/internal/log"
)

func testRecord() *complaint.Record {
	rec := complaint.New()
	rec.ApplyPatch(map[string]any{
		"complainantName": "Alex Chen",
		"emailAddress":    "alex@example.com",
	})
	return rec
}

func newTestSender(t *testing.T, handler http.HandlerFunc) *SendGrid {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewSendGrid(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "noreply@opcc.bc.ca",
		BaseURL:   srv.URL,
		Logger:    log.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewSendGrid: %v", err)
	}
	return s
}

func TestSendGrid_Send(t *testing.T) {
	var got sgMail
	var auth string
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	})

	if err := s.Send(context.Background(), testRecord()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if auth != "Bearer test-key" {
		t.Errorf("authorization = %q", auth)
	}
	if got.Subject != Subject {
		t.Errorf("subject = %q", got.Subject)
	}
	if len(got.Personalizations) != 1 || got.Personalizations[0].To[0].Email != "alex@example.com" {
		t.Errorf("recipient = %+v", got.Personalizations)
	}
	if got.From.Email != "noreply@opcc.bc.ca" {
		t.Errorf("from = %q", got.From.Email)
	}
	if len(got.Content) != 1 || got.Content[0].Type != "text/html" {
		t.Fatalf("content = %+v", got.Content)
	}
	if !strings.Contains(got.Content[0].Value, "Alex Chen") {
		t.Error("rendered report missing record content")
	}
}

func TestSendGrid_Rejected(t *testing.T) {
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := s.Send(context.Background(), testRecord())
	if !errors.Is(err, ErrRejected) {
		t.Errorf("err = %v, want ErrRejected", err)
	}
}

func TestSendGrid_MissingRecipient(t *testing.T) {
	called := false
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	err := s.Send(context.Background(), complaint.New())
	if !errors.Is(err, ErrMissingRecipient) {
		t.Errorf("err = %v, want ErrMissingRecipient", err)
	}
	if called {
		t.Error("no network call should happen without a recipient")
	}
}

func TestNewSendGrid_Validation(t *testing.T) {
	if _, err := NewSendGrid(SendGridConfig{FromEmail: "x@y.z", Logger: log.NewNop()}); err == nil {
		t.Error("missing api key should fail")
	}
	if _, err := NewSendGrid(SendGridConfig{APIKey: "k", Logger: log.NewNop()}); err == nil {
		t.Error("missing from email should fail")
	}
	if _, err := NewSendGrid(SendGridConfig{APIKey: "k", FromEmail: "x@y.z"}); err == nil {
		t.Error("missing logger should fail")
	}
}
