package intake

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/opcc-pilot/complaint-intake/internal/llm"
	"github.com/opcc-pilot/complaint-intake/internal/log"
	"github.com/opcc-pilot/complaint-intake/internal/state"
	"github.com/opcc-pilot/complaint-intake/internal/testutil"
)

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited sentinel", fmt.Errorf("call: %w", llm.ErrRateLimited), true},
		{"unavailable sentinel", llm.ErrUnavailable, true},
		{"unauthorized sentinel", fmt.Errorf("call: %w", llm.ErrUnauthorized), false},
		{"malformed reply", llm.ErrMalformedReply, false},
		{"deadline", context.DeadlineExceeded, true},
		{"rate limit pattern", errors.New("429 Too Many Requests"), true},
		{"server error pattern", errors.New("HTTP 503 Service Unavailable"), true},
		{"network pattern", errors.New("read tcp: connection reset by peer"), true},
		{"plain failure", errors.New("invalid argument"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCallModel_RetriesTransientThenSucceeds(t *testing.T) {
	model := testutil.NewScriptedModel()
	model.EnqueueError(llm.ErrUnavailable)
	model.EnqueueError(llm.ErrRateLimited)
	model.EnqueueText("recovered")

	o := newRetryOrchestrator(t, model, 3)

	reply, err := o.callModel(context.Background(), []*llm.Turn{llm.NewModelTurn(Greeting)})
	if err != nil {
		t.Fatalf("callModel: %v", err)
	}
	if reply.Text() != "recovered" {
		t.Errorf("reply = %q", reply.Text())
	}
	if got := len(model.Calls()); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestCallModel_FailsFastOnFatal(t *testing.T) {
	model := testutil.NewScriptedModel()
	model.EnqueueError(llm.ErrUnauthorized)

	o := newRetryOrchestrator(t, model, 3)

	_, err := o.callModel(context.Background(), []*llm.Turn{llm.NewModelTurn(Greeting)})
	if !errors.Is(err, llm.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if got := len(model.Calls()); got != 1 {
		t.Errorf("attempts = %d, fatal errors must not retry", got)
	}
}

func TestCallModel_ExhaustsRetries(t *testing.T) {
	model := testutil.NewScriptedModel()
	for range 4 {
		model.EnqueueError(llm.ErrUnavailable)
	}

	o := newRetryOrchestrator(t, model, 3)

	_, err := o.callModel(context.Background(), []*llm.Turn{llm.NewModelTurn(Greeting)})
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if got := len(model.Calls()); got != 4 {
		t.Errorf("attempts = %d, want initial + 3 retries", got)
	}
}

func newRetryOrchestrator(t *testing.T, model llm.Client, maxRetries int) *Orchestrator {
	t.Helper()
	store, err := state.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	o, err := New(Config{
		Model:  model,
		Mailer: &mailerStub{},
		Store:  store,
		Logger: log.NewNop(),
		Retry: RetryConfig{
			MaxRetries:      maxRetries,
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return o
}
