package llm

import (
	"context"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
)

// Declaration describes a tool the model may invoke.
type Declaration struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

// Client generates a single model turn from the full conversation so far.
// Implementations return the model's reply verbatim, including any
// function-call parts; they never dispatch tools themselves.
type Client interface {
	Generate(ctx context.Context, turns []*Turn, tools []Declaration) (*Turn, error)
}

// Sentinel errors used to classify model-call failures for retry decisions.
var (
	// ErrUnauthorized indicates a rejected API key. Not retryable.
	ErrUnauthorized = errors.New("llm: unauthorized")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("llm: rate limited")

	// ErrUnavailable indicates a transient provider-side failure.
	ErrUnavailable = errors.New("llm: service unavailable")

	// ErrMalformedReply indicates a response that could not be interpreted
	// as a single model turn.
	ErrMalformedReply = errors.New("llm: malformed reply")
)
