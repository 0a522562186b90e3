// Package gemini implements the model client on the official Gemini SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/opcc-pilot/complaint-intake/internal/llm"
)

// DefaultModel is the Gemini model the interview runs on.
const DefaultModel = "gemini-2.5-flash"

// Config for the Gemini client.
type Config struct {
	// APIKey authenticates against the Gemini API. Required.
	APIKey string
	// Model overrides DefaultModel.
	Model string
	// SystemInstruction steers the interview. Sent with every call.
	SystemInstruction string
}

// Client calls the Gemini API and maps replies onto the conversation model.
type Client struct {
	genai  *genai.Client
	model  string
	system string
}

// New creates a Gemini client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{genai: gc, model: model, system: cfg.SystemInstruction}, nil
}

// Generate sends the full conversation and the tool registry, returning the
// model's reply turn verbatim.
func (c *Client) Generate(ctx context.Context, turns []*llm.Turn, tools []llm.Declaration) (*llm.Turn, error) {
	contents, err := toContents(turns)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Tools: toTools(tools),
	}
	if c.system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: c.system}},
		}
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Candidates) == 0 {
		return nil, llm.ErrMalformedReply
	}
	return fromContent(resp.Candidates[0].Content)
}

// classify maps SDK errors onto the protocol's sentinel errors so the retry
// layer can tell transient failures from fatal ones.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", llm.ErrUnauthorized, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", llm.ErrRateLimited, err)
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
		}
	}
	return fmt.Errorf("gemini: generate: %w", err)
}

var _ llm.Client = (*Client)(nil)
