package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/opcc-pilot/complaint-intake/internal/attachment"
	"github.com/opcc-pilot/complaint-intake/internal/intake"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       *slog.Logger
	Orchestrator *intake.Orchestrator // Required
	CORSOrigins  []string             // Allowed origins for CORS
	IsDev        bool                 // Enables HTTP cookies (no Secure flag)
	TrustProxy   bool                 // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst    int                  // Rate limiter burst size per IP (0 = default 60)
	MaxBytes     int64                // Attachment size limit (0 = attachment.DefaultMaxBytes)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = attachment.DefaultMaxBytes
	}

	sm := newSessionManager(cfg.Orchestrator, cfg.IsDev, logger)
	ih := &intakeHandler{
		orch:     cfg.Orchestrator,
		sessions: sm,
		maxBytes: maxBytes,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/intake/turns", ih.submitTurn)
	mux.HandleFunc("GET /api/v1/intake", ih.snapshot)
	mux.HandleFunc("POST /api/v1/intake/reset", ih.reset)
	mux.HandleFunc("GET /api/v1/intake/report", ih.downloadReport)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log attributes.
	// CORS must be before RateLimit so preflight OPTIONS gets proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Wrap with security headers
	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Use a top-level mux to separate health probes from middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
