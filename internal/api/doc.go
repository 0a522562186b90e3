// Package api provides the JSON REST API server for the complaint intake
// service.
//
// # Architecture
//
// The server uses Go 1.22+ routing with a layered middleware stack:
//
//	Recovery → RequestID → Logging → CORS → RateLimit → Routes
//
// Health probes bypass the middleware stack via a top-level mux, ensuring
// they remain fast and unauthenticated.
//
// # Endpoints
//
// Health probe (no middleware):
//   - GET /health — returns {"status":"ok"}
//
// Intake (cookie-scoped):
//   - POST /api/v1/intake/turns  — submit a user turn (multipart: text + optional attachment)
//   - GET  /api/v1/intake        — conversation snapshot (turns, record, flags)
//   - POST /api/v1/intake/reset  — discard the conversation and start over
//   - GET  /api/v1/intake/report — download the complaint report as HTML
//
// # Session Model
//
// Each browser gets an intake_session cookie holding a UUID. The cookie
// scopes one interview: the conversation log and complaint record live
// under that ID and survive restarts through the state store. Unknown or
// missing cookies get a fresh session transparently.
//
// # Error Handling
//
// All responses use an envelope format:
//
//	Success: handler-specific payload
//	Error:   {"error": {"code": "...", "message": "..."}}
//
// Interview-level failures (model errors, undeliverable email, unreadable
// attachments) are not HTTP errors: they surface as model-role turns in the
// conversation, and the HTTP layer reports them as a normal 200 exchange.
//
// # Security
//
// The middleware stack enforces:
//   - Per-IP rate limiting (token bucket)
//   - CORS with explicit origin allowlist
//   - Security headers (CSP, HSTS, X-Frame-Options, etc.)
//   - HttpOnly, Secure, SameSite=Lax session cookies
package api
