package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/opcc-pilot/complaint-intake/internal/intake"
)

// Cookie configuration.
const (
	sessionCookieName = "intake_session"
	cookieMaxAge      = 30 * 24 * 3600 // 30 days in seconds
)

// sessionManager maps intake_session cookies to live sessions.
//
// Sessions are cached in memory once resolved; unknown IDs are hydrated from
// the state store so an interview survives server restarts. A missing or
// malformed cookie gets a fresh session and a new cookie transparently.
type sessionManager struct {
	orch   *intake.Orchestrator
	isDev  bool
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*intake.Session
}

func newSessionManager(orch *intake.Orchestrator, isDev bool, logger *slog.Logger) *sessionManager {
	return &sessionManager{
		orch:     orch,
		isDev:    isDev,
		logger:   logger,
		sessions: make(map[uuid.UUID]*intake.Session),
	}
}

// session resolves the caller's session, creating one when needed and
// refreshing the cookie.
func (sm *sessionManager) session(ctx context.Context, w http.ResponseWriter, r *http.Request) *intake.Session {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return sm.resolve(ctx, id, w)
		}
		sm.logger.Debug("discarding malformed session cookie", "value", cookie.Value)
	}

	s := intake.NewSession()
	sm.mu.Lock()
	sm.sessions[s.ID()] = s
	sm.mu.Unlock()
	sm.setCookie(w, s.ID())
	return s
}

// resolve returns the cached session for id, hydrating from the store on
// first sight. The hydrated session is cached so all requests for one cookie
// share the same in-flight guard.
func (sm *sessionManager) resolve(ctx context.Context, id uuid.UUID, w http.ResponseWriter) *intake.Session {
	sm.mu.Lock()
	if s, ok := sm.sessions[id]; ok {
		sm.mu.Unlock()
		return s
	}
	sm.mu.Unlock()

	// Hydrate outside the lock; it may hit the store.
	s := sm.orch.Hydrate(ctx, id)

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if cached, ok := sm.sessions[id]; ok {
		// Lost the race to a concurrent request for the same cookie.
		return cached
	}
	sm.sessions[id] = s
	sm.setCookie(w, id)
	return s
}

// setCookie writes the session cookie.
// Secure is disabled in dev mode so plain HTTP works locally.
func (sm *sessionManager) setCookie(w http.ResponseWriter, id uuid.UUID) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id.String(),
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   !sm.isDev,
		SameSite: http.SameSiteLaxMode,
	})
}
