package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"

	"github.com/opcc-pilot/complaint-intake/internal/app"
	"github.com/opcc-pilot/complaint-intake/internal/config"
	"github.com/opcc-pilot/complaint-intake/internal/intake"
	"github.com/opcc-pilot/complaint-intake/internal/tui"
)

// runChat initializes and starts the interactive interview TUI.
func runChat() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	session := resumeOrCreateSession(ctx, a.Orchestrator)

	model, err := tui.New(ctx, a.Orchestrator, session, cfg.MaxAttachmentBytes)
	if err != nil {
		return fmt.Errorf("creating TUI: %w", err)
	}
	program := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err = program.Run(); err != nil {
		return fmt.Errorf("TUI exited: %w", err)
	}
	return nil
}

// resumeOrCreateSession picks up the last interview if one is on disk,
// otherwise starts a fresh session. The session ID is remembered so the next
// chat invocation continues where this one left off.
func resumeOrCreateSession(ctx context.Context, orch *intake.Orchestrator) *intake.Session {
	if id, err := loadCurrentSessionID(); err == nil && id != uuid.Nil {
		return orch.Hydrate(ctx, id)
	}

	session := intake.NewSession()
	if err := saveCurrentSessionID(session.ID()); err != nil {
		slog.Warn("saving session state failed", "error", err)
	}
	return session
}

// currentSessionPath is where the active interview's ID lives between runs.
func currentSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".intake", "current_session"), nil
}

func loadCurrentSessionID() (uuid.UUID, error) {
	path, err := currentSessionPath()
	if err != nil {
		return uuid.Nil, err
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is under the user's home
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return uuid.Nil, nil
		}
		return uuid.Nil, fmt.Errorf("reading session state: %w", err)
	}

	id, err := uuid.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing session state: %w", err)
	}
	return id, nil
}

func saveCurrentSessionID(id uuid.UUID) error {
	path, err := currentSessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id.String()+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}
	return nil
}
