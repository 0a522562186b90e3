package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/opcc-pilot/complaint-intake/internal/attachment"
	"github.com/opcc-pilot/complaint-intake/internal/llm"
	"github.com/opcc-pilot/complaint-intake/internal/report"
)

// exchangeDoneMsg carries the outcome of one submitted turn.
type exchangeDoneMsg struct {
	turns []*llm.Turn
	err   error
}

// startExchange submits the turn off the event loop. The returned command
// delivers exactly one exchangeDoneMsg.
func (t *TUI) startExchange(text string, att *attachment.Attachment) tea.Cmd {
	ctx, cancel := context.WithTimeout(t.ctx, exchangeTimeout)
	t.exchangeCancel = cancel

	orch, session := t.orch, t.session
	return func() tea.Msg {
		turns, err := orch.SubmitUserTurn(ctx, session, text, att)
		return exchangeDoneMsg{turns: turns, err: err}
	}
}

// handleAttach reads a local file and submits it as evidence. The rest of
// the command line after the path becomes the accompanying note.
func (t *TUI) handleAttach(rest string) (tea.Model, tea.Cmd) {
	if rest == "" {
		t.addMessage(Message{Role: roleError, Text: "Usage: /attach <path> [note]"})
		t.rebuildViewportContent()
		return t, nil
	}

	path, note, _ := strings.Cut(rest, " ")
	note = strings.TrimSpace(note)

	f, err := os.Open(path) // #nosec G304 -- the user names their own evidence file
	if err != nil {
		t.addMessage(Message{Role: roleError, Text: fmt.Sprintf("Cannot open %s: %v", path, err)})
		t.rebuildViewportContent()
		return t, nil
	}
	defer f.Close()

	att, err := attachment.Encode(filepath.Base(path), "", f, t.attLimit)
	if err != nil {
		if errors.Is(err, attachment.ErrTooLarge) {
			t.addMessage(Message{Role: roleError, Text: fmt.Sprintf("%s exceeds the attachment size limit", path)})
			t.rebuildViewportContent()
			return t, nil
		}
		// The file exists but could not be read; the interview records the
		// apology turn just like the web client would.
		t.state = StateThinking
		t.rebuildViewportContent()
		return t, t.startAttachmentFailure()
	}

	display := "[attachment: " + att.Name + "]"
	if note != "" {
		display = note + "\n" + display
	}
	t.addMessage(Message{Role: roleUser, Text: display})
	t.state = StateThinking
	t.rebuildViewportContent()
	t.viewport.GotoBottom()

	return t, tea.Batch(
		t.spinner.Tick,
		t.startExchange(note, att),
	)
}

// startAttachmentFailure records the unreadable-attachment apology turn.
func (t *TUI) startAttachmentFailure() tea.Cmd {
	ctx, cancel := context.WithTimeout(t.ctx, exchangeTimeout)
	t.exchangeCancel = cancel

	orch, session := t.orch, t.session
	return func() tea.Msg {
		turns, err := orch.NoteAttachmentFailure(ctx, session)
		return exchangeDoneMsg{turns: turns, err: err}
	}
}

// handleReport renders the complaint report and writes it next to the user.
func (t *TUI) handleReport(rest string) {
	rec := t.session.Record()
	if rec.IsEmpty() {
		t.addMessage(Message{Role: roleError, Text: "No complaint details have been recorded yet."})
		return
	}

	path := rest
	if path == "" {
		path = "complaint-report.html"
	}

	html, err := report.Render(rec, time.Now())
	if err != nil {
		t.addMessage(Message{Role: roleError, Text: "Rendering report failed: " + err.Error()})
		return
	}
	if err := os.WriteFile(path, []byte(html), 0o600); err != nil {
		t.addMessage(Message{Role: roleError, Text: "Writing report failed: " + err.Error()})
		return
	}
	t.addMessage(Message{Role: roleSystem, Text: "Report saved to " + path})
}
