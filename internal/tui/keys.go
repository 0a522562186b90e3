package tui

import (
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// Slash command constants.
const (
	cmdHelp   = "/help"
	cmdAttach = "/attach"
	cmdNew    = "/new"
	cmdReport = "/report"
	cmdExit   = "/exit"
	cmdQuit   = "/quit"
)

const helpText = "Commands:\n" +
	"  /attach <path> [note]  send a file as evidence, with an optional note\n" +
	"  /report [path]         save the complaint report as HTML\n" +
	"  /new                   discard this conversation and start over\n" +
	"  /help                  show this help\n" +
	"  /exit                  leave the interview\n" +
	"Shortcuts:\n" +
	"  Enter: send message\n" +
	"  Shift+Enter: new line\n" +
	"  Ctrl+C: cancel/clear\n" +
	"  Ctrl+D: exit\n" +
	"  Up/Down: history\n" +
	"  PgUp/PgDn: scroll"

// keyMap holds key bindings for help bar display.
type keyMap struct {
	Submit     key.Binding
	NewLine    key.Binding
	History    key.Binding
	Cancel     key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	EscCancel  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		NewLine:    key.NewBinding(key.WithKeys("shift+enter"), key.WithHelp("s+enter", "newline")),
		History:    key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "history")),
		Cancel:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "cancel")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "exit")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		EscCancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

func (t *TUI) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c':
			return t.handleCtrlC()
		case 'd':
			cmd := t.cleanup()
			return t, cmd
		}
	}

	switch k.Code {
	case tea.KeyEnter:
		if t.state == StateInput {
			// Enter without Shift = submit
			// Shift+Enter = newline (pass through to textarea)
			if k.Mod&tea.ModShift == 0 {
				return t.handleSubmit()
			}
		}

	case tea.KeyUp:
		// Up at first line navigates history, otherwise pass to textarea
		if t.state == StateInput && t.input.Line() == 0 {
			return t.navigateHistory(-1)
		}

	case tea.KeyDown:
		// Down at last line navigates history, otherwise pass to textarea
		if t.state == StateInput && t.input.Line() == t.input.LineCount()-1 {
			return t.navigateHistory(1)
		}

	case tea.KeyEscape:
		if t.state == StateThinking {
			t.cancelExchange()
			return t, nil
		}

	case tea.KeyPgUp:
		t.viewport.PageUp()
		return t, nil

	case tea.KeyPgDown:
		t.viewport.PageDown()
		return t, nil
	}

	// Pass keys to textarea for typing - users can prepare the next message
	// while the exchange runs.
	var cmd tea.Cmd
	t.input, cmd = t.input.Update(msg)
	return t, cmd
}

func (t *TUI) handleCtrlC() (tea.Model, tea.Cmd) {
	now := time.Now()

	// Double Ctrl+C within 1 second = quit
	if now.Sub(t.lastCtrlC) < time.Second {
		cmd := t.cleanup()
		return t, cmd
	}
	t.lastCtrlC = now

	switch t.state {
	case StateInput:
		t.input.Reset()
		return t, nil

	case StateThinking:
		t.cancelExchange()
		return t, nil
	}

	return t, nil
}

func (t *TUI) handleSubmit() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(t.input.Value())
	if query == "" {
		return t, nil
	}

	if strings.HasPrefix(query, "/") {
		return t.handleSlashCommand(query)
	}
	t.confirmReset = false

	t.pushHistory(query)
	t.addMessage(Message{Role: roleUser, Text: query})
	t.input.Reset()
	t.state = StateThinking
	t.rebuildViewportContent()
	t.viewport.GotoBottom()

	return t, tea.Batch(
		t.spinner.Tick,
		t.startExchange(query, nil),
	)
}

func (t *TUI) handleSlashCommand(cmd string) (tea.Model, tea.Cmd) {
	t.pushHistory(cmd)
	t.input.Reset()

	name, rest, _ := strings.Cut(cmd, " ")
	if name != cmdNew {
		t.confirmReset = false
	}

	switch name {
	case cmdHelp:
		t.addMessage(Message{Role: roleSystem, Text: helpText})

	case cmdAttach:
		return t.handleAttach(strings.TrimSpace(rest))

	case cmdReport:
		t.handleReport(strings.TrimSpace(rest))

	case cmdNew:
		return t.handleNew()

	case cmdExit, cmdQuit:
		cleanupCmd := t.cleanup()
		return t, cleanupCmd

	default:
		t.addMessage(Message{Role: roleError, Text: "Unknown command: " + name})
	}
	t.rebuildViewportContent()
	t.viewport.GotoBottom()
	return t, nil
}

// handleNew resets the interview after a confirmation round trip: the first
// /new asks, the second one within the same prompt session resets.
func (t *TUI) handleNew() (tea.Model, tea.Cmd) {
	if !t.confirmReset {
		t.confirmReset = true
		t.addMessage(Message{
			Role: roleSystem,
			Text: "This discards the whole conversation and the recorded details. Type /new again to confirm.",
		})
		t.rebuildViewportContent()
		t.viewport.GotoBottom()
		return t, nil
	}
	t.confirmReset = false

	if err := t.orch.Reset(t.ctx, t.session); err != nil {
		t.addMessage(Message{Role: roleError, Text: err.Error()})
		t.rebuildViewportContent()
		return t, nil
	}

	t.messages = nil
	t.appendTurns(t.session.Turns())
	t.rebuildViewportContent()
	t.viewport.GotoTop()
	return t, nil
}

func (t *TUI) pushHistory(entry string) {
	t.history = append(t.history, entry)
	if len(t.history) > maxHistory {
		t.history = t.history[len(t.history)-maxHistory:]
	}
	t.historyIdx = len(t.history)
}

func (t *TUI) navigateHistory(delta int) (tea.Model, tea.Cmd) {
	if len(t.history) == 0 {
		return t, nil
	}

	t.historyIdx += delta

	if t.historyIdx < 0 {
		t.historyIdx = 0
	}
	if t.historyIdx > len(t.history) {
		t.historyIdx = len(t.history)
	}

	if t.historyIdx == len(t.history) {
		t.input.SetValue("")
	} else {
		t.input.SetValue(t.history[t.historyIdx])
		t.input.CursorEnd()
	}

	return t, nil
}

func (t *TUI) cancelExchange() {
	if t.exchangeCancel != nil {
		t.exchangeCancel()
		t.exchangeCancel = nil
	}
}

// cleanup cancels any active exchange and returns the quit command.
func (t *TUI) cleanup() tea.Cmd {
	// Cancel main context first - this triggers all goroutines using t.ctx
	if t.ctxCancel != nil {
		t.ctxCancel()
		t.ctxCancel = nil
	}

	// Then cancel the exchange context (may already be canceled via parent)
	t.cancelExchange()

	return tea.Quit
}
