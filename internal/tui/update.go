package tui

import (
	"context"
	"errors"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/opcc-pilot/complaint-intake/internal/intake"
	"github.com/opcc-pilot/complaint-intake/internal/llm"
)

// Update implements tea.Model.
func (t *TUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return t.handleKey(msg)

	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height

		// Viewport height: total - input - separators - help
		inputHeight := t.input.Height() + promptLines
		fixedHeight := separatorLines + inputHeight + helpLines
		vpHeight := max(msg.Height-fixedHeight, minViewport)

		t.viewport.SetWidth(msg.Width)
		t.viewport.SetHeight(vpHeight)
		t.input.SetWidth(msg.Width - 4) // Room for "> " prompt
		t.help.SetWidth(msg.Width)
		t.markdown.UpdateWidth(msg.Width)

		t.rebuildViewportContent()
		return t, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		return t, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		t.spinner, cmd = t.spinner.Update(msg)
		if t.state == StateThinking {
			t.rebuildViewportContent()
		}
		return t, cmd

	case exchangeDoneMsg:
		return t.handleExchangeDone(msg)
	}

	var cmd tea.Cmd
	t.input, cmd = t.input.Update(msg)
	return t, cmd
}

func (t *TUI) handleExchangeDone(msg exchangeDoneMsg) (tea.Model, tea.Cmd) {
	t.state = StateInput

	// Release the exchange timer.
	if t.exchangeCancel != nil {
		t.exchangeCancel()
		t.exchangeCancel = nil
	}

	if msg.err != nil {
		switch {
		case errors.Is(msg.err, context.Canceled):
			t.addMessage(Message{Role: roleSystem, Text: "(Canceled)"})
		case errors.Is(msg.err, intake.ErrFinalized):
			t.addMessage(Message{Role: roleSystem, Text: finalizedNotice})
		case errors.Is(msg.err, intake.ErrTurnInFlight):
			t.addMessage(Message{Role: roleError, Text: "Another turn is still being processed."})
		default:
			t.addMessage(Message{Role: roleError, Text: msg.err.Error()})
		}
	} else {
		// The user turn is already on screen; show what the model said.
		for _, turn := range msg.turns {
			if turn.Role == llm.RoleModel {
				if text := turn.Text(); text != "" {
					t.addMessage(Message{Role: roleAssistant, Text: text})
				}
			}
		}
		if t.session.Finalized() {
			t.addMessage(Message{Role: roleSystem, Text: finalizedNotice})
		}
	}

	t.rebuildViewportContent()
	t.viewport.GotoBottom()
	return t, t.input.Focus()
}
