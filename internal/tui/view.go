package tui

import (
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// View implements tea.Model.
// Uses AltScreen with viewport for scrollable conversation history.
func (t *TUI) View() tea.View {
	t.viewBuf.Reset()

	// Viewport (scrollable conversation area)
	_, _ = t.viewBuf.WriteString(t.viewport.View())
	_, _ = t.viewBuf.WriteString("\n")

	// Separator line above input
	_, _ = t.viewBuf.WriteString(t.renderSeparator())
	_, _ = t.viewBuf.WriteString("\n")

	// Input prompt - always show and always accept input
	_, _ = t.viewBuf.WriteString(t.styles.Prompt.Render("> "))
	_, _ = t.viewBuf.WriteString(t.input.View())
	_, _ = t.viewBuf.WriteString("\n")

	// Separator line below input
	_, _ = t.viewBuf.WriteString(t.renderSeparator())
	_, _ = t.viewBuf.WriteString("\n")

	// Help bar (keyboard shortcuts)
	_, _ = t.viewBuf.WriteString(t.renderStatusBar())

	v := tea.NewView(t.viewBuf.String())
	v.AltScreen = true
	return v
}

// rebuildViewportContent reconstructs the viewport content from messages and
// state. Called when messages or state change.
func (t *TUI) rebuildViewportContent() {
	var b strings.Builder

	_, _ = b.WriteString(t.styles.RenderBanner())
	_, _ = b.WriteString("\n")
	_, _ = b.WriteString(t.styles.RenderWelcomeTips())
	_, _ = b.WriteString("\n")

	// Messages (already bounded by addMessage)
	for _, msg := range t.messages {
		switch msg.Role {
		case roleUser:
			_, _ = b.WriteString(t.styles.User.Render("You> "))
			_, _ = b.WriteString(msg.Text)
		case roleAssistant:
			_, _ = b.WriteString(t.styles.Assistant.Render("Agent> "))
			_, _ = b.WriteString(t.markdown.Render(msg.Text))
		case roleSystem:
			_, _ = b.WriteString(t.styles.System.Render(msg.Text))
		case roleError:
			_, _ = b.WriteString(t.styles.Error.Render("Error: " + msg.Text))
		}
		_, _ = b.WriteString("\n\n")
	}

	// Thinking indicator
	if t.state == StateThinking {
		_, _ = b.WriteString(t.spinner.View())
		_, _ = b.WriteString(" Thinking...\n\n")
	}

	t.viewport.SetContent(b.String())
}

// renderSeparator returns a horizontal line separator.
func (t *TUI) renderSeparator() string {
	width := t.width
	if width <= 0 {
		width = 80
	}
	return t.styles.Separator.Render(strings.Repeat("─", width))
}

// renderStatusBar returns state-appropriate keyboard shortcut help.
func (t *TUI) renderStatusBar() string {
	var bindings []key.Binding
	switch t.state {
	case StateInput:
		bindings = []key.Binding{
			t.keys.Submit, t.keys.NewLine, t.keys.History,
			t.keys.Cancel, t.keys.Quit, t.keys.ScrollUp,
		}
	case StateThinking:
		bindings = []key.Binding{
			t.keys.EscCancel, t.keys.Cancel,
			t.keys.ScrollUp, t.keys.ScrollDown,
		}
	}
	return t.help.ShortHelpView(bindings)
}
