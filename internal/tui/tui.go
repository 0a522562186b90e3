// Package tui provides the Bubble Tea terminal interface for the complaint
// interview.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/opcc-pilot/complaint-intake/internal/intake"
	"github.com/opcc-pilot/complaint-intake/internal/llm"
)

// State represents the TUI state machine.
type State int

// TUI state machine states.
const (
	StateInput    State = iota // Awaiting user input
	StateThinking              // Exchange in progress
)

// Memory bounds to prevent unbounded growth.
const (
	maxMessages = 200 // Maximum messages stored
	maxHistory  = 100 // Maximum command history entries
)

// exchangeTimeout bounds a full exchange (model calls plus tool dispatch).
const exchangeTimeout = 5 * time.Minute

// Message role constants for consistent display.
const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleSystem    = "system"
	roleError     = "error"
)

// Layout constants for viewport height calculation.
const (
	separatorLines = 2 // Two separator lines (above and below input)
	helpLines      = 1 // Help bar height
	promptLines    = 1 // Prompt prefix line
	minViewport    = 3 // Minimum viewport height
)

// Message represents a conversation message for display.
type Message struct {
	Role string // "user", "assistant", "system", "error"
	Text string
}

// TUI is the Bubble Tea model for the interview terminal interface.
type TUI struct {
	// Input (textarea for multi-line support, Shift+Enter for newline)
	input      textarea.Model
	history    []string
	historyIdx int

	// State
	state        State
	lastCtrlC    time.Time
	confirmReset bool

	// Output
	spinner  spinner.Model
	viewBuf  strings.Builder // Reusable buffer for View() to reduce allocations
	messages []Message

	// Scrollable message viewport
	viewport viewport.Model

	// Help bar for keyboard shortcuts
	help help.Model
	keys keyMap

	// Exchange management
	// Note: no sync.WaitGroup - Bubble Tea's event loop provides
	// synchronization; the exchange command delivers exactly one message.
	exchangeCancel context.CancelFunc

	// Dependencies (direct, no interface)
	orch      *intake.Orchestrator
	session   *intake.Session
	attLimit  int64
	ctx       context.Context
	ctxCancel context.CancelFunc // For canceling all operations on exit

	// Dimensions
	width  int
	height int

	// Styles
	styles Styles

	// Markdown rendering (nil = graceful degradation to plain text)
	markdown *markdownRenderer
}

// addMessage appends a message and enforces the maxMessages bound.
func (t *TUI) addMessage(msg Message) {
	t.messages = append(t.messages, msg)
	if len(t.messages) > maxMessages {
		t.messages = t.messages[len(t.messages)-maxMessages:]
	}
}

// New creates a TUI bound to one interview session.
//
// IMPORTANT: ctx MUST be the same context passed to tea.WithContext()
// to ensure consistent cancellation behavior.
func New(ctx context.Context, orch *intake.Orchestrator, session *intake.Session, attLimit int64) (*TUI, error) {
	if orch == nil {
		return nil, errors.New("tui.New: orchestrator is required")
	}
	if session == nil {
		return nil, errors.New("tui.New: session is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}

	ctx, cancel := context.WithCancel(ctx)

	// Enter submits, Shift+Enter adds newline (default behavior)
	ta := textarea.New()
	ta.Placeholder = "Describe the incident..."
	ta.SetHeight(1)
	ta.SetWidth(120) // Updated on WindowSizeMsg
	ta.MaxWidth = 0
	ta.ShowLineNumbers = false

	// Clean, minimal styling: no background colors, just simple text
	cleanStyle := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{
		Focused: cleanStyle,
		Blurred: cleanStyle,
	})
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// Viewport for scrollable conversation history. Built-in key bindings
	// are disabled; keys are routed explicitly in handleKey to avoid
	// conflicts with the textarea and history navigation.
	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{}

	h := help.New()

	t := &TUI{
		orch:      orch,
		session:   session,
		attLimit:  attLimit,
		ctx:       ctx,
		ctxCancel: cancel,
		input:     ta,
		spinner:   sp,
		viewport:  vp,
		help:      h,
		keys:      newKeyMap(),
		styles:    DefaultStyles(),
		history:   make([]string, 0, maxHistory),
		markdown:  newMarkdownRenderer(80),
		width:     80, // Default width until WindowSizeMsg arrives
	}

	// Seed the display from the session log so a hydrated interview picks
	// up where it left off.
	t.appendTurns(session.Turns())
	if session.Finalized() {
		t.addMessage(Message{Role: roleSystem, Text: finalizedNotice})
	}
	t.rebuildViewportContent()

	return t, nil
}

// finalizedNotice is shown once the report has been emailed.
const finalizedNotice = "Your report has been emailed. Type /new to file another complaint."

// appendTurns converts conversation turns to display messages. Tool turns
// and invocation-only model turns carry no user-facing text and are skipped.
func (t *TUI) appendTurns(turns []*llm.Turn) {
	for _, turn := range turns {
		switch turn.Role {
		case llm.RoleUser:
			text := turn.Text()
			for _, p := range turn.Parts {
				if p.InlineData != nil {
					if text != "" {
						text += "\n"
					}
					text += "[attachment: " + p.InlineData.MIMEType + "]"
				}
			}
			t.addMessage(Message{Role: roleUser, Text: text})
		case llm.RoleModel:
			if text := turn.Text(); text != "" {
				t.addMessage(Message{Role: roleAssistant, Text: text})
			}
		}
	}
}

// Init implements tea.Model.
func (t *TUI) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		t.spinner.Tick,
		t.input.Focus(),
	)
}
