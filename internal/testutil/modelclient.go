// Package testutil provides shared testing utilities for the intake
// project: a scripted model client and a PostgreSQL container harness.
package testutil

import (
	"context"
	"sync"

	"github.com/opcc-pilot/complaint-intake/internal/llm"
)

// ScriptedModel provides deterministic model replies for testing. Replies
// are queued and popped in order, one per Generate call; every call is
// recorded so tests can assert on what the orchestrator sent.
//
// Thread-safe for concurrent use.
type ScriptedModel struct {
	mu      sync.Mutex
	replies []scriptStep
	calls   []ModelCall
}

type scriptStep struct {
	turn *llm.Turn
	err  error
}

// ModelCall records a single Generate call.
type ModelCall struct {
	Turns []*llm.Turn
	Tools []llm.Declaration
}

// NewScriptedModel creates an empty scripted model. A Generate call with an
// exhausted script returns a plain text turn, so a test that only cares
// about the early steps keeps working.
func NewScriptedModel() *ScriptedModel {
	return &ScriptedModel{}
}

// EnqueueText queues a plain text reply.
func (m *ScriptedModel) EnqueueText(text string) {
	m.enqueue(llm.NewModelTurn(text), nil)
}

// EnqueueToolCall queues a reply that invokes a tool, optionally preceded by
// text.
func (m *ScriptedModel) EnqueueToolCall(text, tool string, args map[string]any) {
	turn := &llm.Turn{Role: llm.RoleModel}
	if text != "" {
		turn.Parts = append(turn.Parts, llm.TextPart(text))
	}
	turn.Parts = append(turn.Parts, llm.Part{FunctionCall: &llm.FunctionCall{Name: tool, Args: args}})
	m.enqueue(turn, nil)
}

// EnqueueTurn queues an arbitrary reply turn.
func (m *ScriptedModel) EnqueueTurn(turn *llm.Turn) {
	m.enqueue(turn, nil)
}

// EnqueueError queues a failed call.
func (m *ScriptedModel) EnqueueError(err error) {
	m.enqueue(nil, err)
}

func (m *ScriptedModel) enqueue(turn *llm.Turn, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, scriptStep{turn: turn, err: err})
}

// Generate pops the next scripted reply.
func (m *ScriptedModel) Generate(_ context.Context, turns []*llm.Turn, tools []llm.Declaration) (*llm.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, ModelCall{Turns: llm.CloneTurns(turns), Tools: tools})

	if len(m.replies) == 0 {
		return llm.NewModelTurn("Understood."), nil
	}
	step := m.replies[0]
	m.replies = m.replies[1:]
	if step.err != nil {
		return nil, step.err
	}
	return step.turn.Clone(), nil
}

// Calls returns a copy of all recorded calls.
func (m *ScriptedModel) Calls() []ModelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]ModelCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

var _ llm.Client = (*ScriptedModel)(nil)
