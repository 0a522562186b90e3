package intake

import (
	"testing"

	"github.com/opcc-pilot/complaint-intake/internal/llm"
)

func TestNewSession(t *testing.T) {
	s := NewSession()

	turns := s.Turns()
	if len(turns) != 1 {
		t.Fatalf("fresh log = %d turns, want greeting only", len(turns))
	}
	if turns[0].Role != llm.RoleModel || turns[0].Text() != Greeting {
		t.Errorf("greeting turn = %+v", turns[0])
	}
	if !s.Record().IsEmpty() {
		t.Error("fresh record should be empty")
	}
	if s.Finalized() || s.InFlight() {
		t.Error("fresh session flags should be clear")
	}
}

func TestSession_BeginEnd(t *testing.T) {
	s := NewSession()

	if err := s.begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := s.begin(); err != ErrTurnInFlight {
		t.Errorf("second begin = %v, want ErrTurnInFlight", err)
	}
	s.end()
	if err := s.begin(); err != nil {
		t.Errorf("begin after end: %v", err)
	}
	s.end()

	s.finalize()
	if err := s.begin(); err != ErrFinalized {
		t.Errorf("begin after finalize = %v, want ErrFinalized", err)
	}
}

func TestSession_TurnsDefensiveCopy(t *testing.T) {
	s := NewSession()
	turns := s.Turns()
	turns[0].Parts[0].Text = "mutated"

	if s.Turns()[0].Text() != Greeting {
		t.Error("Turns must return a deep copy")
	}
}

func TestSession_RecordDefensiveCopy(t *testing.T) {
	s := NewSession()
	rec := s.Record()
	rec.ApplyPatch(map[string]any{"complainantName": "mutated"})

	if s.Record().ComplainantName != "" {
		t.Error("Record must return a deep copy")
	}
}

func TestSession_ResetKeepsID(t *testing.T) {
	s := NewSession()
	id := s.ID()
	s.append(llm.NewUserTurn(llm.TextPart("hi")))
	s.applyPatch(map[string]any{"complainantName": "Alex"})
	s.finalize()

	if err := s.reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if s.ID() != id {
		t.Error("reset must keep the session id")
	}
	if s.length() != 1 || !s.Record().IsEmpty() || s.Finalized() {
		t.Error("reset must restore the fresh state")
	}
}

func TestRestore_NilRecord(t *testing.T) {
	s := restore(NewSession().ID(), nil, nil)
	if !s.Record().IsEmpty() {
		t.Error("nil record should restore empty")
	}
	if s.length() != 1 {
		t.Error("nil log should restore greeting only")
	}
}
