package intake

import (
	"sync"

	"github.com/google/uuid"

	"github.com/opcc-pilot/complaint-intake/internal/complaint"
	"github.com/opcc-pilot/complaint-intake/internal/llm"
	"github.com/opcc-pilot/complaint-intake/internal/tools"
)

// Session holds one complainant's conversation log and record. The awaiting
// flag serializes exchanges; finalized is a one-way latch set by successful
// report delivery.
//
// Session is safe for concurrent use. Accessors return defensive copies so
// callers can render a snapshot while an exchange is running.
type Session struct {
	id uuid.UUID

	mu        sync.Mutex
	log       []*llm.Turn
	record    *complaint.Record
	awaiting  bool
	finalized bool
}

// NewSession creates a fresh session: a greeting-only log and an empty
// record.
func NewSession() *Session {
	return newSessionWithID(uuid.New())
}

func newSessionWithID(id uuid.UUID) *Session {
	return &Session{
		id:     id,
		log:    []*llm.Turn{llm.NewModelTurn(Greeting)},
		record: complaint.New(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Turns returns a deep copy of the conversation log.
func (s *Session) Turns() []*llm.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return llm.CloneTurns(s.log)
}

// Record returns a deep copy of the complaint record.
func (s *Session) Record() *complaint.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// Finalized reports whether the report has been delivered.
func (s *Session) Finalized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized
}

// InFlight reports whether an exchange is currently running.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}

// begin claims the session for an exchange.
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return ErrFinalized
	}
	if s.awaiting {
		return ErrTurnInFlight
	}
	s.awaiting = true
	return nil
}

// end releases the session. Always runs, even when the exchange failed.
func (s *Session) end() {
	s.mu.Lock()
	s.awaiting = false
	s.mu.Unlock()
}

func (s *Session) append(t *llm.Turn) {
	s.mu.Lock()
	s.log = append(s.log, t)
	s.mu.Unlock()
}

func (s *Session) length() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log)
}

func (s *Session) turnsSince(n int) []*llm.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n >= len(s.log) {
		return nil
	}
	return llm.CloneTurns(s.log[n:])
}

func (s *Session) applyPatch(patch map[string]any) {
	s.mu.Lock()
	s.record.ApplyPatch(patch)
	s.mu.Unlock()
}

func (s *Session) addEvidenceFile(name string) {
	s.mu.Lock()
	s.record.AddEvidenceFile(name)
	s.mu.Unlock()
}

func (s *Session) finalize() {
	s.mu.Lock()
	s.finalized = true
	s.mu.Unlock()
}

// reset returns the session to its fresh state. The id is kept so persisted
// state can be cleared under the same key.
func (s *Session) reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.awaiting {
		return ErrTurnInFlight
	}
	s.log = []*llm.Turn{llm.NewModelTurn(Greeting)}
	s.record = complaint.New()
	s.finalized = false
	return nil
}

// restore adopts validated persisted state. A log of one turn or fewer is
// treated as no history; the record is adopted independently of the log.
func restore(id uuid.UUID, turns []*llm.Turn, rec *complaint.Record) *Session {
	s := newSessionWithID(id)
	if rec != nil {
		s.record = rec.Clone()
	}
	if len(turns) > 1 && llm.ValidateLog(turns) == nil {
		s.log = llm.CloneTurns(turns)
		s.finalized = logFinalized(turns)
	}
	return s
}

// logFinalized reconstructs the delivery latch from the log: a tool turn
// answering emailComplaintReport with the success result means the report
// went out.
func logFinalized(turns []*llm.Turn) bool {
	for _, t := range turns {
		if t.Role != llm.RoleTool {
			continue
		}
		fr := t.Parts[0].FunctionResponse
		if fr.Name == tools.EmailComplaintReport && fr.Response["result"] == resultEmailed {
			return true
		}
	}
	return false
}
