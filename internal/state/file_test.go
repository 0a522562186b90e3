package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/opcc-pilot/complaint-intake/internal/complaint"
	"github.com/opcc-pilot/complaint-intake/internal/llm"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func TestFileStore_LogRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	turns := []*llm.Turn{
		llm.NewModelTurn("greeting"),
		llm.NewUserTurn(llm.TextPart("my name is Alex")),
		llm.NewToolTurn("saveComplaintDetails", "Details saved. Continue conversation."),
	}

	if err := s.SaveLog(ctx, id, turns); err != nil {
		t.Fatalf("SaveLog: %v", err)
	}

	got, err := s.LoadLog(ctx, id)
	if err != nil {
		t.Fatalf("LoadLog: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d turns, want 3", len(got))
	}
	if got[2].Parts[0].FunctionResponse == nil {
		t.Error("tool turn lost its function response")
	}
	if got[2].Parts[0].FunctionResponse.Response["result"] != "Details saved. Continue conversation." {
		t.Error("tool result did not round trip")
	}
}

func TestFileStore_RecordRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	rec := complaint.New()
	rec.ApplyPatch(map[string]any{"complainantName": "Alex Chen"})
	rec.AddEvidenceFile("photo.jpg")

	if err := s.SaveRecord(ctx, id, rec); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}

	got, err := s.LoadRecord(ctx, id)
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	if got.ComplainantName != "Alex Chen" {
		t.Errorf("complainantName = %q", got.ComplainantName)
	}
	if got.HasEvidence == nil || !*got.HasEvidence {
		t.Error("hasEvidence did not round trip")
	}
	if len(got.EvidenceFiles) != 1 {
		t.Errorf("evidenceFiles = %v", got.EvidenceFiles)
	}
}

func TestFileStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.LoadLog(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadLog err = %v, want ErrNotFound", err)
	}
	if _, err := s.LoadRecord(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadRecord err = %v, want ErrNotFound", err)
	}
}

func TestFileStore_BlobsIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	if err := s.SaveRecord(ctx, id, complaint.New()); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}

	// The record exists but no log was ever written.
	if _, err := s.LoadLog(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadLog err = %v, want ErrNotFound", err)
	}
	if _, err := s.LoadRecord(ctx, id); err != nil {
		t.Errorf("LoadRecord err = %v", err)
	}
}

func TestFileStore_CorruptBlob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	if err := os.WriteFile(filepath.Join(s.dir, id.String()+".log.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := s.LoadLog(ctx, id); err == nil {
		t.Error("corrupt log should fail to load")
	}
}

func TestFileStore_Clear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	if err := s.SaveLog(ctx, id, []*llm.Turn{llm.NewModelTurn("hi")}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRecord(ctx, id, complaint.New()); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(ctx, id); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := s.LoadLog(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Error("log should be gone after Clear")
	}
	if _, err := s.LoadRecord(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Error("record should be gone after Clear")
	}

	// Clearing again is not an error.
	if err := s.Clear(ctx, id); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}
