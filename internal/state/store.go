// Package state persists session logs and complaint records.
//
// The log and the record are stored as two independently keyed blobs per
// session: a corrupt log must not take the record down with it, and vice
// versa. Rehydration policy (discard a blob wholesale on any failure) lives
// with the orchestrator; stores only report ErrNotFound or the underlying
// failure.
package state

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/opcc-pilot/complaint-intake/internal/complaint"
	"github.com/opcc-pilot/complaint-intake/internal/llm"
)

// ErrNotFound reports that no blob is stored for the session.
var ErrNotFound = errors.New("state: not found")

// Store persists per-session conversation logs and complaint records.
type Store interface {
	SaveLog(ctx context.Context, id uuid.UUID, turns []*llm.Turn) error
	LoadLog(ctx context.Context, id uuid.UUID) ([]*llm.Turn, error)
	SaveRecord(ctx context.Context, id uuid.UUID, rec *complaint.Record) error
	LoadRecord(ctx context.Context, id uuid.UUID) (*complaint.Record, error)
	// Clear removes both blobs for the session. Clearing an unknown session
	// is not an error.
	Clear(ctx context.Context, id uuid.UUID) error
}
