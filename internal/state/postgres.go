package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opcc-pilot/complaint-intake/internal/complaint"
	"github.com/opcc-pilot/complaint-intake/internal/llm"
)

// querier is the subset of pgxpool.Pool the store needs, satisfied by both
// the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps both blobs in a single intake_state row per session.
type PostgresStore struct {
	db querier
}

// NewPostgresStore wraps an existing pool. Schema setup is handled by the
// embedded migrations in the db package.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

const upsertLogSQL = `INSERT INTO intake_state (session_id, log, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (session_id) DO UPDATE SET log = EXCLUDED.log, updated_at = now()`

const upsertRecordSQL = `INSERT INTO intake_state (session_id, record, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (session_id) DO UPDATE SET record = EXCLUDED.record, updated_at = now()`

// SaveLog persists the conversation log.
func (s *PostgresStore) SaveLog(ctx context.Context, id uuid.UUID, turns []*llm.Turn) error {
	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("postgres store: encoding log: %w", err)
	}
	if _, err := s.db.Exec(ctx, upsertLogSQL, id, data); err != nil {
		return fmt.Errorf("postgres store: saving log for %s: %w", id, err)
	}
	return nil
}

// LoadLog loads the conversation log. A session row whose log was never
// written reports ErrNotFound.
func (s *PostgresStore) LoadLog(ctx context.Context, id uuid.UUID) ([]*llm.Turn, error) {
	var data []byte
	err := s.db.QueryRow(ctx, `SELECT log FROM intake_state WHERE session_id = $1 AND log IS NOT NULL`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: loading log for %s: %w", id, err)
	}
	var turns []*llm.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("postgres store: decoding log for %s: %w", id, err)
	}
	return turns, nil
}

// SaveRecord persists the complaint record.
func (s *PostgresStore) SaveRecord(ctx context.Context, id uuid.UUID, rec *complaint.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("postgres store: encoding record: %w", err)
	}
	if _, err := s.db.Exec(ctx, upsertRecordSQL, id, data); err != nil {
		return fmt.Errorf("postgres store: saving record for %s: %w", id, err)
	}
	return nil
}

// LoadRecord loads the complaint record.
func (s *PostgresStore) LoadRecord(ctx context.Context, id uuid.UUID) (*complaint.Record, error) {
	var data []byte
	err := s.db.QueryRow(ctx, `SELECT record FROM intake_state WHERE session_id = $1 AND record IS NOT NULL`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: loading record for %s: %w", id, err)
	}
	rec := complaint.New()
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("postgres store: decoding record for %s: %w", id, err)
	}
	return rec, nil
}

// Clear removes the session row.
func (s *PostgresStore) Clear(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM intake_state WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("postgres store: clearing %s: %w", id, err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
