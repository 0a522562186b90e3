package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/opcc-pilot/complaint-intake/internal/complaint"
	"github.com/opcc-pilot/complaint-intake/internal/llm"
)

// FileStore persists sessions as JSON files under a data directory:
// <id>.log.json and <id>.record.json. Writes go through a temp file and
// rename, guarded by a per-session file lock so concurrent processes do not
// interleave.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("file store: creating %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// DefaultDir returns ~/.intake/sessions, creating it if needed.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".intake", "sessions")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}

func (s *FileStore) logPath(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".log.json")
}

func (s *FileStore) recordPath(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".record.json")
}

func (s *FileStore) lockPath(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".lock")
}

func (s *FileStore) withLock(id uuid.UUID, fn func() error) error {
	fl := flock.New(s.lockPath(id))
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("file store: locking session %s: %w", id, err)
	}
	defer func() { _ = fl.Unlock() }()
	return fn()
}

func (s *FileStore) writeBlob(id uuid.UUID, path string, v any) error {
	return s.withLock(id, func() error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("file store: encoding %s: %w", path, err)
		}
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0o600); err != nil {
			return fmt.Errorf("file store: writing %s: %w", tmp, err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return fmt.Errorf("file store: replacing %s: %w", path, err)
		}
		return nil
	})
}

func (s *FileStore) readBlob(id uuid.UUID, path string, v any) error {
	return s.withLock(id, func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return ErrNotFound
			}
			return fmt.Errorf("file store: reading %s: %w", path, err)
		}
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("file store: decoding %s: %w", path, err)
		}
		return nil
	})
}

// SaveLog persists the conversation log.
func (s *FileStore) SaveLog(_ context.Context, id uuid.UUID, turns []*llm.Turn) error {
	return s.writeBlob(id, s.logPath(id), turns)
}

// LoadLog loads the conversation log.
func (s *FileStore) LoadLog(_ context.Context, id uuid.UUID) ([]*llm.Turn, error) {
	var turns []*llm.Turn
	if err := s.readBlob(id, s.logPath(id), &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

// SaveRecord persists the complaint record.
func (s *FileStore) SaveRecord(_ context.Context, id uuid.UUID, rec *complaint.Record) error {
	return s.writeBlob(id, s.recordPath(id), rec)
}

// LoadRecord loads the complaint record.
func (s *FileStore) LoadRecord(_ context.Context, id uuid.UUID) (*complaint.Record, error) {
	rec := complaint.New()
	if err := s.readBlob(id, s.recordPath(id), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Clear removes both blobs. Missing files are ignored.
func (s *FileStore) Clear(_ context.Context, id uuid.UUID) error {
	return s.withLock(id, func() error {
		for _, path := range []string{s.logPath(id), s.recordPath(id)} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("file store: removing %s: %w", path, err)
			}
		}
		return nil
	})
}

var _ Store = (*FileStore)(nil)
