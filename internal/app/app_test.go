package app

import (
	"context"
	"testing"

	"github.com/opcc-pilot/complaint-intake/internal/config"
	"github.com/opcc-pilot/complaint-intake/internal/log"
	"github.com/opcc-pilot/complaint-intake/internal/state"
)

func TestOpenStore_FileBackend(t *testing.T) {
	t.Parallel()

	a := &App{
		Config: &config.Config{
			StateBackend: config.BackendFile,
			DataDir:      t.TempDir(),
		},
		Logger: log.NewNop(),
	}

	store, err := a.openStore(context.Background())
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	if _, ok := store.(*state.FileStore); !ok {
		t.Errorf("openStore() = %T, want *state.FileStore", store)
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	t.Parallel()

	a := &App{
		Config: &config.Config{StateBackend: "redis"},
		Logger: log.NewNop(),
	}

	if _, err := a.openStore(context.Background()); err == nil {
		t.Error("openStore() must reject an unknown backend")
	}
}

func TestClose_NoResources(t *testing.T) {
	t.Parallel()

	a := &App{Logger: log.NewNop()}
	if err := a.Close(); err != nil {
		t.Errorf("Close() on empty app = %v", err)
	}
}
