package cmd

import (
	"os"
	"testing"

	"github.com/google/uuid"
)

func TestParseRateBurst(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int
	}{
		{name: "unset", env: "", want: 0},
		{name: "valid", env: "120", want: 120},
		{name: "zero", env: "0", want: 0},
		{name: "negative falls back", env: "-5", want: 0},
		{name: "garbage falls back", env: "lots", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("INTAKE_RATE_BURST", tt.env)
			if got := parseRateBurst(); got != tt.want {
				t.Errorf("parseRateBurst() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSessionIDRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	// Nothing saved yet.
	id, err := loadCurrentSessionID()
	if err != nil {
		t.Fatalf("loadCurrentSessionID() error = %v", err)
	}
	if id != uuid.Nil {
		t.Fatalf("loadCurrentSessionID() = %s, want nil UUID", id)
	}

	want := uuid.New()
	if err := saveCurrentSessionID(want); err != nil {
		t.Fatalf("saveCurrentSessionID() error = %v", err)
	}

	got, err := loadCurrentSessionID()
	if err != nil {
		t.Fatalf("loadCurrentSessionID() error = %v", err)
	}
	if got != want {
		t.Errorf("loadCurrentSessionID() = %s, want %s", got, want)
	}
}

func TestLoadCurrentSessionID_Corrupt(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := saveCurrentSessionID(uuid.New()); err != nil {
		t.Fatal(err)
	}
	path, err := currentSessionPath()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not-a-uuid"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := loadCurrentSessionID(); err == nil {
		t.Error("corrupt session state must be an error")
	}
}
