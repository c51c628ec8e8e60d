package keyring

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/phaseplan/internal/constants"
)

func TestConnectionStringLifecycle(t *testing.T) {
	keyring.MockInit()

	if _, err := GetConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on empty keyring, got %v", err)
	}

	if err := SetConnectionString("postgres://planner@localhost/phaseplan"); err != nil {
		t.Fatalf("SetConnectionString failed: %v", err)
	}

	got, err := GetConnectionString()
	if err != nil {
		t.Fatalf("GetConnectionString failed: %v", err)
	}
	if got != "postgres://planner@localhost/phaseplan" {
		t.Errorf("unexpected connection string %q", got)
	}

	if err := DeleteConnectionString(); err != nil {
		t.Fatalf("DeleteConnectionString failed: %v", err)
	}
	if err := DeleteConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestSetConnectionStringEmpty(t *testing.T) {
	keyring.MockInit()
	if err := SetConnectionString("   "); err == nil {
		t.Error("expected error for empty connection string")
	}
}

func TestResolveConnectionString(t *testing.T) {
	keyring.MockInit()

	t.Setenv(constants.ConnectionEnvVar, "")
	if _, err := ResolveConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound with nothing configured, got %v", err)
	}

	if err := SetConnectionString("postgres://keyring@localhost/db"); err != nil {
		t.Fatal(err)
	}
	got, _ := ResolveConnectionString()
	if got != "postgres://keyring@localhost/db" {
		t.Errorf("expected keyring value, got %q", got)
	}

	t.Setenv(constants.ConnectionEnvVar, "postgres://env@localhost/db")
	got, _ = ResolveConnectionString()
	if got != "postgres://env@localhost/db" {
		t.Errorf("expected env override, got %q", got)
	}
}
