package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/julianstephens/grove/internal/constants"
)

func TestResolveUser(t *testing.T) {
	id, err := Resolve("alice", t.TempDir())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if id.Key() != "user:alice" {
		t.Errorf("expected user:alice, got %s", id.Key())
	}
}

func TestResolveGuestIsStable(t *testing.T) {
	dir := t.TempDir()

	first, err := Resolve("", dir)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first.Kind != KindGuest || first.ID == "" {
		t.Fatalf("expected a guest identity, got %+v", first)
	}

	second, err := Resolve("", dir)
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if first != second {
		t.Errorf("guest id changed between sessions: %s vs %s", first, second)
	}

	if _, err := os.Stat(filepath.Join(dir, constants.GuestIDFileName)); err != nil {
		t.Errorf("guest id file not written: %v", err)
	}
}

func TestParseKey(t *testing.T) {
	id, err := ParseKey("guest:1234")
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}
	if id.Kind != KindGuest || id.ID != "1234" {
		t.Errorf("unexpected identity %+v", id)
	}

	for _, bad := range []string{"", "user", "admin:bob", "user:"} {
		if _, err := ParseKey(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestUserAndGuestKeysDiffer(t *testing.T) {
	if User("x").Key() == Guest("x").Key() {
		t.Error("user and guest with the same id must not share a key")
	}
}
