// Package identity resolves the key that partitions engine state.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/grove/internal/constants"
)

// Kind distinguishes signed-in users from local guests
type Kind string

const (
	KindUser  Kind = "user"
	KindGuest Kind = "guest"
)

// Identity is a user or guest id
type Identity struct {
	Kind Kind
	ID   string
}

// User returns a signed-in identity
func User(id string) Identity {
	return Identity{Kind: KindUser, ID: strings.TrimSpace(id)}
}

// Guest returns a guest identity
func Guest(id string) Identity {
	return Identity{Kind: KindGuest, ID: strings.TrimSpace(id)}
}

// Key is the storage key, "user:<id>" or "guest:<id>"
func (i Identity) Key() string {
	return string(i.Kind) + ":" + i.ID
}

func (i Identity) String() string {
	return i.Key()
}

// Valid reports whether the identity has a known kind and a non-empty id
func (i Identity) Valid() bool {
	return (i.Kind == KindUser || i.Kind == KindGuest) && i.ID != "" && !strings.ContainsAny(i.ID, ":\n")
}

// ParseKey is the inverse of Key
func ParseKey(key string) (Identity, error) {
	kind, id, ok := strings.Cut(key, ":")
	i := Identity{Kind: Kind(kind), ID: id}
	if !ok || !i.Valid() {
		return Identity{}, fmt.Errorf("invalid identity key %q", key)
	}
	return i, nil
}

// Resolve returns the user identity when userID is set. Otherwise it returns the guest
// identity stored in dir, creating one on first use.
func Resolve(userID, dir string) (Identity, error) {
	if strings.TrimSpace(userID) != "" {
		u := User(userID)
		if !u.Valid() {
			return Identity{}, fmt.Errorf("invalid user id %q", userID)
		}
		return u, nil
	}
	return loadOrCreateGuest(dir)
}

func loadOrCreateGuest(dir string) (Identity, error) {
	path := filepath.Join(dir, constants.GuestIDFileName)

	data, err := os.ReadFile(path)
	if err == nil {
		g := Guest(string(data))
		if g.Valid() {
			return g, nil
		}
	} else if !os.IsNotExist(err) {
		return Identity{}, fmt.Errorf("failed to read guest id: %w", err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Identity{}, fmt.Errorf("failed to create directory: %w", err)
	}
	g := Guest(uuid.New().String())
	if err := os.WriteFile(path, []byte(g.ID+"\n"), 0o600); err != nil {
		return Identity{}, fmt.Errorf("failed to write guest id: %w", err)
	}
	return g, nil
}
