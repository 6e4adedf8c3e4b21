// Package storage selects the backend that persists engine state.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/grove/internal/models"
	"github.com/julianstephens/grove/internal/storage/jsonfile"
	"github.com/julianstephens/grove/internal/storage/mongo"
	"github.com/julianstephens/grove/internal/storage/postgres"
	"github.com/julianstephens/grove/internal/storage/sqlite"
)

// JSONPrefix marks a DSN as a directory of JSON state documents
const JSONPrefix = "json:"

type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Open(ctx context.Context) error
	Close() error

	// Engine state, keyed by identity
	Load(ctx context.Context, identity string) (models.EngineState, error)
	Save(ctx context.Context, identity string, state models.EngineState) error
	Identities(ctx context.Context) ([]string, error)

	// Utils
	GetConfigPath() string
}

// Migrator is implemented by the SQL backends
type Migrator interface {
	Migrate(ctx context.Context, logFn func(string)) (int, error)
}

// Kind names the backend a DSN selects
type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
	KindMongo    Kind = "mongo"
	KindJSON     Kind = "json"
)

// Detect reports which backend a DSN selects
func Detect(dsn string) Kind {
	switch {
	case postgres.IsConnString(dsn), strings.Contains(dsn, "host="):
		return KindPostgres
	case mongo.IsConnString(dsn):
		return KindMongo
	case strings.HasPrefix(dsn, JSONPrefix):
		return KindJSON
	default:
		return KindSQLite
	}
}

// New builds the provider for a DSN without connecting
func New(dsn string) (Provider, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("storage location is empty")
	}
	switch Detect(dsn) {
	case KindPostgres:
		if err := postgres.ValidateConnString(dsn); err != nil {
			return nil, err
		}
		return postgres.New(dsn), nil
	case KindMongo:
		return mongo.New(dsn), nil
	case KindJSON:
		dir, err := ExpandPath(strings.TrimPrefix(dsn, JSONPrefix))
		if err != nil {
			return nil, err
		}
		return jsonfile.New(dir), nil
	default:
		path, err := ExpandPath(dsn)
		if err != nil {
			return nil, err
		}
		return sqlite.NewStore(path), nil
	}
}

// Open builds the provider for a DSN and connects to it
func Open(ctx context.Context, dsn string) (Provider, error) {
	p, err := New(dsn)
	if err != nil {
		return nil, err
	}
	if err := p.Open(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// ExpandPath resolves a leading ~ to the user's home directory
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

// Copy writes every identity's state from src into dst
func Copy(ctx context.Context, src, dst Provider, logFn func(string)) (int, error) {
	keys, err := src.Identities(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list identities: %w", err)
	}
	for _, key := range keys {
		state, err := src.Load(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("failed to load %s: %w", key, err)
		}
		if err := dst.Save(ctx, key, state); err != nil {
			return 0, fmt.Errorf("failed to save %s: %w", key, err)
		}
		if logFn != nil {
			logFn(fmt.Sprintf("  Copied %s (%d habits, %d ledger entries)", key, len(state.Habits), len(state.Ledger)))
		}
	}
	return len(keys), nil
}
