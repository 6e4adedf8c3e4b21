// Package sqlite is the default local backend: one database file holding every identity.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/grove/internal/logger"
	"github.com/julianstephens/grove/internal/migration"
	"github.com/julianstephens/grove/internal/models"
	"github.com/julianstephens/grove/internal/storage/sqlstate"
	"github.com/julianstephens/grove/migrations"
)

type Store struct {
	path string
	db   *sql.DB
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Init creates the database file if needed and applies pending migrations
func (s *Store) Init(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := s.open(ctx); err != nil {
		return err
	}

	runner, err := s.runner()
	if err != nil {
		return err
	}
	if _, err := runner.ApplyMigrations(func(msg string) {
		logger.Info(msg)
	}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Open connects to an existing database and checks its schema version
func (s *Store) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run 'grove init' first")
	}
	if err := s.open(ctx); err != nil {
		return err
	}

	runner, err := s.runner()
	if err != nil {
		return err
	}
	return runner.ValidateVersion()
}

func (s *Store) open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return fmt.Errorf("failed to configure database: %w", err)
	}
	s.db = db
	return nil
}

func (s *Store) runner() (*migration.Runner, error) {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS, migration.DriverSQLite)
}

// Migrate applies pending migrations, reporting progress through logFn
func (s *Store) Migrate(ctx context.Context, logFn func(string)) (int, error) {
	if err := s.open(ctx); err != nil {
		return 0, err
	}
	runner, err := s.runner()
	if err != nil {
		return 0, err
	}
	return runner.ApplyMigrations(logFn)
}

func (s *Store) Load(ctx context.Context, identity string) (models.EngineState, error) {
	if s.db == nil {
		return models.EngineState{}, fmt.Errorf("storage not loaded")
	}
	return sqlstate.Load(ctx, s.db, migration.DriverSQLite, identity)
}

func (s *Store) Save(ctx context.Context, identity string, state models.EngineState) error {
	if s.db == nil {
		return fmt.Errorf("storage not loaded")
	}
	return sqlstate.Save(ctx, s.db, migration.DriverSQLite, identity, state)
}

// Identities lists stored identity keys
func (s *Store) Identities(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("storage not loaded")
	}
	return sqlstate.Identities(ctx, s.db)
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) GetConfigPath() string {
	return s.path
}

// GetDB returns the underlying connection, nil before Init or Open
func (s *Store) GetDB() *sql.DB {
	return s.db
}
