// Package jsonfile stores each identity's state as a schema-checked JSON document in a directory.
package jsonfile

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/julianstephens/grove/internal/identity"
	"github.com/julianstephens/grove/internal/models"
)

//go:embed state.schema.json
var stateSchema []byte

const schemaURL = "state.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Schema returns the compiled state document schema
func Schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(stateSchema)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Validate checks a raw state document against the schema
func Validate(raw []byte) error {
	s, err := Schema()
	if err != nil {
		return fmt.Errorf("failed to compile state schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse state: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("state document is invalid: %w", err)
	}
	return nil
}

type Store struct {
	mu  sync.Mutex
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Init(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}

func (s *Store) Open(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run 'grove init' first")
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func (s *Store) path(key string) (string, error) {
	id, err := identity.ParseKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, string(id.Kind)+"-"+url.PathEscape(id.ID)+".json"), nil
}

func (s *Store) Load(ctx context.Context, key string) (models.EngineState, error) {
	path, err := s.path(key)
	if err != nil {
		return models.EngineState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return models.NewEngineState(key), nil
	}
	if err != nil {
		return models.EngineState{}, fmt.Errorf("failed to read state: %w", err)
	}
	if err := Validate(raw); err != nil {
		return models.EngineState{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	var st models.EngineState
	if err := json.Unmarshal(raw, &st); err != nil {
		return models.EngineState{}, fmt.Errorf("failed to parse state: %w", err)
	}
	if st.Identity != key {
		return models.EngineState{}, fmt.Errorf("%s holds state of %s", filepath.Base(path), st.Identity)
	}
	if st.Version > models.StateVersion {
		return models.EngineState{}, fmt.Errorf("state version %d is newer than supported version %d", st.Version, models.StateVersion)
	}
	st.Normalize(key)
	return st, nil
}

// Save validates and atomically replaces the identity's document
func (s *Store) Save(ctx context.Context, key string, state models.EngineState) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	state.Normalize(key)

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}
	if err := Validate(raw); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace state: %w", err)
	}
	return nil
}

func (s *Store) Identities(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		kind, escaped, ok := strings.Cut(strings.TrimSuffix(name, ".json"), "-")
		if !ok {
			continue
		}
		id, err := url.PathUnescape(escaped)
		if err != nil {
			continue
		}
		keys = append(keys, kind+":"+id)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) GetConfigPath() string {
	return s.dir
}
