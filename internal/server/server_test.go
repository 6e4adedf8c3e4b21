package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/grove/internal/clock"
	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/engine"
	"github.com/julianstephens/grove/internal/models"
)

type memStore struct {
	mu       sync.Mutex
	states   map[string]models.EngineState
	loads    int
	failSave bool
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]models.EngineState)}
}

func (m *memStore) Load(_ context.Context, key string) (models.EngineState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if st, ok := m.states[key]; ok {
		return st, nil
	}
	return models.NewEngineState(key), nil
}

func (m *memStore) Save(_ context.Context, key string, state models.EngineState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	m.states[key] = state
	return nil
}

// Friday 2026-10-16, 10:00 UTC
var testNow = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

func setupTestServer(t *testing.T, size int) (*Server, *memStore) {
	t.Helper()
	store := newMemStore()
	reg, err := NewRegistry(store, engine.Options{Clock: clock.NewFixed(testNow)}, size)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return New(reg), store
}

func do(t *testing.T, s *Server, method, path, user string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(constants.HeaderUserID, user)
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("bad JSON from %s %s: %v", method, path, err)
		}
	}
	return resp, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestRequiresIdentity(t *testing.T) {
	s, _ := setupTestServer(t, 4)

	resp, _ := do(t, s, http.MethodGet, "/api/points", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	resp, _ = do(t, s, http.MethodGet, "/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
}

func TestHabitToggleFlow(t *testing.T) {
	s, store := setupTestServer(t, 4)

	resp, habit := do(t, s, http.MethodPost, "/api/habits", "alice", map[string]any{"title": "Read"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add habit status = %d", resp.StatusCode)
	}
	id, _ := habit["id"].(string)
	if id == "" {
		t.Fatal("created habit has no id")
	}

	resp, toggled := do(t, s, http.MethodPost, "/api/habits/"+id+"/toggle", "alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle status = %d", resp.StatusCode)
	}
	if toggled["balance"].(float64) != 25 {
		t.Errorf("balance after toggle = %v, want 25", toggled["balance"])
	}

	_, bal := do(t, s, http.MethodGet, "/api/points", "alice", nil)
	if bal["balance"].(float64) != 25 {
		t.Errorf("GET balance = %v, want 25", bal["balance"])
	}

	_, stats := do(t, s, http.MethodGet, "/api/habits/"+id+"/stats", "alice", nil)
	if stats["streak"].(float64) != 1 {
		t.Errorf("streak = %v, want 1", stats["streak"])
	}

	if len(store.states["user:alice"].Completions) != 1 {
		t.Error("completion was not persisted")
	}
}

func TestDomainErrorsMapToStatus(t *testing.T) {
	s, _ := setupTestServer(t, 4)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown habit", http.MethodPost, "/api/habits/nope/toggle", nil, http.StatusNotFound, "HABIT_NOT_FOUND"},
		{"overdraw", http.MethodPost, "/api/points/debit", map[string]any{"amount": 10}, http.StatusConflict, "INSUFFICIENT_BALANCE"},
		{"bad amount", http.MethodPost, "/api/points/credit", map[string]any{"amount": 0}, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"bad month", http.MethodGet, "/api/calendar?month=2026-13", nil, http.StatusBadRequest, "INVALID_DATE"},
		{"unknown species", http.MethodPost, "/api/garden", map[string]any{"type": "oak"}, http.StatusBadRequest, "UNKNOWN_PLANT_TYPE"},
		{"cannot afford", http.MethodPost, "/api/garden", map[string]any{"type": "moso"}, http.StatusConflict, "INSUFFICIENT_BALANCE"},
		{"unknown plant", http.MethodPost, "/api/garden/nope/water", nil, http.StatusNotFound, "PLANT_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, s, tt.method, tt.path, "bob", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if got := errorCode(body); got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestGardenPlantAndWater(t *testing.T) {
	s, _ := setupTestServer(t, 4)

	do(t, s, http.MethodPost, "/api/points/credit", "carol", map[string]any{"amount": 60, "source": "seed"})
	resp, planted := do(t, s, http.MethodPost, "/api/garden", "carol", map[string]any{"type": "moso", "name": "Moss"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("plant status = %d", resp.StatusCode)
	}
	plant := planted["plant"].(map[string]any)
	id := plant["id"].(string)

	for i := 0; i < constants.DailyWaterLimit; i++ {
		resp, _ := do(t, s, http.MethodPost, "/api/garden/"+id+"/water", "carol", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("water #%d status = %d", i+1, resp.StatusCode)
		}
	}
	resp, body := do(t, s, http.MethodPost, "/api/garden/"+id+"/water", "carol", nil)
	if resp.StatusCode != http.StatusConflict || errorCode(body) != "DAILY_LIMIT_REACHED" {
		t.Errorf("fourth watering: status %d code %q", resp.StatusCode, errorCode(body))
	}

	_, garden := do(t, s, http.MethodGet, "/api/garden", "carol", nil)
	if garden["balance"].(float64) != 60-50+3*constants.WaterReward {
		t.Errorf("garden balance = %v", garden["balance"])
	}
	if garden["can_plant_today"].(bool) {
		t.Error("cooldown should block planting today")
	}
	if garden["next_planting_at"].(string) != "2026-10-31" {
		t.Errorf("next_planting_at = %v", garden["next_planting_at"])
	}

	resp, body = do(t, s, http.MethodPost, "/api/garden", "carol", map[string]any{"type": "moso"})
	if resp.StatusCode != http.StatusConflict || errorCode(body) != "PLANTING_COOLDOWN" {
		t.Errorf("second planting: status %d code %q", resp.StatusCode, errorCode(body))
	}
}

func TestIdentitiesAreIsolated(t *testing.T) {
	s, _ := setupTestServer(t, 4)

	do(t, s, http.MethodPost, "/api/points/credit", "alice", map[string]any{"amount": 40})

	req := httptest.NewRequest(http.MethodGet, "/api/points", nil)
	req.Header.Set(constants.HeaderGuestID, "alice")
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["balance"].(float64) != 0 {
		t.Errorf("guest:alice sees balance %v, want 0", out["balance"])
	}
}

func TestPersistFailureIsFlagged(t *testing.T) {
	s, store := setupTestServer(t, 4)

	do(t, s, http.MethodGet, "/api/points", "dave", nil)
	store.mu.Lock()
	store.failSave = true
	store.mu.Unlock()

	resp, body := do(t, s, http.MethodPost, "/api/points/credit", "dave", map[string]any{"amount": 10})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("credit should still succeed, got %d", resp.StatusCode)
	}
	if resp.Header.Get(HeaderSync) != "failed" {
		t.Error("expected sync failure header")
	}
	if body["balance"].(float64) != 10 {
		t.Errorf("in-memory balance = %v, want 10", body["balance"])
	}
}

func TestRegistryEvictsAndReloads(t *testing.T) {
	s, store := setupTestServer(t, 1)

	do(t, s, http.MethodPost, "/api/points/credit", "alice", map[string]any{"amount": 5})
	do(t, s, http.MethodGet, "/api/points", "bob", nil)
	if s.registry.Len() != 1 {
		t.Fatalf("registry holds %d engines, want 1", s.registry.Len())
	}

	_, body := do(t, s, http.MethodGet, "/api/points", "alice", nil)
	if body["balance"].(float64) != 5 {
		t.Errorf("reloaded balance = %v, want 5", body["balance"])
	}
	if store.loads != 3 {
		t.Errorf("store loads = %d, want 3", store.loads)
	}
}

func TestRegistrySharesConcurrentLoads(t *testing.T) {
	store := newMemStore()
	reg, err := NewRegistry(store, engine.Options{Clock: clock.NewFixed(testNow)}, 8)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	engines := make([]*engine.Engine, 16)
	for i := range engines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, release, err := reg.Get(context.Background(), "user:zoe")
			if err != nil {
				t.Errorf("Get failed: %v", err)
				return
			}
			defer release()
			engines[i] = e
		}(i)
	}
	wg.Wait()

	for _, e := range engines[1:] {
		if e != engines[0] {
			t.Fatal("concurrent Get returned different engines")
		}
	}
	if store.loads != 1 {
		t.Errorf("store loads = %d, want 1", store.loads)
	}
	if err := reg.Flush(context.Background()); err != nil {
		t.Errorf("Flush failed: %v", err)
	}
}

func TestRegistryKeepsHeldEngineAcrossEviction(t *testing.T) {
	store := newMemStore()
	reg, err := NewRegistry(store, engine.Options{Clock: clock.NewFixed(testNow)}, 1)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	alice, releaseAlice, err := reg.Get(ctx, "user:alice")
	if err != nil {
		t.Fatal(err)
	}
	_, releaseBob, err := reg.Get(ctx, "user:bob")
	if err != nil {
		t.Fatal(err)
	}
	releaseBob()

	// alice is out of the cache but still in use
	if _, err := alice.Credit(5, constants.SourceManual); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	again, releaseAgain, err := reg.Get(ctx, "user:alice")
	if err != nil {
		t.Fatal(err)
	}
	if again != alice {
		t.Fatal("a second engine was opened for an identity still in use")
	}
	if _, err := again.Credit(3, constants.SourceManual); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	releaseAgain()
	releaseAlice()

	// evict alice once more, then reload her from the store
	_, releaseBob, err = reg.Get(ctx, "user:bob")
	if err != nil {
		t.Fatal(err)
	}
	releaseBob()
	reloaded, releaseReloaded, err := reg.Get(ctx, "user:alice")
	if err != nil {
		t.Fatal(err)
	}
	defer releaseReloaded()

	if reloaded == alice {
		t.Error("expected a fresh engine after alice was released and evicted")
	}
	if got := reloaded.Balance(); got != 8 {
		t.Errorf("reloaded balance = %d, want 8", got)
	}
	if store.loads != 4 {
		t.Errorf("store loads = %d, want 4", store.loads)
	}
}

// slowStore blocks saves until released
type slowStore struct {
	*memStore
	saving  chan struct{}
	unblock chan struct{}
}

func (s *slowStore) Save(ctx context.Context, key string, state models.EngineState) error {
	s.saving <- struct{}{}
	<-s.unblock
	return s.memStore.Save(ctx, key, state)
}

func TestRegistryFlushesEvictedEngineOutsideLock(t *testing.T) {
	store := &slowStore{memStore: newMemStore(), saving: make(chan struct{}, 1), unblock: make(chan struct{})}
	reg, err := NewRegistry(store, engine.Options{Clock: clock.NewFixed(testNow)}, 2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, key := range []string{"user:alice", "user:bob"} {
		_, release, err := reg.Get(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		release()
	}

	done := make(chan error, 1)
	go func() {
		_, release, err := reg.Get(ctx, "user:carol")
		if err == nil {
			release()
		}
		done <- err
	}()

	select {
	case <-store.saving:
	case <-time.After(5 * time.Second):
		t.Fatal("evicted engine was never flushed")
	}

	got := make(chan error, 1)
	go func() {
		_, release, err := reg.Get(ctx, "user:bob")
		if err == nil {
			release()
		}
		got <- err
	}()
	select {
	case err := <-got:
		if err != nil {
			t.Errorf("Get failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("a slow flush blocked lookups of other identities")
	}

	close(store.unblock)
	if err := <-done; err != nil {
		t.Errorf("Get carol failed: %v", err)
	}
}
