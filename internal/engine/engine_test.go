package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/grove/internal/clock"
	"github.com/julianstephens/grove/internal/constants"
	grerrors "github.com/julianstephens/grove/internal/errors"
	"github.com/julianstephens/grove/internal/habits"
	"github.com/julianstephens/grove/internal/models"
)

// memStore keeps engine states in memory and can be told to fail saves
type memStore struct {
	mu       sync.Mutex
	states   map[string]models.EngineState
	saves    int
	failSave bool
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]models.EngineState)}
}

func (m *memStore) Load(_ context.Context, identity string) (models.EngineState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[identity]; ok {
		return st, nil
	}
	return models.NewEngineState(identity), nil
}

func (m *memStore) Save(_ context.Context, identity string, state models.EngineState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	m.saves++
	m.states[identity] = state
	return nil
}

// Friday 2026-10-16, 10:00 UTC
var testNow = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

func setupTestEngine(t *testing.T, store *memStore, identity string) (*Engine, *clock.Fixed) {
	t.Helper()
	c := clock.NewFixed(testNow)
	e, err := Open(context.Background(), identity, store, Options{Clock: c})
	if err != nil {
		t.Fatalf("failed to open engine: %v", err)
	}
	return e, c
}

func TestToggleAdvancesQuestsAndPersists(t *testing.T) {
	store := newMemStore()
	e, _ := setupTestEngine(t, store, "user:alice")

	h, err := e.AddHabit(habits.NewHabit{Title: "Read"})
	if err != nil {
		t.Fatalf("add habit: %v", err)
	}
	if len(e.Quests()) == 0 {
		t.Fatal("adding the first habit should generate today's quests")
	}

	out, err := e.ToggleCompletion(h.ID, "")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !out.Completed {
		t.Fatal("expected completion")
	}
	// The only habit is done, so complete_all pays out
	found := false
	for _, q := range out.CompletedQuests {
		if q.Type == constants.QuestCompleteAll {
			found = true
		}
	}
	if !found {
		t.Errorf("expected complete_all to complete, got %+v", out.CompletedQuests)
	}
	if e.Balance() != constants.HabitCompletionReward+20 {
		t.Errorf("expected balance 25, got %d", e.Balance())
	}

	saved := store.states["user:alice"]
	if len(saved.Completions) != 1 || len(saved.Ledger) != 2 {
		t.Errorf("state not persisted: %d completions, %d ledger entries", len(saved.Completions), len(saved.Ledger))
	}
	if e.LastPersistError() != nil {
		t.Errorf("unexpected persist error: %v", e.LastPersistError())
	}
}

func TestReopenRestoresState(t *testing.T) {
	store := newMemStore()
	e, _ := setupTestEngine(t, store, "guest:g1")

	if _, err := e.Credit(200, constants.SourceManual); err != nil {
		t.Fatalf("credit: %v", err)
	}
	p, err := e.Plant("golden", "Sunny")
	if err != nil {
		t.Fatalf("plant: %v", err)
	}
	if _, err := e.Water(p.ID); err != nil {
		t.Fatalf("water: %v", err)
	}

	again, _ := setupTestEngine(t, store, "guest:g1")
	if again.Balance() != e.Balance() {
		t.Errorf("balance not restored: %d vs %d", again.Balance(), e.Balance())
	}
	plants := again.Plants()
	if len(plants) != 1 || plants[0].Name != "Sunny" || plants[0].TotalWaterings != 1 {
		t.Errorf("garden not restored: %+v", plants)
	}
}

func TestIdentitiesAreIsolated(t *testing.T) {
	store := newMemStore()
	alice, _ := setupTestEngine(t, store, "user:alice")
	guest, _ := setupTestEngine(t, store, "guest:abc")

	if _, err := alice.AddHabit(habits.NewHabit{Title: "Alice habit"}); err != nil {
		t.Fatalf("add habit: %v", err)
	}
	if _, err := alice.Credit(40, constants.SourceManual); err != nil {
		t.Fatalf("credit: %v", err)
	}

	if len(guest.Habits(true)) != 0 || guest.Balance() != 0 {
		t.Error("guest sees alice's state")
	}

	reopened, _ := setupTestEngine(t, store, "guest:abc")
	if len(reopened.Habits(true)) != 0 || reopened.Balance() != 0 {
		t.Error("guest state leaked after reload")
	}
}

func TestPersistFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	e, _ := setupTestEngine(t, store, "user:bob")
	h, err := e.AddHabit(habits.NewHabit{Title: "Run"})
	if err != nil {
		t.Fatalf("add habit: %v", err)
	}

	store.failSave = true
	out, err := e.ToggleCompletion(h.ID, "")
	if err != nil {
		t.Fatalf("toggle must succeed despite the failed save: %v", err)
	}
	if !out.Completed || e.Balance() == 0 {
		t.Error("in-memory change should stand")
	}
	if !errors.Is(e.LastPersistError(), grerrors.ErrPersistenceFailure) {
		t.Errorf("expected ErrPersistenceFailure, got %v", e.LastPersistError())
	}

	store.failSave = false
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if e.LastPersistError() != nil {
		t.Error("successful save should clear the persist error")
	}
	if len(store.states["user:bob"].Completions) != 1 {
		t.Error("flush should write the state that failed to save earlier")
	}
}

func TestRejectedOperationsLeaveStateUnchanged(t *testing.T) {
	store := newMemStore()
	e, _ := setupTestEngine(t, store, "user:carol")
	before := store.saves

	if _, err := e.Plant("moso", ""); !errors.Is(err, grerrors.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if _, err := e.Debit(1, constants.SourceManual); !errors.Is(err, grerrors.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if _, err := e.ToggleCompletion("nope", ""); !errors.Is(err, grerrors.ErrHabitNotFound) {
		t.Errorf("expected ErrHabitNotFound, got %v", err)
	}
	if _, err := e.MonthGrid(2026, 13); !errors.Is(err, grerrors.ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
	if store.saves != before {
		t.Errorf("rejected operations should not save (%d saves)", store.saves-before)
	}
	if e.Balance() != 0 || len(e.Plants()) != 0 {
		t.Error("state changed after rejected operations")
	}
}

func TestDayRolloverRegeneratesQuests(t *testing.T) {
	store := newMemStore()
	e, c := setupTestEngine(t, store, "user:dan")
	h, err := e.AddHabit(habits.NewHabit{Title: "Walk"})
	if err != nil {
		t.Fatalf("add habit: %v", err)
	}

	c.AdvanceDays(1)
	if _, err := e.ToggleCompletion(h.ID, ""); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	qs := e.Quests()
	if len(qs) == 0 {
		t.Fatal("expected quests for the new day")
	}
	for _, q := range qs {
		if q.Date != "2026-10-17" {
			t.Errorf("quest %s is from another day", q.ID)
		}
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	store := newMemStore()
	e, _ := setupTestEngine(t, store, "user:eve")
	if _, err := e.Credit(100, constants.SourceManual); err != nil {
		t.Fatalf("credit: %v", err)
	}
	p, err := e.Plant("moso", "")
	if err != nil {
		t.Fatalf("plant: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Water(p.ID); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != constants.DailyWaterLimit {
		t.Errorf("expected exactly %d waterings, got %d", constants.DailyWaterLimit, ok)
	}
	if e.Balance() != 50+constants.DailyWaterLimit*constants.WaterReward {
		t.Errorf("unexpected balance %d", e.Balance())
	}
}

func TestArchivingLastOpenHabitCompletesQuest(t *testing.T) {
	store := newMemStore()
	e, _ := setupTestEngine(t, store, "user:alice")

	done, err := e.AddHabit(habits.NewHabit{Title: "Read"})
	if err != nil {
		t.Fatalf("add habit: %v", err)
	}
	open, err := e.AddHabit(habits.NewHabit{Title: "Swim"})
	if err != nil {
		t.Fatalf("add habit: %v", err)
	}
	if _, err := e.ToggleCompletion(done.ID, ""); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if e.Balance() != constants.HabitCompletionReward {
		t.Fatalf("expected only the habit reward, got %d", e.Balance())
	}

	if _, err := e.SetHabitActive(open.ID, false); err != nil {
		t.Fatalf("archive: %v", err)
	}
	for _, q := range e.Quests() {
		if q.Type == constants.QuestCompleteAll && (!q.Completed || q.Target != 1) {
			t.Errorf("expected complete_all done at target 1, got %+v", q)
		}
	}
	if e.Balance() != constants.HabitCompletionReward+20 {
		t.Errorf("expected complete_all payout after archiving, got %d", e.Balance())
	}
}
