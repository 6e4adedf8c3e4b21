// Package engine composes the ledger, habits, quests and garden of one identity
// and persists their state after every change.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/grove/internal/bamboo"
	"github.com/julianstephens/grove/internal/calendar"
	"github.com/julianstephens/grove/internal/clock"
	"github.com/julianstephens/grove/internal/constants"
	grerrors "github.com/julianstephens/grove/internal/errors"
	"github.com/julianstephens/grove/internal/habits"
	"github.com/julianstephens/grove/internal/ledger"
	"github.com/julianstephens/grove/internal/logger"
	"github.com/julianstephens/grove/internal/models"
	"github.com/julianstephens/grove/internal/quests"
)

// Store loads and saves engine state by identity key
type Store interface {
	Load(ctx context.Context, identity string) (models.EngineState, error)
	Save(ctx context.Context, identity string, state models.EngineState) error
}

// Options configures an engine
type Options struct {
	Clock         clock.Clock
	Catalog       *bamboo.Catalog
	EarlyBirdHour int
}

// ToggleOutcome is a completion toggle together with the quests it completed
type ToggleOutcome struct {
	habits.ToggleResult
	CompletedQuests []models.Quest `json:"completed_quests,omitempty"`
}

// Engine is the progression state of one identity.
// All operations are serialized; each one either applies fully or is rejected.
type Engine struct {
	mu       sync.Mutex
	identity string
	store    Store
	clock    clock.Clock

	ledger *ledger.Ledger
	habits *habits.Store
	quests *quests.Tracker
	garden *bamboo.Garden

	lastPersistErr error
}

// Open loads the identity's state and prepares today's quests
func Open(ctx context.Context, identity string, store Store, opts Options) (*Engine, error) {
	if identity == "" {
		return nil, fmt.Errorf("identity is required")
	}
	c := opts.Clock
	if c == nil {
		sys, err := clock.NewSystem("")
		if err != nil {
			return nil, err
		}
		c = sys
	}

	state, err := store.Load(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", grerrors.ErrPersistenceFailure, identity, err)
	}
	if state.Identity != "" && state.Identity != identity {
		return nil, fmt.Errorf("%w: state for %s returned for %s", grerrors.ErrPersistenceFailure, state.Identity, identity)
	}

	l := ledger.New(c, state.Ledger)
	h := habits.New(c, l, state.Habits, state.Completions)
	var qopts []quests.Option
	if opts.EarlyBirdHour > 0 {
		qopts = append(qopts, quests.WithEarlyBirdHour(opts.EarlyBirdHour))
	}

	e := &Engine{
		identity: identity,
		store:    store,
		clock:    c,
		ledger:   l,
		habits:   h,
		quests:   quests.New(c, h, l, state.Quests, qopts...),
		garden:   bamboo.New(c, l, opts.Catalog, state.Plants),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.quests.GenerateDaily() {
		if _, err := e.quests.UpdateProgress(); err != nil {
			return nil, err
		}
		e.persistLocked()
	}
	logger.Debug("Opened engine", "identity", identity, "habits", len(state.Habits), "balance", l.Balance())
	return e, nil
}

// Identity returns the key this engine's state belongs to
func (e *Engine) Identity() string {
	return e.identity
}

// Clock returns the engine's source of time
func (e *Engine) Clock() clock.Clock {
	return e.clock
}

// LastPersistError returns the error of the most recent save, or nil if it succeeded.
// A failed save never rolls back the in-memory change.
func (e *Engine) LastPersistError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPersistErr
}

// Flush saves the current state
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.persistLocked()
}

// State snapshots everything the engine persists
func (e *Engine) State() models.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Points

func (e *Engine) Balance() int {
	return e.ledger.Balance()
}

// History returns ledger entries, oldest first
func (e *Engine) History() []models.LedgerEntry {
	return e.ledger.Entries()
}

// PointsBySource nets the ledger per source kind
func (e *Engine) PointsBySource() map[string]int {
	return e.ledger.TotalsBySource()
}

// Credit adds points from source
func (e *Engine) Credit(amount int, source string) (models.LedgerEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.ledger.Credit(amount, source)
	if err != nil {
		return entry, err
	}
	e.persistLocked()
	return entry, nil
}

// Debit spends points if the balance covers them
func (e *Engine) Debit(amount int, source string) (models.LedgerEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.ledger.Debit(amount, source)
	if err != nil {
		return entry, err
	}
	e.persistLocked()
	return entry, nil
}

// Habits

func (e *Engine) AddHabit(in habits.NewHabit) (models.Habit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, err := e.habits.Add(in)
	if err != nil {
		return h, err
	}
	e.refreshQuestsLocked()
	e.persistLocked()
	return h, nil
}

// SetHabitActive archives (false) or restores (true) a habit
func (e *Engine) SetHabitActive(id string, active bool) (models.Habit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, err := e.habits.SetActive(id, active)
	if err != nil {
		return h, err
	}
	e.refreshQuestsLocked()
	e.persistLocked()
	return h, nil
}

func (e *Engine) DeleteHabit(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.habits.Delete(id); err != nil {
		return err
	}
	e.refreshQuestsLocked()
	e.persistLocked()
	return nil
}

func (e *Engine) Habit(id string) (models.Habit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.habits.Get(id)
}

func (e *Engine) Habits(includeInactive bool) []models.Habit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.habits.List(includeInactive)
}

// ToggleCompletion completes or un-completes a habit for day (today when empty)
// and advances today's quests.
func (e *Engine) ToggleCompletion(habitID, day string) (ToggleOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.habits.ToggleCompletion(habitID, day)
	if err != nil {
		return ToggleOutcome{}, err
	}
	out := ToggleOutcome{ToggleResult: res}
	out.CompletedQuests = e.refreshQuestsLocked()
	e.persistLocked()
	return out, nil
}

func (e *Engine) Streak(habitID string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.habits.Streak(habitID)
}

func (e *Engine) LongestStreak(habitID string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.habits.LongestStreak(habitID)
}

// CompletionRate is the rounded percentage of scheduled days completed in the last windowDays
func (e *Engine) CompletionRate(habitID string, windowDays int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.habits.CompletionRate(habitID, windowDays)
}

func (e *Engine) TodaysHabits() []models.TodayHabit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.habits.TodaysHabits()
}

// Quests

// GenerateDaily makes sure today's quests exist and returns them
func (e *Engine) GenerateDaily() []models.Quest {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.quests.GenerateDaily() {
		e.persistLocked()
	}
	return e.quests.Today()
}

// UpdateProgress recomputes quest progress and returns quests completed by this call
func (e *Engine) UpdateProgress() ([]models.Quest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	done, err := e.quests.UpdateProgress()
	if err != nil {
		return done, err
	}
	e.persistLocked()
	return done, nil
}

func (e *Engine) Quests() []models.Quest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quests.Today()
}

// Garden

func (e *Engine) Water(plantID string) (models.PlantView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	view, err := e.garden.Water(plantID)
	if err != nil {
		return view, err
	}
	e.persistLocked()
	return view, nil
}

func (e *Engine) Plant(speciesType, name string) (models.PlantView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	view, err := e.garden.Plant(speciesType, name)
	if err != nil {
		return view, err
	}
	e.persistLocked()
	return view, nil
}

func (e *Engine) RemovePlant(plantID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.garden.Remove(plantID); err != nil {
		return err
	}
	e.persistLocked()
	return nil
}

func (e *Engine) Plants() []models.PlantView {
	return e.garden.Plants()
}

func (e *Engine) NextPlantingDate() (time.Time, bool) {
	return e.garden.NextPlantingDate()
}

func (e *Engine) Species() []bamboo.Species {
	return e.garden.Catalog().All()
}

// Calendar

// MonthGrid aggregates completions for a month
func (e *Engine) MonthGrid(year, month int) (calendar.Grid, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return calendar.MonthGrid(e.habits, year, month, e.clock.Now())
}

// refreshQuestsLocked regenerates quests after a day change and advances their progress
func (e *Engine) refreshQuestsLocked() []models.Quest {
	e.quests.GenerateDaily()
	done, err := e.quests.UpdateProgress()
	if err != nil {
		logger.Error("Failed to update quest progress", "identity", e.identity, "error", err)
	}
	return done
}

func (e *Engine) stateLocked() models.EngineState {
	return models.EngineState{
		Version:     models.StateVersion,
		Identity:    e.identity,
		Habits:      e.habits.Habits(),
		Completions: e.habits.Completions(),
		Ledger:      e.ledger.Entries(),
		Quests:      e.quests.Today(),
		Plants:      e.garden.Stored(),
		UpdatedAt:   e.clock.Now(),
	}
}

// persistLocked saves the state. Failures are logged and kept for LastPersistError.
func (e *Engine) persistLocked() error {
	ctx, cancel := context.WithTimeout(context.Background(), constants.PersistTimeout)
	defer cancel()

	err := e.store.Save(ctx, e.identity, e.stateLocked())
	if err != nil {
		if !errors.Is(err, grerrors.ErrPersistenceFailure) {
			err = fmt.Errorf("%w: %v", grerrors.ErrPersistenceFailure, err)
		}
		logger.Warn("Failed to persist engine state", "identity", e.identity, "error", err)
	}
	e.lastPersistErr = err
	return err
}
