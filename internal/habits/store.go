// Package habits holds habit definitions and their per-day completions for one identity.
package habits

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/grove/internal/clock"
	"github.com/julianstephens/grove/internal/constants"
	grerrors "github.com/julianstephens/grove/internal/errors"
	"github.com/julianstephens/grove/internal/ledger"
	"github.com/julianstephens/grove/internal/models"
	"github.com/julianstephens/grove/internal/utils"
)

// NewHabit is the user input for creating a habit
type NewHabit struct {
	Title       string
	Description string
	Category    string
	Frequency   models.Frequency
	TargetValue int
	Unit        string
}

// ToggleResult describes the outcome of ToggleCompletion
type ToggleResult struct {
	HabitID     string            `json:"habit_id"`
	Date        string            `json:"date"`
	Completed   bool              `json:"completed"`
	Completion  models.Completion `json:"completion"`
	PointsDelta int               `json:"points_delta"`
}

// Store keeps habits and completions in memory.
// It is not safe for concurrent use; the engine serializes access.
type Store struct {
	clock       clock.Clock
	ledger      *ledger.Ledger
	habits      map[string]*models.Habit
	order       []string
	completions map[string]map[string]models.Completion // habitID -> day -> completion
}

// New builds a store from persisted habits and completions
func New(c clock.Clock, l *ledger.Ledger, habits []models.Habit, completions []models.Completion) *Store {
	s := &Store{
		clock:       c,
		ledger:      l,
		habits:      make(map[string]*models.Habit, len(habits)),
		completions: make(map[string]map[string]models.Completion),
	}
	for i := range habits {
		h := habits[i]
		if _, dup := s.habits[h.ID]; dup {
			continue
		}
		s.habits[h.ID] = &h
		s.order = append(s.order, h.ID)
	}
	for _, c := range completions {
		// later records win, matching upsert semantics
		s.put(c)
	}
	return s
}

// Add creates an active habit
func (s *Store) Add(in NewHabit) (models.Habit, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Habit{}, fmt.Errorf("%w: title is required", grerrors.ErrInvalidHabit)
	}
	freq := in.Frequency
	if freq.Type == "" {
		freq.Type = constants.FrequencyDaily
	}
	if !utils.KnownFrequency(freq.Type) {
		return models.Habit{}, fmt.Errorf("%w: unknown frequency %q", grerrors.ErrInvalidHabit, freq.Type)
	}
	if freq.Type == constants.FrequencyCustom && len(freq.Days) == 0 {
		return models.Habit{}, fmt.Errorf("%w: custom frequency needs at least one day", grerrors.ErrInvalidHabit)
	}
	target := in.TargetValue
	if target <= 0 {
		target = 1
	}
	unit := in.Unit
	if unit == "" {
		unit = "times"
	}

	h := models.Habit{
		ID:          uuid.New().String(),
		Title:       title,
		Description: in.Description,
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Frequency:   freq,
		TargetValue: target,
		Unit:        unit,
		IsActive:    true,
		CreatedAt:   s.clock.Now(),
	}
	s.habits[h.ID] = &h
	s.order = append(s.order, h.ID)
	return h, nil
}

// Get returns a habit that has not been deleted
func (s *Store) Get(id string) (models.Habit, error) {
	h, ok := s.habits[id]
	if !ok || h.DeletedAt != nil {
		return models.Habit{}, fmt.Errorf("%w: %s", grerrors.ErrHabitNotFound, id)
	}
	return *h, nil
}

// SetActive archives or unarchives a habit
func (s *Store) SetActive(id string, active bool) (models.Habit, error) {
	h, ok := s.habits[id]
	if !ok || h.DeletedAt != nil {
		return models.Habit{}, fmt.Errorf("%w: %s", grerrors.ErrHabitNotFound, id)
	}
	h.IsActive = active
	return *h, nil
}

// Delete removes a habit from every read. Its completions are kept for the audit trail.
func (s *Store) Delete(id string) error {
	h, ok := s.habits[id]
	if !ok || h.DeletedAt != nil {
		return fmt.Errorf("%w: %s", grerrors.ErrHabitNotFound, id)
	}
	now := s.clock.Now()
	h.DeletedAt = &now
	h.IsActive = false
	return nil
}

// List returns non-deleted habits in creation order
func (s *Store) List(includeInactive bool) []models.Habit {
	var out []models.Habit
	for _, id := range s.order {
		h := s.habits[id]
		if h.DeletedAt != nil {
			continue
		}
		if !h.IsActive && !includeInactive {
			continue
		}
		out = append(out, *h)
	}
	return out
}

// ToggleCompletion marks a habit done for day (today when empty) or, if it is already
// done, reverts the completion together with its reward. Toggling twice restores both
// the completion set and the balance.
func (s *Store) ToggleCompletion(habitID, day string) (ToggleResult, error) {
	h, ok := s.habits[habitID]
	if !ok || h.DeletedAt != nil || !h.IsActive {
		return ToggleResult{}, fmt.Errorf("%w: %s", grerrors.ErrHabitNotFound, habitID)
	}

	date, err := s.resolveDay(day)
	if err != nil {
		return ToggleResult{}, err
	}
	key := utils.DayKey(date)

	if existing, done := s.completions[habitID][key]; done {
		if _, err := s.ledger.Debit(constants.HabitCompletionReward, ledger.Source(constants.SourceHabitUndo, habitID)); err != nil {
			return ToggleResult{}, fmt.Errorf("undo completion of %s on %s: %w", habitID, key, err)
		}
		delete(s.completions[habitID], key)
		return ToggleResult{
			HabitID:     habitID,
			Date:        key,
			Completed:   false,
			Completion:  existing,
			PointsDelta: -constants.HabitCompletionReward,
		}, nil
	}

	// Credit cannot fail for a positive constant; keep the completion and the entry together anyway.
	if _, err := s.ledger.Credit(constants.HabitCompletionReward, ledger.Source(constants.SourceHabit, habitID)); err != nil {
		return ToggleResult{}, fmt.Errorf("complete %s on %s: %w", habitID, key, err)
	}
	c := models.Completion{
		HabitID:        habitID,
		Date:           key,
		CompletedValue: h.TargetValue,
		Timestamp:      s.clock.Now(),
	}
	s.put(c)

	return ToggleResult{
		HabitID:     habitID,
		Date:        key,
		Completed:   true,
		Completion:  c,
		PointsDelta: constants.HabitCompletionReward,
	}, nil
}

// IsCompleted reports whether a completion exists for (habitID, day)
func (s *Store) IsCompleted(habitID, day string) bool {
	_, ok := s.completions[habitID][day]
	return ok
}

// Streak counts consecutive completed scheduled days walking back from today.
// Unscheduled days are skipped; the first scheduled day without a completion ends the run.
func (s *Store) Streak(habitID string) (int, error) {
	h, err := s.Get(habitID)
	if err != nil {
		return 0, err
	}
	earliest, ok := s.earliestCompletion(habitID)
	if !ok {
		return 0, nil
	}

	today := utils.StartOfDay(s.clock.Now())
	streak := 0
	for i := 0; i < constants.MaxStreakLookbackDays; i++ {
		d := today.AddDate(0, 0, -i)
		if utils.DaysBetween(earliest, d) < 0 {
			break
		}
		if !utils.IsScheduled(h, d) {
			continue
		}
		if !s.IsCompleted(habitID, utils.DayKey(d)) {
			break
		}
		streak++
	}
	return streak, nil
}

// LongestStreak returns the longest run of consecutive completed scheduled days
func (s *Store) LongestStreak(habitID string) (int, error) {
	h, err := s.Get(habitID)
	if err != nil {
		return 0, err
	}
	earliest, ok := s.earliestCompletion(habitID)
	if !ok {
		return 0, nil
	}

	today := utils.StartOfDay(s.clock.Now())
	longest, run := 0, 0
	for d := earliest; utils.DaysBetween(d, today) >= 0; d = d.AddDate(0, 0, 1) {
		if !utils.IsScheduled(h, d) {
			continue
		}
		if s.IsCompleted(habitID, utils.DayKey(d)) {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest, nil
}

// CompletionRate is completed scheduled days over scheduled days in the window ending
// today, as a rounded percentage. It is 0 when nothing was scheduled.
func (s *Store) CompletionRate(habitID string, windowDays int) (int, error) {
	h, err := s.Get(habitID)
	if err != nil {
		return 0, err
	}
	if windowDays <= 0 {
		windowDays = constants.DefaultRateWindowDays
	}

	today := utils.StartOfDay(s.clock.Now())
	scheduled, completed := 0, 0
	for i := 0; i < windowDays; i++ {
		d := today.AddDate(0, 0, -i)
		if !s.dueOn(h, d) {
			continue
		}
		scheduled++
		if s.IsCompleted(habitID, utils.DayKey(d)) {
			completed++
		}
	}
	if scheduled == 0 {
		return 0, nil
	}
	return int(math.Round(float64(completed) / float64(scheduled) * 100)), nil
}

// TodaysHabits returns active habits due today with their derived statistics
func (s *Store) TodaysHabits() []models.TodayHabit {
	today := utils.StartOfDay(s.clock.Now())
	key := utils.DayKey(today)

	var out []models.TodayHabit
	for _, h := range s.ScheduledOn(today) {
		streak, _ := s.Streak(h.ID)
		rate, _ := s.CompletionRate(h.ID, constants.DefaultRateWindowDays)
		out = append(out, models.TodayHabit{
			Habit:          h,
			Completed:      s.IsCompleted(h.ID, key),
			Streak:         streak,
			CompletionRate: rate,
		})
	}
	return out
}

// ScheduledOn returns the active habits due on date. Days before a habit was tracked
// are not due.
func (s *Store) ScheduledOn(date time.Time) []models.Habit {
	var out []models.Habit
	for _, h := range s.List(false) {
		if s.dueOn(h, date) {
			out = append(out, h)
		}
	}
	return out
}

// CompletionsOn returns completions of non-deleted habits recorded for day
func (s *Store) CompletionsOn(day string) []models.Completion {
	var out []models.Completion
	for _, id := range s.order {
		if s.habits[id].DeletedAt != nil {
			continue
		}
		if c, ok := s.completions[id][day]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Habits returns every habit including deleted ones, for persistence
func (s *Store) Habits() []models.Habit {
	out := make([]models.Habit, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.habits[id])
	}
	return out
}

// Completions returns every completion ordered by habit then day, for persistence
func (s *Store) Completions() []models.Completion {
	out := []models.Completion{}
	for _, id := range s.order {
		days := make([]string, 0, len(s.completions[id]))
		for day := range s.completions[id] {
			days = append(days, day)
		}
		sort.Strings(days)
		for _, day := range days {
			out = append(out, s.completions[id][day])
		}
	}
	return out
}

func (s *Store) put(c models.Completion) {
	if s.completions[c.HabitID] == nil {
		s.completions[c.HabitID] = make(map[string]models.Completion)
	}
	s.completions[c.HabitID][c.Date] = c
}

func (s *Store) earliestCompletion(habitID string) (time.Time, bool) {
	earliest := ""
	for day := range s.completions[habitID] {
		if earliest == "" || day < earliest {
			earliest = day
		}
	}
	if earliest == "" {
		return time.Time{}, false
	}
	t, err := utils.ParseDay(earliest, s.clock.Now().Location())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// trackedSince is the habit's creation day, or an earlier backfilled completion day
func (s *Store) trackedSince(h models.Habit, loc *time.Location) time.Time {
	start := utils.StartOfDay(h.CreatedAt.In(loc))
	if earliest, ok := s.earliestCompletion(h.ID); ok && earliest.Before(start) {
		return earliest
	}
	return start
}

func (s *Store) dueOn(h models.Habit, date time.Time) bool {
	day := utils.StartOfDay(date)
	return utils.IsScheduled(h, day) && !day.Before(s.trackedSince(h, day.Location()))
}

// resolveDay parses day (today when empty) and rejects days in the future
func (s *Store) resolveDay(day string) (time.Time, error) {
	now := s.clock.Now()
	if day == "" {
		return utils.StartOfDay(now), nil
	}
	date, err := utils.ParseDay(day, now.Location())
	if err != nil {
		return time.Time{}, err
	}
	if utils.DaysBetween(now, date) > 0 {
		return time.Time{}, fmt.Errorf("%w: %s is in the future", grerrors.ErrInvalidDate, day)
	}
	return date, nil
}
