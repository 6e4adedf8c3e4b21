package habits

import (
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/grove/internal/clock"
	"github.com/julianstephens/grove/internal/constants"
	grerrors "github.com/julianstephens/grove/internal/errors"
	"github.com/julianstephens/grove/internal/ledger"
	"github.com/julianstephens/grove/internal/models"
)

// Friday 2026-10-16, 08:00 UTC
var testNow = time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) (*Store, *ledger.Ledger, *clock.Fixed) {
	t.Helper()
	c := clock.NewFixed(testNow)
	l := ledger.New(c, nil)
	return New(c, l, nil, nil), l, c
}

func addDaily(t *testing.T, s *Store, title string) models.Habit {
	t.Helper()
	h, err := s.Add(NewHabit{Title: title, Frequency: models.Frequency{Type: constants.FrequencyDaily}})
	if err != nil {
		t.Fatalf("failed to add habit: %v", err)
	}
	return h
}

func TestAddHabitDefaults(t *testing.T) {
	s, _, _ := setupTestStore(t)

	h, err := s.Add(NewHabit{Title: "  Drink water ", Category: "Health"})
	if err != nil {
		t.Fatalf("failed to add habit: %v", err)
	}
	if h.Title != "Drink water" {
		t.Errorf("expected trimmed title, got %q", h.Title)
	}
	if h.Frequency.Type != constants.FrequencyDaily {
		t.Errorf("expected daily default, got %s", h.Frequency.Type)
	}
	if h.TargetValue != 1 || h.Unit != "times" {
		t.Errorf("unexpected target defaults %d %q", h.TargetValue, h.Unit)
	}
	if h.Category != "health" {
		t.Errorf("expected lowercased category, got %q", h.Category)
	}
	if !h.IsActive {
		t.Error("new habit should be active")
	}

	if _, err := s.Add(NewHabit{Title: ""}); !errors.Is(err, grerrors.ErrInvalidHabit) {
		t.Errorf("expected ErrInvalidHabit for empty title, got %v", err)
	}
	if _, err := s.Add(NewHabit{Title: "x", Frequency: models.Frequency{Type: constants.FrequencyCustom}}); !errors.Is(err, grerrors.ErrInvalidHabit) {
		t.Errorf("expected ErrInvalidHabit for custom without days, got %v", err)
	}
}

func TestToggleRoundTrip(t *testing.T) {
	s, l, _ := setupTestStore(t)
	h := addDaily(t, s, "Meditate")

	before := l.Balance()

	res, err := s.ToggleCompletion(h.ID, "")
	if err != nil {
		t.Fatalf("toggle on failed: %v", err)
	}
	if !res.Completed || res.PointsDelta != constants.HabitCompletionReward {
		t.Errorf("unexpected toggle result %+v", res)
	}
	if res.Completion.CompletedValue != h.TargetValue {
		t.Errorf("expected completed value %d, got %d", h.TargetValue, res.Completion.CompletedValue)
	}
	if l.Balance() != before+constants.HabitCompletionReward {
		t.Errorf("expected balance %d, got %d", before+constants.HabitCompletionReward, l.Balance())
	}

	res, err = s.ToggleCompletion(h.ID, "2026-10-16")
	if err != nil {
		t.Fatalf("toggle off failed: %v", err)
	}
	if res.Completed {
		t.Error("second toggle should revert the completion")
	}
	if l.Balance() != before {
		t.Errorf("expected balance back to %d, got %d", before, l.Balance())
	}
	if s.IsCompleted(h.ID, "2026-10-16") {
		t.Error("completion should be gone")
	}
	if len(s.Completions()) != 0 {
		t.Errorf("expected no completions, got %d", len(s.Completions()))
	}
}

func TestToggleUndoNeedsBalance(t *testing.T) {
	s, l, _ := setupTestStore(t)
	h := addDaily(t, s, "Read")

	if _, err := s.ToggleCompletion(h.ID, ""); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	// Spend the reward elsewhere
	if _, err := l.Debit(constants.HabitCompletionReward, constants.SourceManual); err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	_, err := s.ToggleCompletion(h.ID, "")
	if !errors.Is(err, grerrors.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if !s.IsCompleted(h.ID, "2026-10-16") {
		t.Error("rejected undo must leave the completion in place")
	}
	if l.Balance() != 0 {
		t.Errorf("balance must stay at 0, got %d", l.Balance())
	}
}

func TestToggleRejectsUnknownInactiveAndBadDates(t *testing.T) {
	s, _, _ := setupTestStore(t)
	h := addDaily(t, s, "Stretch")

	if _, err := s.ToggleCompletion("missing", ""); !errors.Is(err, grerrors.ErrHabitNotFound) {
		t.Errorf("expected ErrHabitNotFound, got %v", err)
	}

	if _, err := s.ToggleCompletion(h.ID, "16/10/2026"); !errors.Is(err, grerrors.ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := s.ToggleCompletion(h.ID, "2026-10-17"); !errors.Is(err, grerrors.ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate for a future day, got %v", err)
	}

	if _, err := s.SetActive(h.ID, false); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if _, err := s.ToggleCompletion(h.ID, ""); !errors.Is(err, grerrors.ErrHabitNotFound) {
		t.Errorf("expected ErrHabitNotFound for inactive habit, got %v", err)
	}

	if err := s.Delete(h.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(s.List(true)) != 0 {
		t.Error("deleted habit should not be listed")
	}
	if err := s.Delete(h.ID); !errors.Is(err, grerrors.ErrHabitNotFound) {
		t.Errorf("second delete should report ErrHabitNotFound, got %v", err)
	}
}

func TestStreakStopsAtFirstGap(t *testing.T) {
	s, _, _ := setupTestStore(t)
	h := addDaily(t, s, "Walk")

	for _, day := range []string{"2026-10-16", "2026-10-15", "2026-10-14", "2026-10-12"} {
		if _, err := s.ToggleCompletion(h.ID, day); err != nil {
			t.Fatalf("toggle %s failed: %v", day, err)
		}
	}

	streak, err := s.Streak(h.ID)
	if err != nil {
		t.Fatalf("streak failed: %v", err)
	}
	if streak != 3 {
		t.Errorf("expected streak 3, got %d", streak)
	}

	longest, err := s.LongestStreak(h.ID)
	if err != nil {
		t.Fatalf("longest streak failed: %v", err)
	}
	if longest != 3 {
		t.Errorf("expected longest streak 3, got %d", longest)
	}
}

func TestStreakSkipsUnscheduledDays(t *testing.T) {
	s, _, c := setupTestStore(t)
	// Monday 2026-10-19
	c.Set(time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC))

	h, err := s.Add(NewHabit{Title: "Standup", Frequency: models.Frequency{Type: constants.FrequencyWeekdays}})
	if err != nil {
		t.Fatalf("failed to add habit: %v", err)
	}
	// Thu, Fri, (weekend skipped), Mon
	for _, day := range []string{"2026-10-15", "2026-10-16", "2026-10-19"} {
		if _, err := s.ToggleCompletion(h.ID, day); err != nil {
			t.Fatalf("toggle %s failed: %v", day, err)
		}
	}

	streak, err := s.Streak(h.ID)
	if err != nil {
		t.Fatalf("streak failed: %v", err)
	}
	if streak != 3 {
		t.Errorf("expected weekend not to break the streak (3), got %d", streak)
	}
}

func TestStreakZeroWhenTodayMissing(t *testing.T) {
	s, _, _ := setupTestStore(t)
	h := addDaily(t, s, "Journal")

	if _, err := s.ToggleCompletion(h.ID, "2026-10-15"); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	streak, _ := s.Streak(h.ID)
	if streak != 0 {
		t.Errorf("expected streak 0 with today open, got %d", streak)
	}

	if _, err := s.Streak("nope"); !errors.Is(err, grerrors.ErrHabitNotFound) {
		t.Errorf("expected ErrHabitNotFound, got %v", err)
	}
}

func TestCompletionRate(t *testing.T) {
	s, _, _ := setupTestStore(t)
	h := addDaily(t, s, "Floss")

	for _, day := range []string{"2026-10-16", "2026-10-14", "2026-10-11"} {
		if _, err := s.ToggleCompletion(h.ID, day); err != nil {
			t.Fatalf("toggle %s failed: %v", day, err)
		}
	}

	rate, err := s.CompletionRate(h.ID, 7)
	if err != nil {
		t.Fatalf("rate failed: %v", err)
	}
	// tracked since the backfilled 11th: 3 of 6
	if rate != 50 {
		t.Errorf("expected 50%%, got %d", rate)
	}

	weekend, err := s.Add(NewHabit{Title: "Hike", Frequency: models.Frequency{Type: constants.FrequencyWeekends}})
	if err != nil {
		t.Fatalf("failed to add habit: %v", err)
	}
	rate, _ = s.CompletionRate(weekend.ID, 1)
	if rate != 0 {
		t.Errorf("expected 0%% when nothing is scheduled, got %d", rate)
	}
}

func TestCompletionRateIgnoresDaysBeforeCreation(t *testing.T) {
	s, _, c := setupTestStore(t)
	h := addDaily(t, s, "Journal")

	if _, err := s.ToggleCompletion(h.ID, ""); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if rate, _ := s.CompletionRate(h.ID, 7); rate != 100 {
		t.Errorf("habit created and done today: expected 100%%, got %d", rate)
	}

	c.AdvanceDays(1)
	if rate, _ := s.CompletionRate(h.ID, 7); rate != 50 {
		t.Errorf("expected 50%% after one missed day, got %d", rate)
	}

	before := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	if due := s.ScheduledOn(before); len(due) != 0 {
		t.Errorf("habit should not be due before it was created, got %d", len(due))
	}
}

func TestTodaysHabits(t *testing.T) {
	s, _, _ := setupTestStore(t)
	daily := addDaily(t, s, "Vitamins")
	if _, err := s.Add(NewHabit{Title: "Long run", Frequency: models.Frequency{Type: constants.FrequencyWeekends}}); err != nil {
		t.Fatalf("failed to add habit: %v", err)
	}
	archived := addDaily(t, s, "Old habit")
	if _, err := s.SetActive(archived.ID, false); err != nil {
		t.Fatalf("archive failed: %v", err)
	}

	if _, err := s.ToggleCompletion(daily.ID, ""); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	today := s.TodaysHabits()
	if len(today) != 1 {
		t.Fatalf("expected only the active daily habit today, got %d", len(today))
	}
	if !today[0].Completed || today[0].Streak != 1 || today[0].CompletionRate != 100 {
		t.Errorf("unexpected annotation %+v", today[0])
	}
}

func TestNewStoreUpsertsCompletions(t *testing.T) {
	c := clock.NewFixed(testNow)
	l := ledger.New(c, nil)
	habit := models.Habit{ID: "h1", Title: "Tea", IsActive: true, Frequency: models.Frequency{Type: constants.FrequencyDaily}, CreatedAt: testNow}
	s := New(c, l, []models.Habit{habit}, []models.Completion{
		{HabitID: "h1", Date: "2026-10-16", CompletedValue: 1},
		{HabitID: "h1", Date: "2026-10-16", CompletedValue: 2},
	})

	all := s.Completions()
	if len(all) != 1 {
		t.Fatalf("expected one completion per day, got %d", len(all))
	}
	if all[0].CompletedValue != 2 {
		t.Errorf("expected the later record to win, got %d", all[0].CompletedValue)
	}
}
