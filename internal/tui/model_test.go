package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/grove/internal/clock"
	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/engine"
	"github.com/julianstephens/grove/internal/habits"
	"github.com/julianstephens/grove/internal/models"
	"github.com/julianstephens/grove/internal/storage/jsonfile"
	"github.com/julianstephens/grove/internal/tui/components/garden"
	"github.com/julianstephens/grove/internal/tui/components/habitlist"
)

func setupTestModel(t *testing.T) (Model, *engine.Engine) {
	t.Helper()
	store := jsonfile.New(t.TempDir())
	if err := store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	clk := clock.NewFixed(time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC))
	e, err := engine.Open(context.Background(), "user:alice", store, engine.Options{Clock: clk})
	if err != nil {
		t.Fatalf("failed to open engine: %v", err)
	}
	return NewModel(e), e
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestTabCycling(t *testing.T) {
	m, _ := setupTestModel(t)

	for _, want := range []constants.SessionState{constants.StateQuests, constants.StateGarden, constants.StateCalendar, constants.StateToday} {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
		if m.state != want {
			t.Fatalf("state = %d, want %d", m.state, want)
		}
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.state != constants.StateCalendar {
		t.Errorf("shift+tab should wrap to the calendar, got %d", m.state)
	}
}

func TestToggleHabitAwardsPoints(t *testing.T) {
	m, e := setupTestModel(t)
	h, err := e.AddHabit(habits.NewHabit{Title: "Read", Frequency: models.Frequency{Type: constants.FrequencyDaily}})
	if err != nil {
		t.Fatal(err)
	}
	e.GenerateDaily()

	m = update(t, m, habitlist.ToggleHabitMsg{ID: h.ID})
	if m.statusIsError {
		t.Fatalf("toggle reported an error: %s", m.status)
	}
	if e.Balance() != 25 {
		t.Errorf("balance = %d, want 25 (habit + complete-all quest)", e.Balance())
	}
	if !strings.Contains(m.status, "+5") {
		t.Errorf("status should show the reward, got %q", m.status)
	}
}

func TestWaterErrorsAreShown(t *testing.T) {
	m, _ := setupTestModel(t)

	m = update(t, m, garden.WaterPlantMsg{ID: "missing"})
	if !m.statusIsError {
		t.Errorf("watering an unknown plant should set an error status, got %q", m.status)
	}
}

func TestPlantFormCancel(t *testing.T) {
	m, _ := setupTestModel(t)
	m.state = constants.StateGarden

	m = update(t, m, garden.PlantMsg{})
	if m.state != constants.StatePlant || m.form == nil {
		t.Fatalf("expected the plant form to open, state = %d", m.state)
	}
	if !strings.Contains(m.View(), "Species") {
		t.Error("plant form should list species")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != constants.StateGarden || m.form != nil {
		t.Errorf("esc should close the form and return to the garden, state = %d", m.state)
	}
}

func TestCalendarMonthNavigation(t *testing.T) {
	m, _ := setupTestModel(t)
	m.state = constants.StateCalendar

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("]")})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("]")})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("]")})
	if m.calYear != 2027 || m.calMonth != 1 {
		t.Errorf("expected January 2027, got %d-%02d", m.calYear, m.calMonth)
	}
	if !strings.Contains(m.View(), "January 2027") {
		t.Error("calendar view should show the selected month")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("[")})
	if m.calYear != 2026 || m.calMonth != 12 {
		t.Errorf("expected December 2026, got %d-%02d", m.calYear, m.calMonth)
	}
}

func TestQuitKey(t *testing.T) {
	m, _ := setupTestModel(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !next.(Model).quitting || cmd == nil {
		t.Error("q should quit")
	}
	if next.(Model).View() != "" {
		t.Error("view should be empty after quitting")
	}
}
