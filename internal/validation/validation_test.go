package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/grove/internal/models"
)

func validState() models.EngineState {
	state := models.NewEngineState("user:alice")
	state.Habits = []models.Habit{
		{ID: "h1", Title: "Read", IsActive: true},
		{ID: "h2", Title: "Run", IsActive: true},
	}
	state.Completions = []models.Completion{
		{HabitID: "h1", Date: "2026-10-15", CompletedValue: 1},
		{HabitID: "h1", Date: "2026-10-16", CompletedValue: 1},
	}
	state.Ledger = []models.LedgerEntry{
		{Amount: 60, Source: "manual"},
		{Amount: -50, Source: "bamboo-plant:moso"},
	}
	state.Plants = []models.BambooPlant{
		{ID: "p1", Species: "moso", Name: "Moso", DailyWaterCount: 2, LastWateredDate: "2026-10-16"},
	}
	return state
}

func hasConflict(r Result, want ConflictType) bool {
	for _, c := range r.Conflicts {
		if c.Type == want {
			return true
		}
	}
	return false
}

func TestValidateState_Clean(t *testing.T) {
	result := New(nil).ValidateState("user:alice", validState())
	if result.HasConflicts() {
		t.Fatalf("expected no conflicts, got:\n%s", result.FormatReport())
	}
	if result.FormatReport() != "No conflicts detected." {
		t.Errorf("unexpected report: %q", result.FormatReport())
	}
}

func TestValidateState_Conflicts(t *testing.T) {
	deleted := time.Now()

	tests := []struct {
		name   string
		mutate func(*models.EngineState)
		want   ConflictType
	}{
		{
			name: "duplicate title ignores case",
			mutate: func(s *models.EngineState) {
				s.Habits = append(s.Habits, models.Habit{ID: "h3", Title: "read"})
			},
			want: ConflictDuplicateHabitTitle,
		},
		{
			name: "orphan completion",
			mutate: func(s *models.EngineState) {
				s.Completions = append(s.Completions, models.Completion{HabitID: "ghost", Date: "2026-10-16"})
			},
			want: ConflictOrphanCompletion,
		},
		{
			name: "duplicate completion",
			mutate: func(s *models.EngineState) {
				s.Completions = append(s.Completions, models.Completion{HabitID: "h1", Date: "2026-10-16"})
			},
			want: ConflictDuplicateCompletion,
		},
		{
			name: "invalid completion date",
			mutate: func(s *models.EngineState) {
				s.Completions[0].Date = "10/15/2026"
			},
			want: ConflictInvalidDate,
		},
		{
			name: "negative running balance",
			mutate: func(s *models.EngineState) {
				s.Ledger = []models.LedgerEntry{{Amount: -5, Source: "habit-undo:h1"}, {Amount: 10, Source: "habit:h1"}}
			},
			want: ConflictNegativeBalance,
		},
		{
			name: "unknown species",
			mutate: func(s *models.EngineState) {
				s.Plants[0].Species = "bonsai"
			},
			want: ConflictUnknownSpecies,
		},
		{
			name: "water limit",
			mutate: func(s *models.EngineState) {
				s.Plants[0].DailyWaterCount = 4
			},
			want: ConflictWaterLimit,
		},
		{
			name: "identity mismatch",
			mutate: func(s *models.EngineState) {
				s.Identity = "user:bob"
			},
			want: ConflictIdentityMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := validState()
			tt.mutate(&state)
			result := New(nil).ValidateState("user:alice", state)
			if !hasConflict(result, tt.want) {
				t.Errorf("expected %s conflict, got:\n%s", tt.want, result.FormatReport())
			}
		})
	}

	t.Run("deleted habits do not clash", func(t *testing.T) {
		state := validState()
		state.Habits = append(state.Habits, models.Habit{ID: "h3", Title: "Read", DeletedAt: &deleted})
		result := New(nil).ValidateState("user:alice", state)
		if hasConflict(result, ConflictDuplicateHabitTitle) {
			t.Error("a deleted habit should not count as a duplicate")
		}
	})
}

func TestFormatReportListsEveryConflict(t *testing.T) {
	state := validState()
	state.Plants[0].Species = "bonsai"
	state.Plants[0].DailyWaterCount = 9
	result := New(nil).ValidateState("user:alice", state)

	report := result.FormatReport()
	if got := strings.Count(report, "\n- "); got != 2 {
		t.Errorf("expected 2 conflicts in report, got %d:\n%s", got, report)
	}
}
