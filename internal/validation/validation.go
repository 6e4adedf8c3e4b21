// Package validation checks persisted engine state for inconsistencies the
// engine itself never produces.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/grove/internal/bamboo"
	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/models"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictDuplicateHabitTitle ConflictType = "duplicate_habit_title"
	ConflictOrphanCompletion    ConflictType = "orphan_completion"
	ConflictDuplicateCompletion ConflictType = "duplicate_completion"
	ConflictInvalidDate         ConflictType = "invalid_date"
	ConflictNegativeBalance     ConflictType = "negative_balance"
	ConflictUnknownSpecies      ConflictType = "unknown_species"
	ConflictWaterLimit          ConflictType = "water_limit_exceeded"
	ConflictIdentityMismatch    ConflictType = "identity_mismatch"
)

// Conflict represents a detected problem in a stored state
type Conflict struct {
	Type        ConflictType
	Description string
	IDs         []string
}

// Result contains all detected conflicts
type Result struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (r *Result) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (r *Result) FormatReport() string {
	if !r.HasConflicts() {
		return "No conflicts detected."
	}
	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range r.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

func (r *Result) add(t ConflictType, ids []string, format string, args ...any) {
	r.Conflicts = append(r.Conflicts, Conflict{Type: t, Description: fmt.Sprintf(format, args...), IDs: ids})
}

// Validator validates engine states against a species catalog
type Validator struct {
	catalog *bamboo.Catalog
}

// New creates a Validator. A nil catalog uses the built-in one.
func New(catalog *bamboo.Catalog) *Validator {
	if catalog == nil {
		catalog = bamboo.DefaultCatalog()
	}
	return &Validator{catalog: catalog}
}

// ValidateState checks one stored state. identity is the key it was loaded under.
func (v *Validator) ValidateState(identity string, state models.EngineState) Result {
	result := Result{Conflicts: []Conflict{}}

	if state.Identity != "" && state.Identity != identity {
		result.add(ConflictIdentityMismatch, []string{identity},
			"State stored under %q claims identity %q", identity, state.Identity)
	}

	v.checkHabits(&result, state)
	v.checkCompletions(&result, state)
	v.checkLedger(&result, state)
	v.checkPlants(&result, state)
	return result
}

func (v *Validator) checkHabits(result *Result, state models.EngineState) {
	titles := make(map[string][]string)
	for _, h := range state.Habits {
		if h.DeletedAt != nil || h.Title == "" {
			continue
		}
		key := strings.ToLower(h.Title)
		titles[key] = append(titles[key], h.ID)
	}

	names := make([]string, 0, len(titles))
	for name := range titles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if ids := titles[name]; len(ids) > 1 {
			result.add(ConflictDuplicateHabitTitle, ids, "Duplicate habit title: %q (IDs: %v)", name, ids)
		}
	}
}

func (v *Validator) checkCompletions(result *Result, state models.EngineState) {
	known := make(map[string]bool, len(state.Habits))
	for _, h := range state.Habits {
		known[h.ID] = true
	}

	seen := make(map[string]bool, len(state.Completions))
	for _, c := range state.Completions {
		if !known[c.HabitID] {
			result.add(ConflictOrphanCompletion, []string{c.HabitID},
				"Completion on %s references unknown habit %s", c.Date, c.HabitID)
		}
		if !isValidDate(c.Date) {
			result.add(ConflictInvalidDate, []string{c.HabitID},
				"Completion for habit %s has invalid date: %q", c.HabitID, c.Date)
			continue
		}
		key := c.HabitID + "|" + c.Date
		if seen[key] {
			result.add(ConflictDuplicateCompletion, []string{c.HabitID},
				"Habit %s is completed more than once on %s", c.HabitID, c.Date)
		}
		seen[key] = true
	}

	for _, q := range state.Quests {
		if !isValidDate(q.Date) {
			result.add(ConflictInvalidDate, []string{q.ID}, "Quest %s has invalid date: %q", q.ID, q.Date)
		}
	}
}

// checkLedger replays entries in order; the running balance may never dip below zero
func (v *Validator) checkLedger(result *Result, state models.EngineState) {
	balance := 0
	for i, e := range state.Ledger {
		balance += e.Amount
		if balance < 0 {
			result.add(ConflictNegativeBalance, nil,
				"Ledger balance drops to %d at entry %d (%s)", balance, i+1, e.Source)
			return
		}
	}
}

func (v *Validator) checkPlants(result *Result, state models.EngineState) {
	for _, p := range state.Plants {
		if _, err := v.catalog.Lookup(p.Species); err != nil {
			result.add(ConflictUnknownSpecies, []string{p.ID}, "Plant %q has unknown species %q", p.Name, p.Species)
		}
		if p.DailyWaterCount > constants.DailyWaterLimit {
			result.add(ConflictWaterLimit, []string{p.ID},
				"Plant %q was watered %d times on %s (limit %d)", p.Name, p.DailyWaterCount, p.LastWateredDate, constants.DailyWaterLimit)
		}
		if p.LastWateredDate != "" && !isValidDate(p.LastWateredDate) {
			result.add(ConflictInvalidDate, []string{p.ID}, "Plant %q has invalid watering date: %q", p.Name, p.LastWateredDate)
		}
	}
}

func isValidDate(s string) bool {
	_, err := time.Parse(constants.DateFormat, s)
	return err == nil
}
