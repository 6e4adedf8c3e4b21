// Package sqlstate maps an engine state onto the relational schema shared by the SQL backends.
package sqlstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/migration"
	"github.com/julianstephens/grove/internal/models"
)

var stateTables = []string{"habits", "completions", "quests", "plants"}

// Load reads the state of identity. An unknown identity yields an empty state.
func Load(ctx context.Context, db *sql.DB, d migration.Driver, identity string) (models.EngineState, error) {
	state := models.NewEngineState(identity)

	var version int
	var updatedAt string
	err := db.QueryRowContext(ctx, d.Rebind("SELECT state_version, updated_at FROM identities WHERE key = ?"), identity).
		Scan(&version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("failed to read identity: %w", err)
	}
	if version > models.StateVersion {
		return state, fmt.Errorf("state version %d is newer than supported version %d", version, models.StateVersion)
	}
	if state.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return state, err
	}

	if state.Habits, err = loadHabits(ctx, db, d, identity); err != nil {
		return state, fmt.Errorf("failed to load habits: %w", err)
	}
	if state.Completions, err = loadCompletions(ctx, db, d, identity); err != nil {
		return state, fmt.Errorf("failed to load completions: %w", err)
	}
	if state.Ledger, err = loadLedger(ctx, db, d, identity); err != nil {
		return state, fmt.Errorf("failed to load ledger: %w", err)
	}
	if state.Quests, err = loadQuests(ctx, db, d, identity); err != nil {
		return state, fmt.Errorf("failed to load quests: %w", err)
	}
	if state.Plants, err = loadPlants(ctx, db, d, identity); err != nil {
		return state, fmt.Errorf("failed to load plants: %w", err)
	}
	return state, nil
}

// Save replaces the stored state of identity in one transaction.
// Ledger entries are append-only, so only entries past the stored count are inserted.
func Save(ctx context.Context, db *sql.DB, d migration.Driver, identity string, state models.EngineState) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	exec := func(query string, args ...any) error {
		_, err := tx.ExecContext(ctx, d.Rebind(query), args...)
		return err
	}

	if err := exec(`INSERT INTO identities (key, state_version, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET state_version = excluded.state_version, updated_at = excluded.updated_at`,
		identity, models.StateVersion, formatTime(state.UpdatedAt)); err != nil {
		return fmt.Errorf("failed to upsert identity: %w", err)
	}

	for _, table := range stateTables {
		if err := exec("DELETE FROM "+table+" WHERE identity = ?", identity); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i, h := range state.Habits {
		var deletedAt any
		if h.DeletedAt != nil {
			deletedAt = formatTime(*h.DeletedAt)
		}
		if err := exec(`INSERT INTO habits (identity, id, position, title, description, category, frequency_type,
			frequency_days, target_value, unit, is_active, created_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			identity, h.ID, i, h.Title, h.Description, h.Category, string(h.Frequency.Type),
			formatDays(h.Frequency.Days), h.TargetValue, h.Unit, h.IsActive, formatTime(h.CreatedAt), deletedAt); err != nil {
			return fmt.Errorf("failed to save habit %s: %w", h.ID, err)
		}
	}

	for _, c := range state.Completions {
		if err := exec(`INSERT INTO completions (identity, habit_id, date, completed_value, timestamp) VALUES (?, ?, ?, ?, ?)`,
			identity, c.HabitID, c.Date, c.CompletedValue, formatTime(c.Timestamp)); err != nil {
			return fmt.Errorf("failed to save completion %s/%s: %w", c.HabitID, c.Date, err)
		}
	}

	for i, q := range state.Quests {
		if err := exec(`INSERT INTO quests (identity, id, position, type, date, title, description, target, progress, points, completed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			identity, q.ID, i, string(q.Type), q.Date, q.Title, q.Description, q.Target, q.Progress, q.Points, q.Completed); err != nil {
			return fmt.Errorf("failed to save quest %s: %w", q.ID, err)
		}
	}

	for i, p := range state.Plants {
		if err := exec(`INSERT INTO plants (identity, id, position, species, name, planted_date, daily_water_count,
			last_watered_date, total_waterings) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			identity, p.ID, i, p.Species, p.Name, formatTime(p.PlantedDate), p.DailyWaterCount,
			p.LastWateredDate, p.TotalWaterings); err != nil {
			return fmt.Errorf("failed to save plant %s: %w", p.ID, err)
		}
	}

	var stored int
	if err := tx.QueryRowContext(ctx, d.Rebind("SELECT COUNT(*) FROM ledger_entries WHERE identity = ?"), identity).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count ledger entries: %w", err)
	}
	if stored > len(state.Ledger) {
		return fmt.Errorf("ledger for %s has %d stored entries but only %d in memory", identity, stored, len(state.Ledger))
	}
	for seq := stored; seq < len(state.Ledger); seq++ {
		e := state.Ledger[seq]
		if err := exec(`INSERT INTO ledger_entries (identity, seq, amount, source, timestamp) VALUES (?, ?, ?, ?, ?)`,
			identity, seq, e.Amount, e.Source, formatTime(e.Timestamp)); err != nil {
			return fmt.Errorf("failed to append ledger entry %d: %w", seq, err)
		}
	}

	return tx.Commit()
}

// Identities lists every stored identity key
func Identities(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT key FROM identities ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func loadHabits(ctx context.Context, db *sql.DB, d migration.Driver, identity string) ([]models.Habit, error) {
	rows, err := db.QueryContext(ctx, d.Rebind(`SELECT id, title, description, category, frequency_type, frequency_days,
		target_value, unit, is_active, created_at, deleted_at FROM habits WHERE identity = ? ORDER BY position`), identity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		var h models.Habit
		var freqType, freqDays, createdAt string
		var deletedAt sql.NullString
		if err := rows.Scan(&h.ID, &h.Title, &h.Description, &h.Category, &freqType, &freqDays,
			&h.TargetValue, &h.Unit, &h.IsActive, &createdAt, &deletedAt); err != nil {
			return nil, err
		}
		h.Frequency.Type = constants.FrequencyType(freqType)
		if h.Frequency.Days, err = parseDays(freqDays); err != nil {
			return nil, fmt.Errorf("habit %s: %w", h.ID, err)
		}
		if h.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("habit %s: %w", h.ID, err)
		}
		if deletedAt.Valid {
			t, err := parseTime(deletedAt.String)
			if err != nil {
				return nil, fmt.Errorf("habit %s: %w", h.ID, err)
			}
			h.DeletedAt = &t
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func loadCompletions(ctx context.Context, db *sql.DB, d migration.Driver, identity string) ([]models.Completion, error) {
	rows, err := db.QueryContext(ctx, d.Rebind(`SELECT habit_id, date, completed_value, timestamp
		FROM completions WHERE identity = ? ORDER BY habit_id, date`), identity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completions := []models.Completion{}
	for rows.Next() {
		var c models.Completion
		var ts string
		if err := rows.Scan(&c.HabitID, &c.Date, &c.CompletedValue, &ts); err != nil {
			return nil, err
		}
		if c.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

func loadLedger(ctx context.Context, db *sql.DB, d migration.Driver, identity string) ([]models.LedgerEntry, error) {
	rows, err := db.QueryContext(ctx, d.Rebind(`SELECT amount, source, timestamp
		FROM ledger_entries WHERE identity = ? ORDER BY seq`), identity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var e models.LedgerEntry
		var ts string
		if err := rows.Scan(&e.Amount, &e.Source, &ts); err != nil {
			return nil, err
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func loadQuests(ctx context.Context, db *sql.DB, d migration.Driver, identity string) ([]models.Quest, error) {
	rows, err := db.QueryContext(ctx, d.Rebind(`SELECT id, type, date, title, description, target, progress, points, completed
		FROM quests WHERE identity = ? ORDER BY position`), identity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quests := []models.Quest{}
	for rows.Next() {
		var q models.Quest
		var qt string
		if err := rows.Scan(&q.ID, &qt, &q.Date, &q.Title, &q.Description, &q.Target, &q.Progress, &q.Points, &q.Completed); err != nil {
			return nil, err
		}
		q.Type = constants.QuestType(qt)
		quests = append(quests, q)
	}
	return quests, rows.Err()
}

func loadPlants(ctx context.Context, db *sql.DB, d migration.Driver, identity string) ([]models.BambooPlant, error) {
	rows, err := db.QueryContext(ctx, d.Rebind(`SELECT id, species, name, planted_date, daily_water_count, last_watered_date,
		total_waterings FROM plants WHERE identity = ? ORDER BY position`), identity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plants := []models.BambooPlant{}
	for rows.Next() {
		var p models.BambooPlant
		var planted string
		if err := rows.Scan(&p.ID, &p.Species, &p.Name, &planted, &p.DailyWaterCount, &p.LastWateredDate, &p.TotalWaterings); err != nil {
			return nil, err
		}
		if p.PlantedDate, err = parseTime(planted); err != nil {
			return nil, fmt.Errorf("plant %s: %w", p.ID, err)
		}
		plants = append(plants, p)
	}
	return plants, rows.Err()
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	return t, nil
}

// formatDays stores weekdays as a comma separated list of 0 (Sunday) to 6
func formatDays(days []time.Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

func parseDays(s string) ([]time.Weekday, error) {
	if s == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}
