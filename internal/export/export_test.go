package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/models"
)

func sampleState(key string) models.EngineState {
	ts := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	s := models.NewEngineState(key)
	s.Habits = append(s.Habits, models.Habit{
		ID: "h1", Title: "Read", IsActive: true, TargetValue: 1, CreatedAt: ts,
		Frequency: models.Frequency{Type: constants.FrequencyDaily},
	})
	s.Completions = append(s.Completions, models.Completion{HabitID: "h1", Date: "2026-10-16", CompletedValue: 1, Timestamp: ts})
	s.Ledger = append(s.Ledger,
		models.LedgerEntry{Amount: 5, Source: "habit:h1", Timestamp: ts},
		models.LedgerEntry{Amount: 15, Source: "quest:streak", Timestamp: ts},
	)
	s.Plants = append(s.Plants, models.BambooPlant{ID: "p1", Species: "moso", Name: "Moss", PlantedDate: ts})
	return s
}

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.WriteState(sampleState("user:alice")); err != nil {
		t.Fatalf("WriteState failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if w.Count() != 5 {
		t.Errorf("Count() = %d, want 5", w.Count())
	}

	counts := map[RecordKind]int{}
	var ledgerTotal int
	err = Read(&buf, func(rec Record) error {
		counts[rec.Kind]++
		if rec.Identity != "user:alice" {
			t.Errorf("record identity = %q", rec.Identity)
		}
		if rec.Kind == KindLedger {
			ledgerTotal += rec.Ledger.Amount
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if counts[KindHabit] != 1 || counts[KindCompletion] != 1 || counts[KindLedger] != 2 || counts[KindPlant] != 1 {
		t.Errorf("unexpected record counts: %v", counts)
	}
	if ledgerTotal != 20 {
		t.Errorf("ledger total = %d, want 20", ledgerTotal)
	}
}

func TestToFileMultipleIdentities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "grove.jsonl.zst")

	n, err := ToFile(path, sampleState("user:alice"), sampleState("guest:g1"))
	if err != nil {
		t.Fatalf("ToFile failed: %v", err)
	}
	if n != 10 {
		t.Errorf("ToFile wrote %d records, want 10", n)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	defer f.Close()

	identities := map[string]bool{}
	if err := Read(f, func(rec Record) error {
		identities[rec.Identity] = true
		return nil
	}); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(identities) != 2 {
		t.Errorf("expected records for 2 identities, got %v", identities)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if err := Read(bytes.NewReader([]byte("not zstd")), func(Record) error { return nil }); err == nil {
		t.Error("expected error for non-zstd input")
	}
}
