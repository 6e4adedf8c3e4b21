package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/grove/internal/models"
	"github.com/julianstephens/grove/internal/storage/sqlite"
)

func TestIntegrationBackupRestoreWorkflow(t *testing.T) {
	ctx := context.Background()
	dbPath, cleanup := setupTestDB(t)
	defer cleanup()

	mgr := NewManager(dbPath, WithNow(steppingClock(time.Date(2026, 10, 16, 8, 0, 0, 0, time.Local))))
	first, err := mgr.CreateBackup(ctx)
	if err != nil {
		t.Fatalf("failed to create backup: %v", err)
	}

	// more activity after the snapshot
	store := sqlite.NewStore(dbPath)
	if err := store.Open(ctx); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	state, err := store.Load(ctx, "user:alice")
	if err != nil {
		t.Fatalf("failed to load state: %v", err)
	}
	state.Ledger = append(state.Ledger, models.LedgerEntry{Amount: 5, Source: "habit:h1", Timestamp: time.Now()})
	if err := store.Save(ctx, "user:alice", state); err != nil {
		t.Fatalf("failed to save state: %v", err)
	}
	store.Close()
	if n := ledgerRows(t, dbPath); n != 2 {
		t.Fatalf("expected 2 ledger rows before restore, got %d", n)
	}

	previous, err := mgr.RestoreBackup(ctx, first.Path)
	if err != nil {
		t.Fatalf("failed to restore backup: %v", err)
	}
	if previous == "" {
		t.Fatal("restore should snapshot the current database first")
	}
	if n := ledgerRows(t, previous); n != 2 {
		t.Errorf("pre-restore snapshot should hold 2 ledger rows, got %d", n)
	}

	store = sqlite.NewStore(dbPath)
	if err := store.Open(ctx); err != nil {
		t.Fatalf("restored database failed to open: %v", err)
	}
	defer store.Close()
	restored, err := store.Load(ctx, "user:alice")
	if err != nil {
		t.Fatalf("failed to load restored state: %v", err)
	}
	if len(restored.Ledger) != 1 || restored.Ledger[0].Amount != 50 {
		t.Errorf("unexpected ledger after restore: %+v", restored.Ledger)
	}

	if _, err := os.Stat(dbPath + ".restore.tmp"); !os.IsNotExist(err) {
		t.Error("temporary restore file was left behind")
	}
	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 2 {
		t.Errorf("expected original and pre-restore backups, got %d", len(backups))
	}
	for _, b := range backups {
		if filepath.Dir(b.Path) != mgr.GetBackupDir() {
			t.Errorf("backup outside backup dir: %s", b.Path)
		}
	}
}
