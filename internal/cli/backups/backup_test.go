package backups

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/grove/internal/cli"
	"github.com/julianstephens/grove/internal/clock"
	"github.com/julianstephens/grove/internal/config"
	"github.com/julianstephens/grove/internal/identity"
	"github.com/julianstephens/grove/internal/storage/jsonfile"
	"github.com/julianstephens/grove/internal/storage/sqlite"
)

func setupTestContext(t *testing.T) (*cli.Context, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "grove.db")
	store := sqlite.NewStore(dbPath)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	ctx := &cli.Context{
		Store:     store,
		Config:    config.Default(),
		ConfigDir: dir,
		Identity:  identity.User("alice"),
		Clock:     clock.NewFixed(time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)),
	}
	t.Cleanup(func() { ctx.Close() })
	return ctx, dbPath
}

func credit(t *testing.T, ctx *cli.Context, amount int) {
	t.Helper()
	e, err := ctx.Engine(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Credit(amount, "manual:test"); err != nil {
		t.Fatal(err)
	}
}

func TestBackupCreateAndList(t *testing.T) {
	ctx, dbPath := setupTestContext(t)
	credit(t, ctx, 10)

	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup create failed: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(filepath.Dir(dbPath), "backups"))
	if err != nil {
		t.Fatalf("failed to read backup dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 backup, got %d", len(entries))
	}
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Errorf("backup list failed: %v", err)
	}
}

func TestBackupRestore(t *testing.T) {
	ctx, dbPath := setupTestContext(t)
	credit(t, ctx, 10)

	mgr, err := ctx.BackupManager(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	info, err := mgr.CreateBackup(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	credit(t, ctx, 5)

	cancel := &BackupRestoreCmd{BackupFile: filepath.Base(info.Path), in: strings.NewReader("n\n")}
	if err := cancel.Run(ctx); err != nil {
		t.Fatalf("cancelled restore failed: %v", err)
	}

	if err := (&BackupRestoreCmd{BackupFile: info.Path, Yes: true}).Run(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	store := sqlite.NewStore(dbPath)
	if err := store.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	state, err := store.Load(context.Background(), "user:alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Ledger) != 1 || state.Ledger[0].Amount != 10 {
		t.Errorf("expected the restored ledger to hold only the first credit, got %+v", state.Ledger)
	}
}

func TestBackupRequiresSQLite(t *testing.T) {
	dir := t.TempDir()
	ctx := &cli.Context{
		Store:     jsonfile.New(dir),
		Config:    config.Default(),
		ConfigDir: dir,
		Identity:  identity.Guest("g1"),
		Clock:     clock.NewFixed(time.Now()),
	}
	if err := (&BackupCreateCmd{}).Run(ctx); err == nil {
		t.Error("backups of a json store should be rejected")
	}
}
