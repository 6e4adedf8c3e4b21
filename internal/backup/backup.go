// Package backup snapshots the local sqlite store and optionally ships snapshots offsite.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/logger"
)

const timestampLayout = "20060102-150405"

// Info describes one snapshot on disk
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
	Remote    string // object key when the snapshot was uploaded
}

type Option func(*Manager)

// WithKeep sets how many snapshots rotation retains
func WithKeep(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.keep = n
		}
	}
}

// WithUploader ships every new snapshot through u
func WithUploader(u Uploader) Option {
	return func(m *Manager) { m.uploader = u }
}

func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager creates, rotates and restores snapshots of one sqlite database
type Manager struct {
	dbPath    string
	backupDir string
	keep      int
	uploader  Uploader
	now       func() time.Time
}

func NewManager(dbPath string, opts ...Option) *Manager {
	m := &Manager{
		dbPath:    dbPath,
		backupDir: filepath.Join(filepath.Dir(dbPath), constants.BackupDirName),
		keep:      constants.MaxBackups,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) GetBackupDir() string {
	return m.backupDir
}

func (m *Manager) Keep() int {
	return m.keep
}

// CreateBackup snapshots the database, rotates old snapshots and uploads the new one.
// An upload failure is returned alongside a valid local Info.
func (m *Manager) CreateBackup(ctx context.Context) (Info, error) {
	info, err := m.snapshot(ctx)
	if err != nil {
		return Info{}, err
	}

	if err := m.rotate(); err != nil {
		logger.Warn("Failed to rotate old backups", "dir", m.backupDir, "error", err)
	}

	if m.uploader != nil {
		key, err := m.upload(ctx, info.Path)
		if err != nil {
			return info, fmt.Errorf("backup saved locally but upload failed: %w", err)
		}
		info.Remote = key
	}
	return info, nil
}

func (m *Manager) snapshot(ctx context.Context) (Info, error) {
	if err := os.MkdirAll(m.backupDir, 0o700); err != nil {
		return Info{}, fmt.Errorf("failed to create backup directory: %w", err)
	}
	if _, err := os.Stat(m.dbPath); errors.Is(err, os.ErrNotExist) {
		return Info{}, fmt.Errorf("database does not exist: %s", m.dbPath)
	}

	ts := m.now()
	path, err := m.uniquePath(ts)
	if err != nil {
		return Info{}, err
	}

	src, err := sql.Open("sqlite", m.dbPath+"?mode=ro")
	if err != nil {
		return Info{}, fmt.Errorf("failed to open source database: %w", err)
	}
	defer src.Close()

	if err := verifySchema(ctx, src); err != nil {
		return Info{}, fmt.Errorf("source database is not a grove store: %w", err)
	}
	if _, err := src.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return Info{}, fmt.Errorf("failed to backup database: %w", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	logger.Info("Created backup", "path", path, "size", stat.Size())
	return Info{Path: path, Timestamp: ts.Truncate(time.Second), Size: stat.Size()}, nil
}

func (m *Manager) uniquePath(ts time.Time) (string, error) {
	stamp := ts.Format(timestampLayout)
	path := filepath.Join(m.backupDir, constants.BackupFilePrefix+stamp+constants.BackupFileSuffix)
	for n := 1; ; n++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if n > 100 {
			return "", fmt.Errorf("failed to generate unique backup filename")
		}
		path = filepath.Join(m.backupDir, fmt.Sprintf("%s%s-%d%s", constants.BackupFilePrefix, stamp, n, constants.BackupFileSuffix))
	}
}

// ListBackups returns snapshots newest first
func (m *Manager) ListBackups() ([]Info, error) {
	entries, err := os.ReadDir(m.backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []Info{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, constants.BackupFileSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), constants.BackupFileSuffix)
		seq := 0
		if base, counter, ok := strings.Cut(stamp, "-"); ok {
			// YYYYMMDD-HHMMSS[-N]
			if clock, n, hasCounter := strings.Cut(counter, "-"); hasCounter {
				stamp = base + "-" + clock
				if _, err := fmt.Sscanf(n, "%d", &seq); err != nil {
					continue
				}
			}
		}
		ts, err := time.ParseInLocation(timestampLayout, stamp, time.Local)
		if err != nil {
			continue
		}
		stat, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Path:      filepath.Join(m.backupDir, name),
			Timestamp: ts.Add(time.Duration(seq) * time.Nanosecond),
			Size:      stat.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

func (m *Manager) rotate() error {
	backups, err := m.ListBackups()
	if err != nil {
		return err
	}
	for i := m.keep; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

// Resolve finds a snapshot by absolute path, path relative to the working
// directory, or file name inside the backup directory.
func (m *Manager) Resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("backup file not found: %s", name)
		}
		return name, nil
	}
	if _, err := os.Stat(name); err == nil {
		return filepath.Abs(name)
	}
	candidate := filepath.Join(m.backupDir, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", fmt.Errorf("backup file not found: tried current directory and %s", m.backupDir)
}

// RestoreBackup replaces the database with a snapshot. The current database is
// snapshotted first, outside rotation. Callers must close open connections.
func (m *Manager) RestoreBackup(ctx context.Context, backupPath string) (previous string, err error) {
	if _, err := os.Stat(backupPath); err != nil {
		return "", fmt.Errorf("backup file does not exist: %s", backupPath)
	}
	if err := verifyFile(ctx, backupPath); err != nil {
		return "", fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	if _, err := os.Stat(m.dbPath); err == nil {
		info, err := m.snapshot(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to backup current database before restore: %w", err)
		}
		previous = info.Path
	}

	tmp := m.dbPath + ".restore.tmp"
	if err := copyFile(backupPath, tmp); err != nil {
		_ = os.Remove(tmp)
		return previous, fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := os.Rename(tmp, m.dbPath); err != nil {
		_ = os.Remove(tmp)
		return previous, fmt.Errorf("failed to restore database: %w", err)
	}
	logger.Info("Restored database", "from", backupPath, "previous", previous)
	return previous, nil
}

func verifyFile(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return err
	}
	defer db.Close()
	return verifySchema(ctx, db)
}

func verifySchema(ctx context.Context, db *sql.DB) error {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('identities', 'ledger_entries')").Scan(&n)
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("missing grove tables")
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := out.ReadFrom(in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
