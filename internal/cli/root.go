package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/julianstephens/grove/internal/backup"
	"github.com/julianstephens/grove/internal/bamboo"
	"github.com/julianstephens/grove/internal/clock"
	"github.com/julianstephens/grove/internal/config"
	"github.com/julianstephens/grove/internal/engine"
	grerrors "github.com/julianstephens/grove/internal/errors"
	"github.com/julianstephens/grove/internal/identity"
	"github.com/julianstephens/grove/internal/keyring"
	"github.com/julianstephens/grove/internal/logger"
	"github.com/julianstephens/grove/internal/models"
	"github.com/julianstephens/grove/internal/session"
	"github.com/julianstephens/grove/internal/storage"
	"github.com/julianstephens/grove/internal/storage/sqlite"
)

type Context struct {
	Store      storage.Provider
	Config     config.Config
	ConfigDir  string
	ConfigPath string
	Identity   identity.Identity
	Clock      clock.Clock
	Catalog    *bamboo.Catalog

	engine *engine.Engine
	lock   *session.Lock
}

// EngineOptions returns the engine settings derived from config
func (c *Context) EngineOptions() engine.Options {
	return engine.Options{
		Clock:         c.Clock,
		Catalog:       c.Catalog,
		EarlyBirdHour: c.Config.Engine.EarlyBirdHour,
	}
}

// Engine opens the current identity's engine on first use
func (c *Context) Engine(ctx context.Context) (*engine.Engine, error) {
	if c.engine != nil {
		return c.engine, nil
	}
	e, err := engine.Open(ctx, c.Identity.Key(), c.Store, c.EngineOptions())
	if err != nil {
		return nil, err
	}
	c.engine = e
	return e, nil
}

// AcquireSession claims the single interactive session for the identity
func (c *Context) AcquireSession() error {
	if c.lock != nil {
		return nil
	}
	lock, err := session.Acquire(c.ConfigDir, c.Identity.Key())
	if err != nil {
		return err
	}
	c.lock = lock
	return nil
}

// Close flushes pending state and releases the session lock and the store
func (c *Context) Close() error {
	var errs []error
	if c.engine != nil {
		errs = append(errs, c.engine.Flush())
		c.engine = nil
	}
	if c.lock != nil {
		errs = append(errs, c.lock.Release())
		c.lock = nil
	}
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	return errors.Join(errs...)
}

// WarnIfUnsynced prints a notice when the last change could not be saved
func (c *Context) WarnIfUnsynced() {
	if c.engine == nil {
		return
	}
	if err := c.engine.LastPersistError(); err != nil {
		fmt.Printf("⚠️  %s: %v\n", grerrors.UserMessage(err), err)
	}
}

// BackupManager returns a snapshot manager for the sqlite store, uploading to
// S3 when configured.
func (c *Context) BackupManager(ctx context.Context) (*backup.Manager, error) {
	if _, ok := c.Store.(*sqlite.Store); !ok {
		return nil, fmt.Errorf("backups are only supported for sqlite storage (current: %s)", c.Store.GetConfigPath())
	}
	opts := []backup.Option{backup.WithKeep(c.Config.Backup.Keep)}

	s3cfg := c.Config.Backup.S3
	if s3cfg.Enabled() {
		secret := ""
		if s3cfg.AccessKeyID != "" {
			var err error
			if secret, err = keyring.Get(keyring.AccountS3Secret); err != nil {
				return nil, fmt.Errorf("s3 secret access key: %w", err)
			}
		}
		up, err := backup.NewS3Uploader(ctx, backup.S3Options{
			Bucket:          s3cfg.Bucket,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			Prefix:          s3cfg.Prefix,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: secret,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, backup.WithUploader(up))
	}
	return backup.NewManager(c.Store.GetConfigPath(), opts...), nil
}

// PerformAutomaticBackup creates a backup and only logs failures
func (c *Context) PerformAutomaticBackup(ctx context.Context) {
	if _, ok := c.Store.(*sqlite.Store); !ok {
		return
	}
	mgr, err := c.BackupManager(ctx)
	if err == nil {
		_, err = mgr.CreateBackup(ctx)
	}
	if err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// ResolveHabit finds a habit by exact id, exact title (case-insensitive), or a
// unique best fuzzy title match.
func ResolveHabit(list []models.Habit, query string) (models.Habit, error) {
	titles := make([]string, len(list))
	for i, h := range list {
		if h.ID == query || strings.EqualFold(h.Title, query) {
			return h, nil
		}
		titles[i] = h.Title
	}
	idx, err := resolveFuzzy(titles, query)
	if err != nil {
		return models.Habit{}, fmt.Errorf("%w: %q%s", grerrors.ErrHabitNotFound, query, err)
	}
	return list[idx], nil
}

// ResolvePlant finds a plant by exact id, id prefix, or name
func ResolvePlant(list []models.PlantView, query string) (models.PlantView, error) {
	names := make([]string, len(list))
	for i, p := range list {
		if p.ID == query || strings.EqualFold(p.Name, query) {
			return p, nil
		}
		names[i] = p.Name
	}
	var prefixed []int
	for i, p := range list {
		if len(query) >= 4 && strings.HasPrefix(p.ID, query) {
			prefixed = append(prefixed, i)
		}
	}
	if len(prefixed) == 1 {
		return list[prefixed[0]], nil
	}
	idx, err := resolveFuzzy(names, query)
	if err != nil {
		return models.PlantView{}, fmt.Errorf("%w: %q%s", grerrors.ErrPlantNotFound, query, err)
	}
	return list[idx], nil
}

type ambiguousError []string

func (a ambiguousError) Error() string {
	return fmt.Sprintf(" matches several: %s", strings.Join(a, ", "))
}

type noMatchError struct{}

func (noMatchError) Error() string { return "" }

func resolveFuzzy(candidates []string, query string) (int, error) {
	matches := fuzzy.Find(query, candidates)
	if len(matches) == 0 {
		return -1, noMatchError{}
	}
	if len(matches) > 1 && matches[0].Score == matches[1].Score {
		var names []string
		for _, m := range matches {
			if m.Score == matches[0].Score {
				names = append(names, m.Str)
			}
		}
		sort.Strings(names)
		return -1, ambiguousError(names)
	}
	return matches[0].Index, nil
}
