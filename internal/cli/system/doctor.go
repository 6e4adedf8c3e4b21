package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/grove/internal/cli"
	"github.com/julianstephens/grove/internal/keyring"
	"github.com/julianstephens/grove/internal/storage/sqlite"
	"github.com/julianstephens/grove/internal/utils"
	"github.com/julianstephens/grove/internal/validation"
)

type DoctorCmd struct{}

type checkLevel int

const (
	levelFail checkLevel = iota
	levelWarn
)

type check struct {
	name    string
	level   checkLevel
	needsDB bool
	run     func(context.Context, *cli.Context) error
}

var checks = []check{
	{name: "Storage reachable", run: checkStorageReachable},
	{name: "State integrity", needsDB: true, run: checkStateIntegrity},
	{name: "Backups present", level: levelWarn, run: checkBackupsPresent},
	{name: "Keyring", level: levelWarn, run: checkKeyring},
	{name: "Clock/timezone", run: checkClockTimezone},
	{name: "Species catalog", run: checkCatalog},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	bg := context.Background()
	hasError := false
	dbReachable := true

	for _, c := range checks {
		if c.needsDB && !dbReachable {
			fmt.Printf("⊘ %s: SKIPPED (storage not reachable)\n", c.name)
			continue
		}
		err := c.run(bg, ctx)
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
		case c.level == levelWarn:
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		}
		if err != nil && c.name == "Storage reachable" {
			dbReachable = false
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	fmt.Println("All diagnostics passed!")
	return nil
}

func checkStorageReachable(bg context.Context, ctx *cli.Context) error {
	if err := ctx.Store.Open(bg); err != nil {
		return err
	}
	if _, err := ctx.Store.Identities(bg); err != nil {
		return fmt.Errorf("failed to list identities: %w", err)
	}
	return nil
}

func checkStateIntegrity(bg context.Context, ctx *cli.Context) error {
	keys, err := ctx.Store.Identities(bg)
	if err != nil {
		return err
	}
	v := validation.New(ctx.Catalog)
	var errs []error
	for _, key := range keys {
		state, err := ctx.Store.Load(bg, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		if result := v.ValidateState(key, state); result.HasConflicts() {
			errs = append(errs, fmt.Errorf("%s: %s", key, result.FormatReport()))
		}
	}
	return errors.Join(errs...)
}

func checkBackupsPresent(bg context.Context, ctx *cli.Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil
	}
	mgr, err := ctx.BackupManager(bg)
	if err != nil {
		return err
	}
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found in %s (run 'grove backup create')", mgr.GetBackupDir())
	}
	age := time.Since(backups[0].Timestamp)
	if age > 7*24*time.Hour {
		return fmt.Errorf("latest backup is %d days old", int(age.Hours()/24))
	}
	return nil
}

func checkKeyring(_ context.Context, ctx *cli.Context) error {
	if ctx.Config.Backup.S3.Enabled() && ctx.Config.Backup.S3.AccessKeyID != "" {
		if _, err := keyring.Get(keyring.AccountS3Secret); err != nil {
			return fmt.Errorf("S3 backups are configured but the secret key is unavailable: %w", err)
		}
	}
	if !keyring.IsAvailable() {
		return fmt.Errorf("OS keyring is not available")
	}
	return nil
}

func checkClockTimezone(_ context.Context, ctx *cli.Context) error {
	if tz := ctx.Config.Engine.Timezone; tz != "" && !utils.ValidateTimezone(tz) {
		return fmt.Errorf("invalid timezone in config: %q", tz)
	}
	if ctx.Clock == nil {
		return fmt.Errorf("no clock configured")
	}
	now := ctx.Clock.Now()
	if now.Year() < 2020 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	return nil
}

func checkCatalog(_ context.Context, ctx *cli.Context) error {
	if ctx.Catalog == nil {
		return nil
	}
	if len(ctx.Catalog.All()) == 0 {
		return fmt.Errorf("species catalog is empty")
	}
	return nil
}
