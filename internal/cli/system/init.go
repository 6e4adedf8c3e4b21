package system

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/grove/internal/cli"
	"github.com/julianstephens/grove/internal/config"
	"github.com/julianstephens/grove/internal/storage"
	"github.com/julianstephens/grove/internal/storage/sqlite"
)

type InitCmd struct {
	Force  bool   `help:"Delete an existing sqlite database before initialization."`
	Source string `help:"Source database path or connection string to copy data from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	bg := context.Background()

	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Store.Init(bg); err != nil {
		return err
	}
	fmt.Printf("Initialized grove storage at: %s\n", ctx.Store.GetConfigPath())

	if err := writeDefaultConfig(ctx.ConfigPath); err != nil {
		return err
	}

	if c.Source != "" {
		fmt.Printf("Copying data from: %s\n", c.Source)
		src, err := storage.Open(bg, c.Source)
		if err != nil {
			return fmt.Errorf("failed to open source: %w", err)
		}
		defer src.Close()

		n, err := storage.Copy(bg, src, ctx.Store, func(msg string) { fmt.Println(msg) })
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Printf("Copied %d identities.\n", n)
	}
	return nil
}

func (c *InitCmd) reset(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return fmt.Errorf("--force is only supported for sqlite storage")
	}
	dbPath := ctx.Store.GetConfigPath()
	if abs, err := filepath.Abs(dbPath); err == nil {
		dbPath = abs
	}
	if c.Source != "" {
		if abs, err := filepath.Abs(c.Source); err == nil && abs == dbPath {
			return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
		}
	}

	if _, err := os.Stat(dbPath); err == nil {
		if err := ctx.Store.Close(); err != nil {
			return fmt.Errorf("failed to close existing database: %w", err)
		}
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		fmt.Printf("Deleted existing database at: %s\n", dbPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access existing database: %w", err)
	}
	return nil
}

func writeDefaultConfig(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	fmt.Printf("Wrote default config to: %s\n", path)
	return nil
}
