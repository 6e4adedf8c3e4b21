package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/grove/internal/cli"
	"github.com/julianstephens/grove/internal/storage"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	m, ok := ctx.Store.(storage.Migrator)
	if !ok {
		return fmt.Errorf("storage at %s has no schema migrations", ctx.Store.GetConfigPath())
	}

	count, err := m.Migrate(context.Background(), func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		fmt.Println("No migrations to apply. Database is up to date.")
	} else {
		fmt.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
