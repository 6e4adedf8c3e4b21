package system

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/grove/internal/cli"
	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/export"
	"github.com/julianstephens/grove/internal/models"
)

type ExportCmd struct {
	Output string `help:"Output file (zstd-compressed JSON lines)." short:"o"`
	All    bool   `help:"Export every identity in storage, not just the current one."`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	output := c.Output
	if output == "" {
		output = fmt.Sprintf("%s-export-%s.jsonl.zst", constants.AppName, ctx.Clock.Now().Format(constants.DateFormat))
	}

	var states []models.EngineState
	if c.All {
		var err error
		if states, err = loadAll(bg, ctx); err != nil {
			return err
		}
	} else {
		e, err := ctx.Engine(bg)
		if err != nil {
			return err
		}
		states = []models.EngineState{e.State()}
	}

	n, err := export.ToFile(output, states...)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Printf("✓ Exported %d records from %d identities to %s\n", n, len(states), output)
	return nil
}

func loadAll(bg context.Context, ctx *cli.Context) ([]models.EngineState, error) {
	keys, err := ctx.Store.Identities(bg)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}

	states := make([]models.EngineState, len(keys))
	g, gctx := errgroup.WithContext(bg)
	g.SetLimit(4)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			state, err := ctx.Store.Load(gctx, key)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", key, err)
			}
			states[i] = state
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return states, nil
}
