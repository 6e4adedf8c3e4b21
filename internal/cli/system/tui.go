package system

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/grove/internal/cli"
	"github.com/julianstephens/grove/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	if err := ctx.AcquireSession(); err != nil {
		return err
	}
	bg := context.Background()
	e, err := ctx.Engine(bg)
	if err != nil {
		return err
	}

	ctx.PerformAutomaticBackup(bg)

	p := tea.NewProgram(tui.NewModel(e), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui exited: %w", err)
	}
	return nil
}
