package points

import (
	"context"
	"fmt"

	"github.com/julianstephens/grove/internal/cli"
	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/ledger"
)

type PointsCmd struct {
	Balance PointsBalanceCmd `cmd:"" help:"Show the points balance." default:"1"`
	History PointsHistoryCmd `cmd:"" help:"Show ledger entries."`
	Credit  PointsCreditCmd  `cmd:"" help:"Grant points manually."`
}

type PointsBalanceCmd struct{}

func (c *PointsBalanceCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Balance: %d points\n", e.Balance())
	return nil
}

type PointsHistoryCmd struct {
	Limit int `help:"Show only the most recent entries (0 for all)." default:"20" short:"n"`
}

func (c *PointsHistoryCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	entries := e.History()
	if len(entries) == 0 {
		fmt.Println("No ledger entries yet.")
		return nil
	}
	start := 0
	if c.Limit > 0 && len(entries) > c.Limit {
		start = len(entries) - c.Limit
	}
	for _, entry := range entries[start:] {
		fmt.Printf("%s  %+5d  %s\n", entry.Timestamp.Format("2006-01-02 15:04"), entry.Amount, entry.Source)
	}
	totals := e.PointsBySource()
	fmt.Printf("\nBalance: %d (%d entries", e.Balance(), len(entries))
	for _, kind := range []string{constants.SourceHabit, constants.SourceHabitUndo, constants.SourceQuest, constants.SourceBambooWater, constants.SourceBambooPlant, constants.SourceManual} {
		if v, ok := totals[kind]; ok {
			fmt.Printf(", %s %+d", kind, v)
		}
	}
	fmt.Println(")")
	return nil
}

type PointsCreditCmd struct {
	Amount int    `arg:"" help:"Points to grant."`
	Reason string `help:"Reason recorded in the ledger."`
}

func (c *PointsCreditCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	if _, err := e.Credit(c.Amount, ledger.Source(constants.SourceManual, c.Reason)); err != nil {
		return err
	}
	fmt.Printf("Credited %d points. Balance: %d\n", c.Amount, e.Balance())
	ctx.WarnIfUnsynced()
	return nil
}
