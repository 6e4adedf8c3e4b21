package quests

import (
	"context"
	"fmt"

	"github.com/julianstephens/grove/internal/cli"
	"github.com/julianstephens/grove/internal/models"
)

type QuestCmd struct {
	List    QuestListCmd    `cmd:"" help:"Show today's quests." default:"1"`
	Refresh QuestRefreshCmd `cmd:"" help:"Recompute quest progress."`
}

type QuestListCmd struct{}

func (c *QuestListCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	printQuests(e.GenerateDaily())
	return nil
}

type QuestRefreshCmd struct{}

func (c *QuestRefreshCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	e.GenerateDaily()
	done, err := e.UpdateProgress()
	if err != nil {
		return err
	}
	printQuests(e.Quests())
	for _, q := range done {
		fmt.Printf("🏆 Quest complete: %s (+%d points)\n", q.Title, q.Points)
	}
	ctx.WarnIfUnsynced()
	return nil
}

func printQuests(quests []models.Quest) {
	if len(quests) == 0 {
		fmt.Println("No quests today. Quests appear once you have an active habit.")
		return
	}
	for _, q := range quests {
		mark := "[ ]"
		if q.Completed {
			mark = "[✓]"
		}
		fmt.Printf("%s %-16s %d/%d  +%d\n    %s\n", mark, q.Title, q.Progress, q.Target, q.Points, q.Description)
	}
}
