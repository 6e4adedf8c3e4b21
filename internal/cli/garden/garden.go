package garden

import (
	"context"
	"fmt"

	"github.com/julianstephens/grove/internal/cli"
	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/models"
)

type GardenCmd struct {
	List    GardenListCmd    `cmd:"" help:"Show your bamboo." default:"1"`
	Plant   GardenPlantCmd   `cmd:"" help:"Buy and plant a bamboo."`
	Water   GardenWaterCmd   `cmd:"" help:"Water a bamboo (up to 3 times a day)."`
	Remove  GardenRemoveCmd  `cmd:"" help:"Remove a bamboo from the garden."`
	Species GardenSpeciesCmd `cmd:"" help:"List bamboo species and their cost."`
}

var stageIcon = map[models.PlantStage]string{
	models.StageSprout: "🌱",
	models.StageYoung:  "🌿",
	models.StageMature: "🎋",
}

type GardenListCmd struct{}

func (c *GardenListCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	plants := e.Plants()
	if len(plants) == 0 {
		fmt.Println("Your garden is empty. Plant one with 'grove garden plant <species>'.")
	}
	for _, p := range plants {
		fmt.Printf("%s %-16s %-8s growth %3d%%  pot %-8s watered %d/%d today  [%s]\n",
			stageIcon[p.Stage], p.Name, p.Species, p.Growth, p.Pot, p.WateringsToday, constants.DailyWaterLimit, p.ID[:8])
	}

	if next, ok := e.NextPlantingDate(); ok && e.Clock().Now().Before(next) {
		fmt.Printf("\nNext planting: %s\n", next.Format(constants.DateFormat))
	} else {
		fmt.Println("\nYou can plant today.")
	}
	fmt.Printf("Balance: %d\n", e.Balance())
	return nil
}

type GardenPlantCmd struct {
	Species string `arg:"" help:"Species type (see 'grove garden species')."`
	Name    string `help:"Name for the plant (defaults to the species name)."`
}

func (c *GardenPlantCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	p, err := e.Plant(c.Species, c.Name)
	if err != nil {
		return err
	}
	fmt.Printf("%s Planted %s (%s). Balance: %d\n", stageIcon[p.Stage], p.Name, p.Species, e.Balance())
	ctx.WarnIfUnsynced()
	return nil
}

type GardenWaterCmd struct {
	Plant string `arg:"" help:"Plant name or id."`
}

func (c *GardenWaterCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	target, err := cli.ResolvePlant(e.Plants(), c.Plant)
	if err != nil {
		return err
	}
	p, err := e.Water(target.ID)
	if err != nil {
		return err
	}
	fmt.Printf("💧 Watered %s (%d/%d today, +%d points). Growth %d%%\n",
		p.Name, p.WateringsToday, constants.DailyWaterLimit, constants.WaterReward, p.Growth)
	ctx.WarnIfUnsynced()
	return nil
}

type GardenRemoveCmd struct {
	Plant string `arg:"" help:"Plant name or id."`
}

func (c *GardenRemoveCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	target, err := cli.ResolvePlant(e.Plants(), c.Plant)
	if err != nil {
		return err
	}
	if err := e.RemovePlant(target.ID); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", target.Name)
	ctx.WarnIfUnsynced()
	return nil
}

type GardenSpeciesCmd struct{}

func (c *GardenSpeciesCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	for _, s := range e.Species() {
		fmt.Printf("%-8s %-16s %4d points  %s\n", s.Type, s.Name, s.Cost, s.Description)
	}
	return nil
}
