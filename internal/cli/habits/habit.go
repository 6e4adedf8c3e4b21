package habits

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/grove/internal/cli"
	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/habits"
	"github.com/julianstephens/grove/internal/models"
	"github.com/julianstephens/grove/internal/utils"
)

type HabitCmd struct {
	Add       HabitAddCmd       `cmd:"" help:"Add a new habit."`
	List      HabitListCmd      `cmd:"" help:"List habits."`
	Toggle    HabitToggleCmd    `cmd:"" help:"Mark or unmark a habit as done for a day."`
	Today     HabitTodayCmd     `cmd:"" help:"Show today's habits with streaks." default:"1"`
	Archive   HabitArchiveCmd   `cmd:"" help:"Archive a habit."`
	Unarchive HabitUnarchiveCmd `cmd:"" help:"Restore an archived habit."`
	Delete    HabitDeleteCmd    `cmd:"" help:"Delete a habit."`
	Stats     HabitStatsCmd     `cmd:"" aliases:"streak" help:"Show streak and completion rate for a habit."`
}

type HabitAddCmd struct {
	Title       string `arg:"" help:"Habit title."`
	Description string `help:"Optional description."`
	Category    string `help:"Category, used by the habit combo quest." short:"c"`
	Frequency   string `help:"daily, weekdays, weekends, weekly or custom." default:"daily" enum:"daily,weekdays,weekends,weekly,custom"`
	Days        string `help:"Weekdays for weekly/custom habits (e.g. mon,wed,fri)."`
	Target      int    `help:"Target value per completion." default:"1"`
	Unit        string `help:"Unit for the target value." default:"times"`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	days, err := utils.ParseWeekdays(c.Days)
	if err != nil {
		return err
	}
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}

	for _, h := range e.Habits(true) {
		if strings.EqualFold(h.Title, strings.TrimSpace(c.Title)) {
			return fmt.Errorf("habit with title %q already exists", h.Title)
		}
	}

	h, err := e.AddHabit(habits.NewHabit{
		Title:       c.Title,
		Description: c.Description,
		Category:    c.Category,
		Frequency:   models.Frequency{Type: constants.FrequencyType(c.Frequency), Days: days},
		TargetValue: c.Target,
		Unit:        c.Unit,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added habit: %s (%s)\n", h.Title, utils.FormatFrequency(h.Frequency))
	ctx.WarnIfUnsynced()
	return nil
}

type HabitListCmd struct {
	All bool `help:"Include archived habits."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	list := e.Habits(c.All)
	if len(list) == 0 {
		fmt.Println("No habits found.")
		return nil
	}
	for _, h := range list {
		status := ""
		if !h.IsActive {
			status = " [ARCHIVED]"
		}
		category := ""
		if h.Category != "" {
			category = " #" + h.Category
		}
		fmt.Printf("%-24s %-18s%s%s\n", h.Title, utils.FormatFrequency(h.Frequency), category, status)
	}
	return nil
}

type HabitToggleCmd struct {
	Name string `arg:"" help:"Habit title or id."`
	Date string `help:"Date in YYYY-MM-DD format (default: today)."`
}

func (c *HabitToggleCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	h, err := cli.ResolveHabit(e.Habits(false), c.Name)
	if err != nil {
		return err
	}

	out, err := e.ToggleCompletion(h.ID, c.Date)
	if err != nil {
		return err
	}
	if out.Completed {
		fmt.Printf("✓ Marked %q for %s (+%d points)\n", h.Title, out.Date, out.PointsDelta)
	} else {
		fmt.Printf("Unmarked %q for %s (%d points)\n", h.Title, out.Date, out.PointsDelta)
	}
	for _, q := range out.CompletedQuests {
		fmt.Printf("🏆 Quest complete: %s (+%d points)\n", q.Title, q.Points)
	}
	fmt.Printf("Balance: %d\n", e.Balance())
	ctx.WarnIfUnsynced()
	return nil
}

type HabitTodayCmd struct{}

func (c *HabitTodayCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	today := e.TodaysHabits()
	fmt.Printf("Habits for %s\n\n", utils.DayKey(e.Clock().Now()))
	if len(today) == 0 {
		fmt.Println("Nothing scheduled today. Add one with 'grove habit add'.")
		return nil
	}
	done := 0
	for _, th := range today {
		mark := "[ ]"
		if th.Completed {
			mark = "[✓]"
			done++
		}
		fmt.Printf("%s %-24s 🔥 %-3d %3d%%\n", mark, th.Habit.Title, th.Streak, th.CompletionRate)
	}
	fmt.Printf("\n%d/%d done · Balance: %d\n", done, len(today), e.Balance())
	return nil
}

type HabitArchiveCmd struct {
	Name string `arg:"" help:"Habit title or id."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	return setActive(ctx, c.Name, false)
}

type HabitUnarchiveCmd struct {
	Name string `arg:"" help:"Habit title or id."`
}

func (c *HabitUnarchiveCmd) Run(ctx *cli.Context) error {
	return setActive(ctx, c.Name, true)
}

func setActive(ctx *cli.Context, name string, active bool) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	h, err := cli.ResolveHabit(e.Habits(true), name)
	if err != nil {
		return err
	}
	if _, err := e.SetHabitActive(h.ID, active); err != nil {
		return err
	}
	if active {
		fmt.Printf("Restored habit: %s\n", h.Title)
	} else {
		fmt.Printf("Archived habit: %s\n", h.Title)
	}
	ctx.WarnIfUnsynced()
	return nil
}

type HabitDeleteCmd struct {
	Name string `arg:"" help:"Habit title or id."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	h, err := cli.ResolveHabit(e.Habits(true), c.Name)
	if err != nil {
		return err
	}
	if err := e.DeleteHabit(h.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted habit: %s\n", h.Title)
	ctx.WarnIfUnsynced()
	return nil
}

type HabitStatsCmd struct {
	Name   string `arg:"" help:"Habit title or id."`
	Window int    `help:"Completion rate window in days." default:"7"`
}

func (c *HabitStatsCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	h, err := cli.ResolveHabit(e.Habits(false), c.Name)
	if err != nil {
		return err
	}
	streak, err := e.Streak(h.ID)
	if err != nil {
		return err
	}
	longest, err := e.LongestStreak(h.ID)
	if err != nil {
		return err
	}
	rate, err := e.CompletionRate(h.ID, c.Window)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", h.Title, utils.FormatFrequency(h.Frequency))
	fmt.Printf("  Current streak:  %d\n", streak)
	fmt.Printf("  Longest streak:  %d\n", longest)
	fmt.Printf("  Completion rate: %d%% over %d days\n", rate, c.Window)
	return nil
}
