package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/grove/internal/calendar"
	"github.com/julianstephens/grove/internal/cli"
)

type CalendarCmd struct {
	Month string `help:"Month to show (YYYY-MM, default: current month)." short:"m"`
}

func (c *CalendarCmd) Run(ctx *cli.Context) error {
	e, err := ctx.Engine(context.Background())
	if err != nil {
		return err
	}
	now := e.Clock().Now()
	year, month := now.Year(), int(now.Month())
	if c.Month != "" {
		if year, month, err = calendar.ParseMonth(c.Month); err != nil {
			return err
		}
	}
	grid, err := e.MonthGrid(year, month)
	if err != nil {
		return err
	}
	fmt.Print(Render(grid))
	return nil
}

// Render draws the grid as text. Each day shows its number and completion rate.
func Render(grid calendar.Grid) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", time.Month(grid.Month), grid.Year)
	b.WriteString("  Sun    Mon    Tue    Wed    Thu    Fri    Sat\n")
	for _, week := range grid.Weeks {
		for _, cell := range week {
			b.WriteString(formatCell(cell))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatCell(cell *calendar.Cell) string {
	if cell == nil {
		return "       "
	}
	marker := " "
	if cell.IsToday {
		marker = "*"
	}
	if cell.TotalCount == 0 {
		return fmt.Sprintf("%s%2d  · ", marker, cell.Day)
	}
	return fmt.Sprintf("%s%2d%3d%%", marker, cell.Day, cell.CompletionRate)
}
