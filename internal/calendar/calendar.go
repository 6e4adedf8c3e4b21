// Package calendar aggregates habit completions into month grids.
package calendar

import (
	"fmt"
	"math"
	"time"

	"github.com/julianstephens/grove/internal/constants"
	grerrors "github.com/julianstephens/grove/internal/errors"
	"github.com/julianstephens/grove/internal/models"
	"github.com/julianstephens/grove/internal/utils"
)

// Source is the read-only habit data a grid is computed from
type Source interface {
	ScheduledOn(date time.Time) []models.Habit
	IsCompleted(habitID, day string) bool
}

// Cell is one day of the month grid
type Cell struct {
	Day            int    `json:"day"`
	Date           string `json:"date"`
	CompletedCount int    `json:"completed_count"`
	TotalCount     int    `json:"total_count"`
	CompletionRate int    `json:"completion_rate"`
	IsToday        bool   `json:"is_today"`
}

// Grid is a month laid out in Sunday-first weeks. Padding cells are nil.
type Grid struct {
	Year  int       `json:"year"`
	Month int       `json:"month"`
	Weeks [][]*Cell `json:"weeks"`
}

// Days returns the non-padding cells in order
func (g Grid) Days() []Cell {
	var out []Cell
	for _, week := range g.Weeks {
		for _, c := range week {
			if c != nil {
				out = append(out, *c)
			}
		}
	}
	return out
}

// MonthGrid builds the grid for year/month. now marks today and fixes the location.
func MonthGrid(src Source, year, month int, now time.Time) (Grid, error) {
	if month < 1 || month > 12 || year < 1 {
		return Grid{}, fmt.Errorf("%w: %04d-%02d", grerrors.ErrInvalidDate, year, month)
	}

	loc := now.Location()
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	days := utils.DaysInMonth(year, time.Month(month))
	todayKey := utils.DayKey(now)

	grid := Grid{Year: year, Month: month}
	week := make([]*Cell, 7)
	col := int(first.Weekday())

	for d := 1; d <= days; d++ {
		date := first.AddDate(0, 0, d-1)
		key := utils.DayKey(date)

		cell := &Cell{Day: d, Date: key, IsToday: key == todayKey}
		for _, h := range src.ScheduledOn(date) {
			cell.TotalCount++
			if src.IsCompleted(h.ID, key) {
				cell.CompletedCount++
			}
		}
		if cell.TotalCount > 0 {
			cell.CompletionRate = int(math.Round(float64(cell.CompletedCount) / float64(cell.TotalCount) * 100))
		}

		week[col] = cell
		col++
		if col == 7 {
			grid.Weeks = append(grid.Weeks, week)
			week = make([]*Cell, 7)
			col = 0
		}
	}
	if col > 0 {
		grid.Weeks = append(grid.Weeks, week)
	}
	return grid, nil
}

// ParseMonth parses YYYY-MM
func ParseMonth(s string) (year, month int, err error) {
	t, err := time.Parse(constants.MonthFormat, s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q (expected YYYY-MM)", grerrors.ErrInvalidDate, s)
	}
	return t.Year(), int(t.Month()), nil
}
