package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/grove/internal/calendar"
	"github.com/julianstephens/grove/internal/constants"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case constants.StateToday:
		content = docStyle.Render(m.habitList.View())
	case constants.StateQuests:
		content = docStyle.Render(m.viewQuests())
	case constants.StateGarden:
		content = docStyle.Render(m.garden.View())
	case constants.StateCalendar:
		content = docStyle.Render(m.viewCalendar())
	case constants.StateAddHabit, constants.StatePlant:
		if m.form != nil {
			content = docStyle.Render(m.form.View())
		}
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		content,
		m.viewStatus(),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	active := m.state
	if active >= numTabs {
		active = m.previousState
	}
	var tabs []string
	for i, title := range tabTitles {
		if active == constants.SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	tabs = append(tabs, balanceStyle.Render(fmt.Sprintf("⭐ %d", m.engine.Balance())))
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusIsError {
		return errorStyle.Render(m.status)
	}
	return statusStyle.Render(m.status)
}

func (m Model) viewQuests() string {
	quests := m.engine.Quests()
	if len(quests) == 0 {
		return "No quests today. Quests appear once you have an active habit."
	}
	var b strings.Builder
	for _, q := range quests {
		line := fmt.Sprintf("%-16s %s %d/%d  +%d", q.Title, progressBar(q.Progress, q.Target, 10), min(q.Progress, q.Target), q.Target, q.Points)
		if q.Completed {
			line = doneStyle.Render(line) + " ✓"
		}
		b.WriteString(line + "\n")
		b.WriteString(headerStyle.Render("  "+q.Description) + "\n")
	}
	return b.String()
}

func progressBar(progress, target, width int) string {
	if target <= 0 {
		return strings.Repeat("░", width)
	}
	filled := min(progress, target) * width / target
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func (m Model) viewCalendar() string {
	grid, err := m.engine.MonthGrid(m.calYear, m.calMonth)
	if err != nil {
		return errorText(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n\n", time.Month(grid.Month), grid.Year)
	b.WriteString(headerStyle.Render(" Su  Mo  Tu  We  Th  Fr  Sa") + "\n")
	for _, week := range grid.Weeks {
		for _, cell := range week {
			b.WriteString(renderCell(cell))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n" + strings.Join([]string{
		cellNone.Render("none"), cellLow.Render("some"), cellMid.Render("most"), cellFull.Render("all"),
	}, "  "))
	return b.String()
}

func renderCell(cell *calendar.Cell) string {
	if cell == nil {
		return "    "
	}
	style := cellNone
	switch {
	case cell.TotalCount == 0:
	case cell.CompletionRate >= 100:
		style = cellFull
	case cell.CompletionRate >= 50:
		style = cellMid
	case cell.CompletionRate > 0:
		style = cellLow
	}
	text := fmt.Sprintf("%3d", cell.Day)
	if cell.IsToday {
		style = style.Inherit(cellToday)
	}
	return style.Render(text) + " "
}
