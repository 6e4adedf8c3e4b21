package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/grove/internal/clock"
	"github.com/julianstephens/grove/internal/constants"
	grerrors "github.com/julianstephens/grove/internal/errors"
	"github.com/julianstephens/grove/internal/habits"
	"github.com/julianstephens/grove/internal/models"
	"github.com/julianstephens/grove/internal/tui/components/garden"
	"github.com/julianstephens/grove/internal/tui/components/habitlist"
)

func errorText(err error) string {
	msg := grerrors.UserMessage(err)
	if msg == err.Error() {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, err)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = size.Width
		m.height = size.Height
		m.help.Width = size.Width
		// tabs, status and help take 4 lines
		m.habitList.SetSize(size.Width-4, size.Height-6)
		m.garden.SetSize(size.Width-4, size.Height-6)
		return m, nil
	}

	if m.state == constants.StateAddHabit || m.state == constants.StatePlant {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case habitlist.ToggleHabitMsg:
		m.toggle(msg.ID)
		return m, nil
	case habitlist.ArchiveHabitMsg:
		if h, err := m.engine.SetHabitActive(msg.ID, false); err != nil {
			m.setError(err)
		} else {
			m.setStatus("Archived " + h.Title)
		}
		m.refresh()
		return m, nil
	case habitlist.AddHabitMsg:
		return m, m.openHabitForm()
	case garden.WaterPlantMsg:
		if p, err := m.engine.Water(msg.ID); err != nil {
			m.setError(err)
		} else {
			m.setStatus(fmt.Sprintf("💧 Watered %s (+%d points)", p.Name, constants.WaterReward))
		}
		m.refresh()
		return m, nil
	case garden.PlantMsg:
		return m, m.openPlantForm()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % numTabs
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + numTabs) % numTabs
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case constants.StateToday:
		m.habitList, cmd = m.habitList.Update(msg)
	case constants.StateGarden:
		m.garden, cmd = m.garden.Update(msg)
	case constants.StateQuests:
		if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, m.keys.Refresh) {
			m.refreshQuests()
		}
	case constants.StateCalendar:
		if k, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(k, m.keys.PrevMonth):
				m.shiftMonth(-1)
			case key.Matches(k, m.keys.NextMonth):
				m.shiftMonth(1)
			}
		}
	}
	return m, cmd
}

func (m *Model) toggle(habitID string) {
	out, err := m.engine.ToggleCompletion(habitID, clock.Today(m.engine.Clock()))
	if err != nil {
		m.setError(err)
		m.refresh()
		return
	}
	status := fmt.Sprintf("Unmarked (%d points)", out.PointsDelta)
	if out.Completed {
		status = fmt.Sprintf("✓ Done (+%d points)", out.PointsDelta)
	}
	for _, q := range out.CompletedQuests {
		status += fmt.Sprintf(" 🏆 %s +%d", q.Title, q.Points)
	}
	m.setStatus(status)
	m.refresh()
}

func (m *Model) refreshQuests() {
	m.engine.GenerateDaily()
	done, err := m.engine.UpdateProgress()
	if err != nil {
		m.setError(err)
		return
	}
	if len(done) == 0 {
		m.setStatus("Quests up to date")
	} else {
		m.setStatus(fmt.Sprintf("🏆 %d quest(s) completed", len(done)))
	}
	m.refresh()
}

func (m *Model) shiftMonth(delta int) {
	t := time.Date(m.calYear, time.Month(m.calMonth)+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	m.calYear, m.calMonth = t.Year(), int(t.Month())
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, m.keys.Cancel) {
		m.closeForm()
		m.setStatus("Cancelled")
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.submitForm()
		m.closeForm()
		m.refresh()
		return m, nil
	case huh.StateAborted:
		m.closeForm()
		return m, nil
	}
	return m, cmd
}

func (m *Model) submitForm() {
	switch m.state {
	case constants.StateAddHabit:
		h, err := m.engine.AddHabit(habits.NewHabit{
			Title:     m.habitForm.Title,
			Category:  m.habitForm.Category,
			Frequency: models.Frequency{Type: constants.FrequencyType(m.habitForm.Frequency)},
		})
		if err != nil {
			m.setError(err)
			return
		}
		m.engine.GenerateDaily()
		m.setStatus("Added " + h.Title)
	case constants.StatePlant:
		p, err := m.engine.Plant(m.plantForm.Species, m.plantForm.Name)
		if err != nil {
			m.setError(err)
			return
		}
		m.setStatus(fmt.Sprintf("🌱 Planted %s", p.Name))
	}
}

func (m *Model) closeForm() {
	m.form = nil
	m.habitForm = nil
	m.plantForm = nil
	m.state = m.previousState
}
