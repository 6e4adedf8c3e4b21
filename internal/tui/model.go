package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/engine"
	"github.com/julianstephens/grove/internal/tui/components/garden"
	"github.com/julianstephens/grove/internal/tui/components/habitlist"
)

const numTabs = 4

var tabTitles = []string{"Today", "Quests", "Garden", "Calendar"}

type HabitFormModel struct {
	Title     string
	Category  string
	Frequency string
}

type PlantFormModel struct {
	Species string
	Name    string
}

type Model struct {
	engine        *engine.Engine
	state         constants.SessionState
	previousState constants.SessionState
	keys          KeyMap
	help          help.Model
	habitList     habitlist.Model
	garden        garden.Model
	form          *huh.Form
	habitForm     *HabitFormModel
	plantForm     *PlantFormModel
	calYear       int
	calMonth      int
	status        string
	statusIsError bool
	quitting      bool
	width         int
	height        int
}

func NewModel(e *engine.Engine) Model {
	now := e.Clock().Now()
	m := Model{
		engine:    e,
		state:     constants.StateToday,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		habitList: habitlist.New(e.TodaysHabits(), 0, 0),
		garden:    garden.New(0, 0),
		calYear:   now.Year(),
		calMonth:  int(now.Month()),
	}
	e.GenerateDaily()
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

// refresh reloads every view from the engine
func (m *Model) refresh() {
	m.habitList.SetHabits(m.engine.TodaysHabits())
	m.garden.SetGarden(m.engine.Plants(), m.gardenFooter())
}

func (m Model) gardenFooter() string {
	footer := fmt.Sprintf("Balance: %d points", m.engine.Balance())
	if next, ok := m.engine.NextPlantingDate(); ok && m.engine.Clock().Now().Before(next) {
		footer += " | next planting " + next.Format(constants.DateFormat)
	} else {
		footer += " | you can plant today"
	}
	return footer
}

func (m *Model) setStatus(msg string) {
	m.status = msg
	m.statusIsError = false
	if err := m.engine.LastPersistError(); err != nil {
		m.status = msg + " (⚠ not saved: " + err.Error() + ")"
		m.statusIsError = true
	}
}

func (m *Model) setError(err error) {
	m.status = errorText(err)
	m.statusIsError = true
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case constants.StateToday:
		hk := m.habitList.Keys()
		keys = append(keys, hk.Toggle, hk.Add, hk.Archive)
	case constants.StateQuests:
		keys = append(keys, m.keys.Refresh)
	case constants.StateGarden:
		gk := m.garden.Keys()
		keys = append(keys, gk.Water, gk.Plant)
	case constants.StateCalendar:
		keys = append(keys, m.keys.PrevMonth, m.keys.NextMonth)
	case constants.StateAddHabit, constants.StatePlant:
		keys = []key.Binding{m.keys.Cancel}
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{m.ShortHelp(), {m.keys.ShiftTab}}
}

func (m *Model) openHabitForm() tea.Cmd {
	m.habitForm = &HabitFormModel{Frequency: string(constants.FrequencyDaily)}
	m.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Habit").
			Value(&m.habitForm.Title).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("title is required")
				}
				return nil
			}),
		huh.NewInput().
			Title("Category").
			Placeholder("optional").
			Value(&m.habitForm.Category),
		huh.NewSelect[string]().
			Title("Frequency").
			Options(huh.NewOptions(
				string(constants.FrequencyDaily),
				string(constants.FrequencyWeekdays),
				string(constants.FrequencyWeekends),
				string(constants.FrequencyWeekly),
			)...).
			Value(&m.habitForm.Frequency),
	)).WithShowHelp(false)

	m.previousState = m.state
	m.state = constants.StateAddHabit
	return m.form.Init()
}

func (m *Model) openPlantForm() tea.Cmd {
	species := m.engine.Species()
	if len(species) == 0 {
		m.setError(errors.New("no bamboo species available"))
		return nil
	}
	m.plantForm = &PlantFormModel{Species: species[0].Type}

	options := make([]huh.Option[string], len(species))
	for i, s := range species {
		options[i] = huh.NewOption(fmt.Sprintf("%s (%d points)", s.Name, s.Cost), s.Type)
	}
	m.form = huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(fmt.Sprintf("Species (balance %d)", m.engine.Balance())).
			Options(options...).
			Value(&m.plantForm.Species),
		huh.NewInput().
			Title("Name").
			Placeholder("optional").
			Value(&m.plantForm.Name),
	)).WithShowHelp(false)

	m.previousState = m.state
	m.state = constants.StatePlant
	return m.form.Init()
}
