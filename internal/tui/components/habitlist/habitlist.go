package habitlist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/grove/internal/models"
)

type AddHabitMsg struct{}

type ToggleHabitMsg struct {
	ID string
}

type ArchiveHabitMsg struct {
	ID string
}

type Item struct {
	Today models.TodayHabit
}

func (i Item) Title() string {
	mark := "[ ]"
	if i.Today.Completed {
		mark = "[✓]"
	}
	return mark + " " + i.Today.Habit.Title
}

func (i Item) Description() string {
	desc := fmt.Sprintf("🔥 %d day streak | %d%% this month", i.Today.Streak, i.Today.CompletionRate)
	if c := i.Today.Habit.Category; c != "" {
		desc += " | " + c
	}
	return desc
}

func (i Item) FilterValue() string { return i.Today.Habit.Title }

type KeyMap struct {
	Toggle  key.Binding
	Add     key.Binding
	Archive key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "toggle"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Archive: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "archive"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(habits []models.TodayHabit, width, height int) Model {
	l := list.New(toItems(habits), list.NewDefaultDelegate(), width, height)
	l.Title = "Today"
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Toggle, keys.Add, keys.Archive}
	}
	return Model{list: l, keys: keys}
}

func toItems(habits []models.TodayHabit) []list.Item {
	items := make([]list.Item, len(habits))
	for i, h := range habits {
		items[i] = Item{Today: h}
	}
	return items
}

func (m *Model) SetHabits(habits []models.TodayHabit) {
	m.list.SetItems(toItems(habits))
}

func (m Model) Keys() KeyMap {
	return m.keys
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddHabitMsg{} }
		case key.Matches(msg, m.keys.Toggle):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return ToggleHabitMsg{ID: i.Today.Habit.ID} }
			}
		case key.Matches(msg, m.keys.Archive):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return ArchiveHabitMsg{ID: i.Today.Habit.ID} }
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  Nothing scheduled today.\n  Press 'a' to add a habit."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
