package garden

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/models"
)

var (
	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			Width(18)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Width(18)

	barFull  = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	barEmpty = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

var stageIcon = map[models.PlantStage]string{
	models.StageSprout: "🌱",
	models.StageYoung:  "🌿",
	models.StageMature: "🎋",
}

type WaterPlantMsg struct {
	ID string
}

type PlantMsg struct{}

type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Water key.Binding
	Plant key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Water: key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "water")),
		Plant: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "plant")),
	}
}

type Model struct {
	viewport viewport.Model
	keys     KeyMap
	plants   []models.PlantView
	cursor   int
	footer   string
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height), keys: DefaultKeyMap()}
}

func (m Model) Keys() KeyMap {
	return m.keys
}

// SetGarden replaces the plants and the footer line (balance, next planting)
func (m *Model) SetGarden(plants []models.PlantView, footer string) {
	m.plants = plants
	m.footer = footer
	if m.cursor >= len(plants) {
		m.cursor = max(0, len(plants)-1)
	}
	m.Render()
}

// Selected returns the plant under the cursor
func (m Model) Selected() (models.PlantView, bool) {
	if len(m.plants) == 0 {
		return models.PlantView{}, false
	}
	return m.plants[m.cursor], true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.Render()
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.plants)-1 {
				m.cursor++
				m.Render()
			}
			return m, nil
		case key.Matches(msg, m.keys.Water):
			if p, ok := m.Selected(); ok {
				return m, func() tea.Msg { return WaterPlantMsg{ID: p.ID} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Plant):
			return m, func() tea.Msg { return PlantMsg{} }
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
	m.Render()
}

func (m *Model) Render() {
	var b strings.Builder
	if len(m.plants) == 0 {
		b.WriteString("Your garden is empty. Press 'p' to plant a bamboo.\n")
	}
	for i, p := range m.plants {
		style := nameStyle
		if i == m.cursor {
			style = selectedStyle
		}
		fmt.Fprintf(&b, "%s %s %s %3d%%  💧 %d/%d  %s\n",
			stageIcon[p.Stage],
			style.Render(p.Name),
			growthBar(p.Growth, 20),
			p.Growth,
			p.WateringsToday, constants.DailyWaterLimit,
			statusStyle.Render(string(p.Pot)),
		)
	}
	if m.footer != "" {
		b.WriteString("\n" + statusStyle.Render(m.footer) + "\n")
	}
	m.viewport.SetContent(b.String())
}

func growthBar(growth, width int) string {
	filled := growth * width / 100
	return barFull.Render(strings.Repeat("█", filled)) + barEmpty.Render(strings.Repeat("░", width-filled))
}
