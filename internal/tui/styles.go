package tui

import "github.com/charmbracelet/lipgloss"

var (
	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			Bold(true)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 1)

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	balanceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("35")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Padding(0, 1)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Strikethrough(true)

	// calendar cells by completion rate
	cellNone    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	cellLow     = lipgloss.NewStyle().Foreground(lipgloss.Color("166"))
	cellMid     = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	cellFull    = lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true)
	cellToday   = lipgloss.NewStyle().Underline(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)
