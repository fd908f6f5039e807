package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorPrimary   = lipgloss.Color("12")  // bright blue
	colorSecondary = lipgloss.Color("10")  // bright green
	colorDim       = lipgloss.Color("240") // gray
	colorHighlight = lipgloss.Color("11")  // bright yellow
	colorBorder    = lipgloss.Color("238") // dark gray
	colorError     = lipgloss.Color("9")   // bright red

	// Transcript
	styleUserLabel = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleAssistantLabel = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(colorDim)

	styleCancelled = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)

	styleHint = lipgloss.NewStyle().
			Foreground(colorDim)

	// Input area
	styleCursor = lipgloss.NewStyle().
			Reverse(true)

	// List items
	styleListSelected = lipgloss.NewStyle().
				Foreground(colorHighlight).
				Bold(true)

	styleListNormal = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	styleListTag = lipgloss.NewStyle().
			Foreground(colorSecondary)

	// Panels
	stylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder)

	styleActiveBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary)

	// Status bar
	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(0, 1)

	styleMode = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true)

	styleNoticeError = lipgloss.NewStyle().
				Foreground(colorError)

	// Panel titles
	styleTitle = lipgloss.NewStyle().
			Foreground(colorDim).
			Bold(true)
)
