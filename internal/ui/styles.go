package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the TUI.
var (
	ColorRed     = lipgloss.Color("#FF0000")
	ColorGreen   = lipgloss.Color("#00FF00")
	ColorYellow  = lipgloss.Color("#FFFF00")
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorGray    = lipgloss.Color("#666666")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
	ColorMagenta = lipgloss.Color("#FF00FF")
	ColorBlue    = lipgloss.Color("#5F87FF")
)

// Base styles reused by UI components.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	StreamingDotStyle = lipgloss.NewStyle().
				Foreground(ColorGreen).
				Bold(true)

	IdleDotStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	TranscriptionStyle = lipgloss.NewStyle().
				Foreground(ColorYellow).
				Italic(true)

	MessageStyle = lipgloss.NewStyle().
			Foreground(ColorWhite)

	ClockStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorCyan).
			Padding(0, 2)

	WeatherCardStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBlue).
				Padding(0, 1)

	WeatherKeyStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	MusicStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta).
			Bold(true)

	ToggleOnStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	ToggleOffStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	ToggleDisabledStyle = lipgloss.NewStyle().
				Foreground(ColorDimGray).
				Strikethrough(true)

	LatencyStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	LatencyTotalStyle = lipgloss.NewStyle().
				Foreground(ColorGreen).
				Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)
)
