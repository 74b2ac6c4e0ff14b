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
	ColorBlue    = lipgloss.Color("#3B82F6")
	ColorPurple  = lipgloss.Color("#A855F7")
	ColorIndigo  = lipgloss.Color("#6366F1")
)

// actionColors maps the color names used by action definitions.
var actionColors = map[string]lipgloss.Color{
	"blue":    ColorBlue,
	"green":   ColorGreen,
	"red":     ColorRed,
	"purple":  ColorPurple,
	"yellow":  ColorYellow,
	"indigo":  ColorIndigo,
	"gray":    ColorGray,
	"cyan":    ColorCyan,
	"magenta": ColorMagenta,
	"white":   ColorWhite,
}

// ActionColor resolves an action color name. Unknown names fall back to
// gray; hex values such as "#FF8800" are used as given.
func ActionColor(name string) lipgloss.Color {
	if c, ok := actionColors[name]; ok {
		return c
	}
	if len(name) > 0 && name[0] == '#' {
		return lipgloss.Color(name)
	}
	return ColorGray
}

// ActionStyle is the style of an action's marker and label.
func ActionStyle(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ActionColor(color))
}

// Base styles reused by UI components.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	PlayingStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	PausedStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	ClockStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	TeamStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	PanelTitleActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorCyan)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
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

	FrameStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	RegionStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	RubberBandStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)

	AutoBadgeStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)

	InputLabelStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)
)
