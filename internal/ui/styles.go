package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/edusis/campuscal/internal/calendar"
)

type Styles struct {
	Normal   lipgloss.Style
	Selected lipgloss.Style
	Today    lipgloss.Style
	Weekend  lipgloss.Style
	Dimmed   lipgloss.Style
	Header   lipgloss.Style
	Help     lipgloss.Style
	Message  lipgloss.Style
	Error    lipgloss.Style
	Border   lipgloss.Style
	Modal    lipgloss.Style
	Focused  lipgloss.Style
}

// NewStyles builds the palette from the configured colours, keyed by style
// name. Missing names keep their defaults.
func NewStyles(colors map[string]string) Styles {
	c := func(name, def string) lipgloss.Color {
		if v, ok := colors[name]; ok && v != "" {
			return lipgloss.Color(v)
		}
		return lipgloss.Color(def)
	}

	return Styles{
		Normal: lipgloss.NewStyle().
			Foreground(c("normal", "252")),
		Selected: lipgloss.NewStyle().
			Foreground(c("selected", "235")).
			Background(c("today", "220")).
			Bold(true),
		Today: lipgloss.NewStyle().
			Foreground(c("today", "220")).
			Bold(true),
		Weekend: lipgloss.NewStyle().
			Foreground(c("weekend", "39")),
		Dimmed: lipgloss.NewStyle().
			Foreground(c("dimmed", "241")),
		Header: lipgloss.NewStyle().
			Foreground(c("header", "220")).
			Bold(true),
		Help: lipgloss.NewStyle().
			Foreground(c("dimmed", "241")),
		Message: lipgloss.NewStyle().
			Foreground(c("today", "220")).
			Background(c("selected", "235")).
			Padding(0, 1),
		Error: lipgloss.NewStyle().
			Foreground(c("error", "196")).
			Bold(true),
		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")),
		Modal: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(c("header", "220")).
			Padding(1, 2),
		Focused: lipgloss.NewStyle().
			Foreground(c("header", "220")).
			Bold(true),
	}
}

// TagBadge renders text in the tag's colour pair.
func TagBadge(t calendar.Tag, text string) string {
	colors := calendar.TagStyle(t)
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(colors.Foreground)).
		Background(lipgloss.Color(colors.Background)).
		Render(text)
}

// TagDot is the coloured bullet shown in grid cells.
func TagDot(t calendar.Tag) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(calendar.TagStyle(t).Foreground)).
		Render("●")
}
