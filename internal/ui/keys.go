package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/edusis/campuscal/internal/config"
)

// KeyMap holds the bindings of the calendar screen. It satisfies
// help.KeyMap.
type KeyMap struct {
	Quit       key.Binding
	Help       key.Binding
	Today      key.Binding
	Sync       key.Binding
	NewEvent   key.Binding
	Delete     key.Binding
	ToggleView key.Binding
	NextDay    key.Binding
	PrevDay    key.Binding
	NextWeek   key.Binding
	PrevWeek   key.Binding
	NextMonth  key.Binding
	PrevMonth  key.Binding
	GoTo       key.Binding
	NextEvent  key.Binding
	Select     key.Binding
}

// NewKeyMap builds bindings from the configured key_bindings. Actions the
// user left out keep their default key. A value may list several keys
// separated by commas.
func NewKeyMap(bindings map[string]string) KeyMap {
	defaults := config.DefaultConfig().KeyBindings
	keys := func(action string, extra ...string) []string {
		v := bindings[action]
		if strings.TrimSpace(v) == "" {
			v = defaults[action]
		}
		var out []string
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
		return append(out, extra...)
	}
	bind := func(action, desc string, extra ...string) key.Binding {
		ks := keys(action, extra...)
		return key.NewBinding(key.WithKeys(ks...), key.WithHelp(strings.Join(ks, "/"), desc))
	}

	return KeyMap{
		Quit:       bind("quit", "quit", "ctrl+c"),
		Help:       bind("help", "help"),
		Today:      bind("today", "today"),
		Sync:       bind("sync", "sync"),
		NewEvent:   bind("new_event", "add event"),
		Delete:     bind("delete_event", "delete"),
		ToggleView: bind("toggle_view", "grid/list"),
		NextDay:    bind("next_day", "next day", "right"),
		PrevDay:    bind("prev_day", "prev day", "left"),
		NextWeek:   bind("next_week", "next week", "down"),
		PrevWeek:   bind("prev_week", "prev week", "up"),
		NextMonth:  bind("next_month", "next month", "pgdown"),
		PrevMonth:  bind("prev_month", "prev month", "pgup"),
		GoTo:       bind("goto_date", "go to date"),
		NextEvent:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next event")),
		Select:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add on day")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NewEvent, k.Sync, k.ToggleView, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevDay, k.NextDay, k.PrevWeek, k.NextWeek},
		{k.PrevMonth, k.NextMonth, k.Today, k.GoTo},
		{k.Select, k.NewEvent, k.NextEvent, k.Delete},
		{k.Sync, k.ToggleView, k.Help, k.Quit},
	}
}
