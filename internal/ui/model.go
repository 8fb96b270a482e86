package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/edusis/campuscal/internal/calendar"
	"github.com/edusis/campuscal/internal/config"
	"github.com/edusis/campuscal/internal/parser"
)

type mode int

const (
	modeBrowse mode = iota
	modeForm
	modeConfirmDelete
	modeGoTo
	modeHelp
)

type formField int

const (
	fieldTitle formField = iota
	fieldTime
	fieldTag
	fieldCount
)

const messageTTL = 3 * time.Second

// Model renders a calendar.Controller and turns key presses into controller
// calls. Apart from the focused day and the text inputs it keeps no state
// of its own.
type Model struct {
	ctrl   *calendar.Controller
	cfg    *config.Config
	log    zerolog.Logger
	parser *parser.Parser

	keys   KeyMap
	help   help.Model
	styles Styles

	mode  mode
	focus calendar.Date
	// eventIdx picks an event on the focused day (grid) or in the list.
	eventIdx int

	title     textinput.Model
	timeInput textinput.Model
	gotoInput textinput.Model
	field     formField

	triggers <-chan string

	width, height int
	message       string
	messageErr    bool
	messageSeq    int
}

type Option func(*Model)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Model) {
		m.log = l
	}
}

// WithTriggers delivers sync requests from file watchers and the cron
// scheduler. Each value names the trigger.
func WithTriggers(ch <-chan string) Option {
	return func(m *Model) {
		m.triggers = ch
	}
}

func WithParser(p *parser.Parser) Option {
	return func(m *Model) {
		m.parser = p
	}
}

func NewModel(ctrl *calendar.Controller, cfg *config.Config, opts ...Option) *Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 120
	title.Prompt = "Title: "

	timeInput := textinput.New()
	timeInput.Placeholder = calendar.AllDay
	timeInput.CharLimit = 64
	timeInput.Prompt = "Time:  "

	gotoInput := textinput.New()
	gotoInput.Placeholder = "2024-08-27, next monday, aug 27"
	gotoInput.Prompt = "Go to: "

	m := &Model{
		ctrl:      ctrl,
		cfg:       cfg,
		log:       zerolog.Nop(),
		keys:      NewKeyMap(cfg.KeyBindings),
		help:      help.New(),
		styles:    NewStyles(cfg.Colors),
		focus:     ctrl.Today(),
		title:     title,
		timeInput: timeInput,
		gotoInput: gotoInput,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.parser == nil {
		m.parser = parser.New(parser.WithTimeFormat(cfg.TimeFormat))
	}
	if cfg.StartupView == "list" && ctrl.View() != calendar.ViewList {
		ctrl.ToggleView()
	}
	return m
}

// Message types
type (
	syncDoneMsg struct {
		count int
		err   error
	}
	triggerMsg      struct{ reason string }
	clearMessageMsg struct{ seq int }
)

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForTrigger()}
	if m.cfg.Sync.OnStartup {
		cmds = append(cmds, m.startSync("startup"))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case syncDoneMsg:
		m.ctrl.CompleteSync(msg.count, msg.err)
		if msg.err != nil {
			m.log.Error().Err(msg.err).Msg("sync failed")
			return m, m.showError("Sync failed: " + msg.err.Error())
		}
		m.log.Info().Int("events", msg.count).Msg("sync complete")
		return m, m.showMessage(fmt.Sprintf("Synced %d events", msg.count))

	case triggerMsg:
		m.log.Debug().Str("trigger", msg.reason).Msg("sync triggered")
		return m, tea.Batch(m.startSync(msg.reason), m.waitForTrigger())

	case clearMessageMsg:
		if msg.seq == m.messageSeq {
			m.message = ""
			m.messageErr = false
		}
		return m, nil
	}

	return m, m.updateInputs(msg)
}

// updateInputs forwards non-key messages such as cursor blinks.
func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	var cmds [3]tea.Cmd
	m.title, cmds[0] = m.title.Update(msg)
	m.timeInput, cmds[1] = m.timeInput.Update(msg)
	m.gotoInput, cmds[2] = m.gotoInput.Update(msg)
	return tea.Batch(cmds[:]...)
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		return m, m.handleFormKeys(msg)
	case modeConfirmDelete:
		return m, m.handleConfirmKeys(msg)
	case modeGoTo:
		return m, m.handleGoToKeys(msg)
	case modeHelp:
		m.mode = modeBrowse
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.mode = modeHelp
	case key.Matches(msg, m.keys.Sync):
		return m, m.startSync("key")
	case key.Matches(msg, m.keys.ToggleView):
		m.ctrl.ToggleView()
		m.eventIdx = 0
	case key.Matches(msg, m.keys.Today):
		m.ctrl.GoToday()
		m.setFocus(m.ctrl.Today())
	case key.Matches(msg, m.keys.NextMonth):
		m.ctrl.NextMonth()
		m.clampFocus()
	case key.Matches(msg, m.keys.PrevMonth):
		m.ctrl.PrevMonth()
		m.clampFocus()
	case key.Matches(msg, m.keys.GoTo):
		m.mode = modeGoTo
		m.gotoInput.Reset()
		return m, m.gotoInput.Focus()
	case key.Matches(msg, m.keys.Delete):
		return m, m.requestDelete()
	case key.Matches(msg, m.keys.NewEvent), key.Matches(msg, m.keys.Select):
		return m, m.openForm()
	default:
		if m.ctrl.View() == calendar.ViewList {
			m.handleListKeys(msg)
		} else {
			m.handleGridKeys(msg)
		}
	}
	return m, nil
}

func (m *Model) handleGridKeys(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.NextDay):
		m.moveFocus(1)
	case key.Matches(msg, m.keys.PrevDay):
		m.moveFocus(-1)
	case key.Matches(msg, m.keys.NextWeek):
		m.moveFocus(7)
	case key.Matches(msg, m.keys.PrevWeek):
		m.moveFocus(-7)
	case key.Matches(msg, m.keys.NextEvent):
		if n := len(m.ctrl.Store().EventsForDate(m.focus)); n > 0 {
			m.eventIdx = (m.eventIdx + 1) % n
		}
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) {
	n := len(m.ctrl.ListEvents())
	switch {
	case key.Matches(msg, m.keys.NextWeek), key.Matches(msg, m.keys.NextEvent):
		if m.eventIdx < n-1 {
			m.eventIdx++
		}
	case key.Matches(msg, m.keys.PrevWeek):
		if m.eventIdx > 0 {
			m.eventIdx--
		}
	}
}

// moveFocus shifts the focused day, following it into the next or previous
// month when it leaves the displayed one.
func (m *Model) moveFocus(days int) {
	m.setFocus(m.focus.AddDays(days))
}

func (m *Model) setFocus(d calendar.Date) {
	m.focus = d
	m.eventIdx = 0
	if calendar.CursorOf(d) != m.ctrl.Cursor() {
		m.ctrl.GoTo(d)
	}
}

// clampFocus keeps the focused day number after a month jump.
func (m *Model) clampFocus() {
	c := m.ctrl.Cursor()
	day := m.focus.Day
	if last := calendar.DaysIn(c.Year, c.Month); day > last {
		day = last
	}
	m.focus = calendar.Date{Year: c.Year, Month: c.Month, Day: day}
	m.eventIdx = 0
}

func (m *Model) openForm() tea.Cmd {
	if m.ctrl.View() == calendar.ViewList {
		m.ctrl.ToggleView()
	}
	if calendar.CursorOf(m.focus) != m.ctrl.Cursor() || !m.ctrl.TapDay(m.focus.Day) {
		return nil
	}
	m.mode = modeForm
	m.field = fieldTitle
	m.title.Reset()
	m.timeInput.Reset()
	m.timeInput.Blur()
	return m.title.Focus()
}

func (m *Model) closeForm() {
	m.ctrl.CloseForm()
	m.title.Blur()
	m.timeInput.Blur()
	m.mode = modeBrowse
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeForm()
		return nil

	case tea.KeyTab, tea.KeyShiftTab:
		step := 1
		if msg.Type == tea.KeyShiftTab {
			step = -1
		}
		return m.focusField(formField((int(m.field) + step + int(fieldCount)) % int(fieldCount)))

	case tea.KeyEnter:
		return m.submitForm()
	}

	if m.field == fieldTag {
		switch msg.String() {
		case "left", "h", "up", "k":
			m.ctrl.CycleTag(-1)
		case "right", "l", "down", "j", " ":
			m.ctrl.CycleTag(1)
		}
		return nil
	}

	var cmd tea.Cmd
	if m.field == fieldTitle {
		m.title, cmd = m.title.Update(msg)
		m.ctrl.SetTitle(m.title.Value())
	} else {
		m.timeInput, cmd = m.timeInput.Update(msg)
		m.ctrl.SetTime(m.timeInput.Value())
	}
	return cmd
}

func (m *Model) focusField(f formField) tea.Cmd {
	m.field = f
	m.title.Blur()
	m.timeInput.Blur()
	switch f {
	case fieldTitle:
		return m.title.Focus()
	case fieldTime:
		return m.timeInput.Focus()
	}
	return nil
}

func (m *Model) submitForm() tea.Cmd {
	m.ctrl.SetTitle(m.title.Value())
	m.ctrl.SetTime(m.timeInput.Value())

	ev, err := m.ctrl.Submit()
	if err != nil {
		m.log.Debug().Err(err).Msg("event rejected")
		return nil
	}
	m.log.Info().Str("id", ev.ID).Str("date", ev.Date.String()).Msg("event added")
	m.title.Blur()
	m.timeInput.Blur()
	m.mode = modeBrowse
	return m.showMessage("Added " + ev.Title)
}

// selectedEvent is the event delete acts on: the highlighted one on the
// focused day, or the highlighted list row.
func (m *Model) selectedEvent() (calendar.Event, bool) {
	var events []calendar.Event
	if m.ctrl.View() == calendar.ViewList {
		events = m.ctrl.ListEvents()
	} else {
		events = m.ctrl.Store().EventsForDate(m.focus)
	}
	if len(events) == 0 {
		return calendar.Event{}, false
	}
	if m.eventIdx >= len(events) {
		m.eventIdx = len(events) - 1
	}
	return events[m.eventIdx], true
}

func (m *Model) requestDelete() tea.Cmd {
	ev, ok := m.selectedEvent()
	if !ok || !m.ctrl.RequestDelete(ev.ID) {
		return m.showMessage("No event selected")
	}
	m.mode = modeConfirmDelete
	return nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		m.mode = modeBrowse
		ev, _ := m.ctrl.PendingDelete()
		ok, err := m.ctrl.ConfirmDelete()
		if err != nil {
			m.log.Error().Err(err).Str("id", ev.ID).Msg("delete failed")
			return m.showError("Delete failed: " + err.Error())
		}
		if ok {
			m.log.Info().Str("id", ev.ID).Msg("event deleted")
			if m.eventIdx > 0 {
				m.eventIdx--
			}
			return m.showMessage("Deleted " + ev.Title)
		}
	case "n", "N", "esc", "q":
		m.ctrl.CancelDelete()
		m.mode = modeBrowse
	}
	return nil
}

func (m *Model) handleGoToKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.gotoInput.Blur()
		m.mode = modeBrowse
		return nil
	case tea.KeyEnter:
		m.gotoInput.Blur()
		m.mode = modeBrowse
		d, err := m.parser.ParseDate(m.gotoInput.Value())
		if err != nil {
			return m.showError(err.Error())
		}
		m.setFocus(d)
		return nil
	}
	var cmd tea.Cmd
	m.gotoInput, cmd = m.gotoInput.Update(msg)
	return cmd
}

// startSync moves the controller to loading and runs the sync off the
// update loop. It does nothing while a sync is already running.
func (m *Model) startSync(reason string) tea.Cmd {
	if !m.ctrl.HasSyncer() {
		if reason == "key" {
			return m.showMessage("No external calendar configured")
		}
		return nil
	}
	if !m.ctrl.StartSync() {
		return nil
	}

	rng := m.ctrl.SyncRange()
	timeout := m.cfg.Sync.Timeout
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		n, err := ctrl.RunSync(ctx, rng)
		return syncDoneMsg{count: n, err: err}
	}
}

func (m *Model) waitForTrigger() tea.Cmd {
	if m.triggers == nil {
		return nil
	}
	ch := m.triggers
	return func() tea.Msg {
		reason, ok := <-ch
		if !ok {
			return nil
		}
		return triggerMsg{reason: reason}
	}
}

func (m *Model) showMessage(msg string) tea.Cmd {
	m.message = msg
	m.messageErr = false
	m.messageSeq++
	seq := m.messageSeq
	return tea.Tick(messageTTL, func(time.Time) tea.Msg {
		return clearMessageMsg{seq: seq}
	})
}

func (m *Model) showError(msg string) tea.Cmd {
	cmd := m.showMessage(msg)
	m.messageErr = true
	return cmd
}
