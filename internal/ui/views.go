package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/edusis/campuscal/internal/calendar"
)

const (
	minCellWidth = 10
	cellLines    = 2 + calendar.DisplayLimit
)

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var body string
	switch {
	case m.mode == modeHelp:
		body = m.viewHelp()
	case m.ctrl.View() == calendar.ViewList:
		body = m.viewList()
	default:
		body = m.viewGrid()
	}

	switch m.mode {
	case modeForm:
		body = m.centered(m.viewForm())
	case modeConfirmDelete:
		body = m.centered(m.viewConfirmDelete())
	case modeGoTo:
		body = m.centered(m.styles.Modal.Render(m.gotoInput.View()))
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.viewHeader(), body, m.renderStatusBar())
}

func (m *Model) viewHeader() string {
	title := m.styles.Header.Render(m.ctrl.Cursor().String())

	var status string
	switch {
	case m.ctrl.SyncState() == calendar.SyncLoading:
		status = m.styles.Today.Render("Syncing…")
	case m.ctrl.LastSync().Err != nil:
		status = m.styles.Error.Render("Sync failed")
	case !m.ctrl.LastSync().At.IsZero():
		status = m.styles.Help.Render("Synced " + m.ctrl.LastSync().At.Format(m.cfg.TimeFormat))
	}

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(status) - 2
	if gap < 1 {
		gap = 1
	}
	return " " + title + strings.Repeat(" ", gap) + status
}

func (m *Model) cellWidth() int {
	w := (m.width - 8) / 7
	if w < minCellWidth {
		w = minCellWidth
	}
	return w
}

func (m *Model) viewGrid() string {
	grid := m.ctrl.Grid()
	width := m.cellWidth()
	today := m.ctrl.Today()

	var rows []string
	rows = append(rows, m.renderWeekdays(grid.WeekStart, width))
	for _, week := range grid.Weeks() {
		cells := make([]string, 0, len(week))
		for _, cell := range week {
			cells = append(cells, m.renderCell(cell, width, today))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) renderWeekdays(start time.Weekday, width int) string {
	var names []string
	for i := 0; i < 7; i++ {
		wd := time.Weekday((int(start) + i) % 7)
		name := lipgloss.NewStyle().Width(width + 1).Render(" " + wd.String()[:3])
		if wd == time.Saturday || wd == time.Sunday {
			name = m.styles.Weekend.Render(name)
		} else {
			name = m.styles.Normal.Render(name)
		}
		names = append(names, name)
	}
	return strings.Join(names, "")
}

func (m *Model) renderCell(cell calendar.Cell, width int, today calendar.Date) string {
	inner := width - 1
	lines := make([]string, 0, cellLines)

	num := fmt.Sprintf("%2d", cell.Day)
	switch {
	case !cell.Interactive():
		num = m.styles.Dimmed.Render(num)
	case cell.Date == m.focus:
		num = m.styles.Selected.Render(num)
	case cell.Date == today:
		num = m.styles.Today.Render(num)
	case cell.Date.Weekday() == time.Saturday || cell.Date.Weekday() == time.Sunday:
		num = m.styles.Weekend.Render(num)
	default:
		num = m.styles.Normal.Render(num)
	}
	lines = append(lines, num)

	for i, ev := range cell.Events {
		label := truncate.StringWithTail(ev.Title, uint(inner-2), "…")
		if cell.Date == m.focus && i == m.eventIdx {
			label = m.styles.Focused.Render(label)
		}
		lines = append(lines, TagDot(ev.Tag)+" "+label)
	}
	if cell.Overflow > 0 {
		lines = append(lines, m.styles.Help.Render(fmt.Sprintf("+%d more", cell.Overflow)))
	}

	border := m.styles.Border
	if cell.Date == m.focus && cell.Interactive() {
		border = border.BorderForeground(lipgloss.Color("220"))
	}
	return border.
		Width(inner).
		Height(cellLines).
		Render(strings.Join(lines, "\n"))
}

func (m *Model) viewList() string {
	events := m.ctrl.ListEvents()
	if len(events) == 0 {
		return m.styles.Help.Render("\n  No events. Press " + m.keys.NewEvent.Help().Key + " to add one.")
	}

	visible := m.height - 4
	if visible < 3 {
		visible = 3
	}
	start := 0
	if m.eventIdx >= visible {
		start = m.eventIdx - visible + 1
	}

	titleWidth := m.width - 40
	if titleWidth < 10 {
		titleWidth = 10
	}

	var lines []string
	for i := start; i < len(events) && i < start+visible; i++ {
		ev := events[i]
		date := ev.Date.In(time.UTC).Format(m.cfg.DateFormat)
		title := ev.Title
		if m.cfg.WrapText {
			title = strings.SplitN(wordwrap.String(title, titleWidth), "\n", 2)[0]
		}
		title = truncate.StringWithTail(title, uint(titleWidth), "…")

		line := fmt.Sprintf(" %-14s %-9s %s %s", date, ev.Time, TagBadge(ev.Tag, " "+string(ev.Tag)+" "), title)
		if ev.Source == calendar.SourceExternal {
			line += m.styles.Dimmed.Render(" ↻")
		}
		if i == m.eventIdx {
			line = m.styles.Focused.Render("›") + line
		} else {
			line = " " + line
		}
		lines = append(lines, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) viewForm() string {
	form := m.ctrl.Form()
	day, _ := m.ctrl.Selected()

	sections := []string{
		m.styles.Header.Render("New event · " + day.In(time.UTC).Format(m.cfg.DateFormat)),
		"",
		m.fieldLabel(fieldTitle, m.title.View()),
		m.fieldLabel(fieldTime, m.timeInput.View()),
		m.fieldLabel(fieldTag, "Tag:   "+m.renderTagSelector(form.Draft.Tag)),
	}

	if existing := m.ctrl.Store().EventsForDate(day); len(existing) > 0 {
		sections = append(sections, "", m.styles.Help.Render(fmt.Sprintf("%d event(s) already on this day", len(existing))))
	}
	if form.Err != nil {
		sections = append(sections, "", m.styles.Error.Render(wordwrap.String(formError(form.Err), 48)))
	}
	sections = append(sections, "", m.styles.Help.Render("tab next field · ←/→ tag · enter save · esc cancel"))
	return m.styles.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) fieldLabel(f formField, content string) string {
	if m.field == f {
		return m.styles.Focused.Render("▸ ") + content
	}
	return "  " + content
}

func (m *Model) renderTagSelector(current calendar.Tag) string {
	parts := make([]string, 0, len(calendar.Tags))
	for _, t := range calendar.Tags {
		if t == current {
			parts = append(parts, TagBadge(t, "["+string(t)+"]"))
		} else {
			parts = append(parts, m.styles.Dimmed.Render(" "+string(t)+" "))
		}
	}
	return strings.Join(parts, "")
}

func formError(err error) string {
	var verr *calendar.ValidationError
	if errors.As(err, &verr) {
		var msgs []string
		for _, f := range verr.Fields {
			msgs = append(msgs, strings.ToUpper(f.Field[:1])+f.Field[1:]+": "+f.Error)
		}
		return strings.Join(msgs, "\n")
	}
	return err.Error()
}

func (m *Model) viewConfirmDelete() string {
	ev, ok := m.ctrl.PendingDelete()
	if !ok {
		return ""
	}
	lines := []string{
		m.styles.Error.Render("Delete this event?"),
		"",
		TagBadge(ev.Tag, " "+string(ev.Tag)+" ") + " " + ev.Title,
		m.styles.Help.Render(ev.Date.In(time.UTC).Format(m.cfg.DateFormat) + " · " + ev.Time),
	}
	if ev.Source == calendar.SourceExternal {
		lines = append(lines, m.styles.Dimmed.Render("Synced event; it returns on the next sync."))
	}
	lines = append(lines, "", m.styles.Help.Render("y confirm · n cancel"))
	return m.styles.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// centered replaces the body with a modal in the middle of the screen.
func (m *Model) centered(modal string) string {
	return lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, modal)
}

func (m *Model) viewHelp() string {
	h := m.help
	h.ShowAll = true
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render("campuscal help"),
		"",
		h.View(m.keys),
		"",
		m.styles.Help.Render("Press any key to return..."),
	)
}

func (m *Model) renderStatusBar() string {
	left := fmt.Sprintf(" %s | Events: %d", m.focus.In(time.UTC).Format(m.cfg.DateFormat), len(m.ctrl.Store().EventsForDate(m.focus)))

	right := m.help.View(m.keys)
	if m.message != "" {
		if m.messageErr {
			right = m.styles.Error.Render(m.message)
		} else {
			right = m.styles.Message.Render(m.message)
		}
	}

	width := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if width < 0 {
		width = 0
	}
	return m.styles.Help.Render(left) + strings.Repeat(" ", width) + right
}
