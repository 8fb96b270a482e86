package calendar

import (
	"fmt"
	"time"
)

// DisplayLimit is how many events a grid cell shows before collapsing the
// rest into an overflow counter.
const DisplayLimit = 2

// MonthCursor selects the month the grid displays.
type MonthCursor struct {
	Year  int
	Month time.Month
}

func CursorOf(d Date) MonthCursor {
	return MonthCursor{Year: d.Year, Month: d.Month}
}

func (c MonthCursor) Next() MonthCursor {
	if c.Month == time.December {
		return MonthCursor{c.Year + 1, time.January}
	}
	return MonthCursor{c.Year, c.Month + 1}
}

func (c MonthCursor) Prev() MonthCursor {
	if c.Month == time.January {
		return MonthCursor{c.Year - 1, time.December}
	}
	return MonthCursor{c.Year, c.Month - 1}
}

// AddMonths moves the cursor n months, n may be negative.
func (c MonthCursor) AddMonths(n int) MonthCursor {
	t := time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return MonthCursor{t.Year(), t.Month()}
}

func (c MonthCursor) First() Date {
	return Date{c.Year, c.Month, 1}
}

func (c MonthCursor) Last() Date {
	return Date{c.Year, c.Month, DaysIn(c.Year, c.Month)}
}

func (c MonthCursor) String() string {
	return fmt.Sprintf("%s %d", c.Month, c.Year)
}

// DaysIn returns the number of days in month, using day 0 of the following
// month as the last day of this one.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

type CellKind int

const (
	CellPrevious CellKind = iota
	CellCurrent
	CellNext
)

func (k CellKind) String() string {
	switch k {
	case CellPrevious:
		return "previous"
	case CellCurrent:
		return "current"
	case CellNext:
		return "next"
	}
	return "unknown"
}

type Cell struct {
	Kind CellKind
	Day  int
	Date Date

	// Events holds at most DisplayLimit events; only current-month cells
	// carry events.
	Events   []Event
	Overflow int
}

// Interactive reports whether tapping the cell opens the add-event form.
func (c Cell) Interactive() bool {
	return c.Kind == CellCurrent
}

type MonthGrid struct {
	Cursor    MonthCursor
	WeekStart time.Weekday
	Leading   int
	Cells     []Cell
}

// Weeks splits the cells into rows of seven.
func (g MonthGrid) Weeks() [][]Cell {
	weeks := make([][]Cell, 0, len(g.Cells)/7)
	for i := 0; i+7 <= len(g.Cells); i += 7 {
		weeks = append(weeks, g.Cells[i:i+7])
	}
	return weeks
}

// CurrentDays counts the cells belonging to the cursor month.
func (g MonthGrid) CurrentDays() int {
	n := 0
	for _, c := range g.Cells {
		if c.Kind == CellCurrent {
			n++
		}
	}
	return n
}

// Range returns the dates of the first and last cell.
func (g MonthGrid) Range() (Date, Date) {
	if len(g.Cells) == 0 {
		return Date{}, Date{}
	}
	return g.Cells[0].Date, g.Cells[len(g.Cells)-1].Date
}

type gridOptions struct {
	weekStart time.Weekday
}

type GridOption func(*gridOptions)

// WithWeekStart sets the weekday of the first grid column. Sunday by default.
func WithWeekStart(d time.Weekday) GridOption {
	return func(o *gridOptions) {
		o.weekStart = d
	}
}

// BuildMonthGrid lays out the month as complete weeks: leading days from the
// previous month, every day of the month annotated with its events, and
// trailing days from the next month.
func BuildMonthGrid(cursor MonthCursor, events []Event, opts ...GridOption) MonthGrid {
	o := gridOptions{weekStart: time.Sunday}
	for _, opt := range opts {
		opt(&o)
	}

	first := cursor.First()
	daysInMonth := DaysIn(cursor.Year, cursor.Month)
	prev := cursor.Prev()
	daysInPrev := DaysIn(prev.Year, prev.Month)
	next := cursor.Next()

	leading := (int(first.Weekday()) - int(o.weekStart) + 7) % 7
	total := (leading + daysInMonth + 6) / 7 * 7

	byDate := make(map[Date][]Event)
	for _, ev := range events {
		if ev.Date.Year == cursor.Year && ev.Date.Month == cursor.Month {
			byDate[ev.Date] = append(byDate[ev.Date], ev)
		}
	}

	cells := make([]Cell, 0, total)
	for i := leading - 1; i >= 0; i-- {
		day := daysInPrev - i
		cells = append(cells, Cell{
			Kind: CellPrevious,
			Day:  day,
			Date: Date{prev.Year, prev.Month, day},
		})
	}

	for day := 1; day <= daysInMonth; day++ {
		date := Date{cursor.Year, cursor.Month, day}
		cell := Cell{Kind: CellCurrent, Day: day, Date: date}
		if evs := byDate[date]; len(evs) > 0 {
			shown := evs
			if len(shown) > DisplayLimit {
				shown = shown[:DisplayLimit]
				cell.Overflow = len(evs) - DisplayLimit
			}
			cell.Events = append([]Event(nil), shown...)
		}
		cells = append(cells, cell)
	}

	for day := 1; len(cells) < total; day++ {
		cells = append(cells, Cell{
			Kind: CellNext,
			Day:  day,
			Date: Date{next.Year, next.Month, day},
		})
	}

	return MonthGrid{
		Cursor:    cursor,
		WeekStart: o.weekStart,
		Leading:   leading,
		Cells:     cells,
	}
}
