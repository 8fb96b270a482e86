// Package parser reads the loose date and time phrases accepted by quick-add
// and go-to-date, such as "tomorrow 2pm Networks Quiz" or "aug 27".
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/edusis/campuscal/internal/calendar"
)

var ErrEmpty = errors.New("empty input")

// Result is a parsed quick-add line.
type Result struct {
	Date    calendar.Date
	HasDate bool
	// Time is the formatted start, or a "start - end" span. Empty when the
	// input names no time.
	Time  string
	Title string
}

type Parser struct {
	now        func() time.Time
	timeFormat string
}

type Option func(*Parser)

func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

func WithTimeFormat(layout string) Option {
	return func(p *Parser) {
		if layout != "" {
			p.timeFormat = layout
		}
	}
}

func New(opts ...Option) *Parser {
	p := &Parser{now: time.Now, timeFormat: "3:04 PM"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads an optional date, then an optional time, and keeps the rest
// as the title. A missing date means today.
func (p *Parser) Parse(input string) (Result, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Result{}, ErrEmpty
	}

	var res Result
	rest := input
	if d, text, ok := p.date(rest); ok {
		res.Date, res.HasDate = d, true
		rest = text
	} else {
		res.Date = p.today()
	}

	if t, text, ok := p.clock(rest); ok {
		res.Time = t
		rest = text
	}
	res.Title = strings.TrimSpace(rest)
	return res, nil
}

// ParseDate reads input as a date phrase only. Trailing text is an error.
func (p *Parser) ParseDate(input string) (calendar.Date, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return calendar.Date{}, ErrEmpty
	}
	if d, err := calendar.ParseDate(input); err == nil {
		return d, nil
	}
	d, rest, ok := p.date(input)
	if !ok || rest != "" {
		return calendar.Date{}, errors.Errorf("cannot read %q as a date", input)
	}
	return d, nil
}

var (
	weekdayRe   = regexp.MustCompile(`^(next|this)\s+(mon|monday|tue|tuesday|wed|wednesday|thu|thursday|fri|friday|sat|saturday|sun|sunday)\b`)
	inRe        = regexp.MustCompile(`^in\s+(\d+)\s+(day|days|week|weeks|month|months)\b`)
	fromNowRe   = regexp.MustCompile(`^(\d+)\s+(day|days|week|weeks|month|months)\s+from\s+(now|today)\b`)
	isoRe       = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})\b`)
	numericRe   = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})(?:[/-](\d{4}))?\b`)
	monthNameRe = regexp.MustCompile(`^(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december)\s+(\d{1,2})(?:,?\s+(\d{4}))?\b`)
	rangeRe     = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*-\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	timeRe      = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
)

func (p *Parser) today() calendar.Date {
	return calendar.DateOf(p.now())
}

func (p *Parser) date(input string) (calendar.Date, string, bool) {
	lower := strings.ToLower(input)
	today := p.today()
	rest := func(n int) string { return strings.TrimSpace(input[n:]) }

	for _, w := range []struct {
		word   string
		offset int
	}{{"today", 0}, {"tomorrow", 1}, {"tmrw", 1}, {"yesterday", -1}} {
		if hasWord(lower, w.word) {
			return today.AddDays(w.offset), rest(len(w.word)), true
		}
	}

	if m := weekdayRe.FindStringSubmatch(lower); m != nil {
		return nextWeekday(today, weekdays[m[2][:3]], m[1] == "next"), rest(len(m[0])), true
	}
	if m := inRe.FindStringSubmatch(lower); m != nil {
		return shift(today, m[1], m[2]), rest(len(m[0])), true
	}
	if m := fromNowRe.FindStringSubmatch(lower); m != nil {
		return shift(today, m[1], m[2]), rest(len(m[0])), true
	}

	if m := isoRe.FindStringSubmatch(input); m != nil {
		if d, err := calendar.ParseDate(m[0]); err == nil {
			return d, rest(len(m[0])), true
		}
		return calendar.Date{}, input, false
	}
	if m := numericRe.FindStringSubmatch(input); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := today.Year
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		if d, ok := validDate(year, time.Month(month), day); ok {
			return d, rest(len(m[0])), true
		}
		return calendar.Date{}, input, false
	}
	if m := monthNameRe.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[2])
		year := today.Year
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		if d, ok := validDate(year, months[m[1][:3]], day); ok {
			return d, rest(len(m[0])), true
		}
	}
	return calendar.Date{}, input, false
}

func hasWord(lower, word string) bool {
	if !strings.HasPrefix(lower, word) {
		return false
	}
	return len(lower) == len(word) || lower[len(word)] == ' '
}

func validDate(year int, month time.Month, day int) (calendar.Date, bool) {
	if month < time.January || month > time.December || day < 1 || day > calendar.DaysIn(year, month) {
		return calendar.Date{}, false
	}
	return calendar.Date{Year: year, Month: month, Day: day}, true
}

func shift(d calendar.Date, count, unit string) calendar.Date {
	n, _ := strconv.Atoi(count)
	switch {
	case strings.HasPrefix(unit, "day"):
		return d.AddDays(n)
	case strings.HasPrefix(unit, "week"):
		return d.AddDays(7 * n)
	default:
		t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
		return calendar.DateOf(t)
	}
}

// nextWeekday finds the next target after d. "next" always skips at least
// into the following week.
func nextWeekday(d calendar.Date, target time.Weekday, skipThisWeek bool) calendar.Date {
	days := int(target - d.Weekday())
	if days <= 0 || skipThisWeek {
		days += 7
	}
	return d.AddDays(days)
}

func (p *Parser) clock(input string) (string, string, bool) {
	lower := strings.ToLower(input)
	if strings.HasPrefix(lower, "at ") {
		lower, input = lower[3:], input[3:]
	}

	if m := rangeRe.FindStringSubmatch(lower); m != nil {
		start, ok1 := hourMinute(m[1], m[2], m[3])
		end, ok2 := hourMinute(m[4], m[5], m[6])
		if ok1 && ok2 {
			span := p.format(start) + " - " + p.format(end)
			return span, strings.TrimSpace(input[len(m[0]):]), true
		}
	}

	// a bare number is only a time with a meridiem or minutes
	if m := timeRe.FindStringSubmatch(lower); m != nil && (m[2] != "" || m[3] != "") {
		if t, ok := hourMinute(m[1], m[2], m[3]); ok {
			return p.format(t), strings.TrimSpace(input[len(m[0]):]), true
		}
	}

	for _, n := range namedTimes {
		if hasWord(lower, n.name) {
			return p.format(n.minutes), strings.TrimSpace(input[len(n.name):]), true
		}
	}
	return "", input, false
}

// hourMinute returns minutes after midnight.
func hourMinute(h, m, meridiem string) (int, bool) {
	hour, _ := strconv.Atoi(h)
	minute := 0
	if m != "" {
		minute, _ = strconv.Atoi(m)
	}
	if meridiem != "" && (hour < 1 || hour > 12) {
		return 0, false
	}
	switch meridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

func (p *Parser) format(minutes int) string {
	return time.Date(2000, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format(p.timeFormat)
}

var namedTimes = []struct {
	name    string
	minutes int
}{
	{"noon", 12 * 60},
	{"midnight", 0},
	{"morning", 9 * 60},
	{"afternoon", 14 * 60},
	{"evening", 18 * 60},
	{"tonight", 21 * 60},
	{"night", 21 * 60},
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}
