package calendar

import (
	"fmt"
	"strings"
	"time"
)

// AllDay is the display time of events without a start time.
const AllDay = "All Day"

type Tag string

const (
	TagAssignment Tag = "Assignment"
	TagQuiz       Tag = "Quiz"
	TagExam       Tag = "Exam"
	TagDeadline   Tag = "Deadline"
	TagMeeting    Tag = "Meeting"

	// TagOther is never stored; it is the styling bucket for unknown tags.
	TagOther Tag = "Other"
)

// Tags lists the selectable tags in form order.
var Tags = []Tag{TagAssignment, TagQuiz, TagExam, TagDeadline, TagMeeting}

// ParseTag matches s against the closed tag set, ignoring case.
func ParseTag(s string) (Tag, bool) {
	for _, t := range Tags {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return TagOther, false
}

// Valid reports whether t is exactly one of Tags.
func (t Tag) Valid() bool {
	for _, known := range Tags {
		if t == known {
			return true
		}
	}
	return false
}

type Source int

const (
	SourceLocal Source = iota
	SourceExternal
)

func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceExternal:
		return "external"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(b []byte) error {
	switch string(b) {
	case "local", "":
		*s = SourceLocal
	case "external":
		*s = SourceExternal
	default:
		return fmt.Errorf("unknown event source %q", b)
	}
	return nil
}

type Event struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Date   Date   `json:"date" yaml:"date"`
	Time   string `json:"time" yaml:"time"`
	Tag    Tag    `json:"tag" yaml:"tag"`
	Source Source `json:"source" yaml:"source"`
}

func (e Event) IsAllDay() bool {
	return e.Time == "" || e.Time == AllDay
}

func (e Event) String() string {
	return fmt.Sprintf("<%s %s %s [%s] %q>", e.ID, e.Date, e.Time, e.Tag, e.Title)
}

// keyword precedence: first match wins.
var tagKeywords = []struct {
	tag     Tag
	keyword string
}{
	{TagQuiz, "quiz"},
	{TagExam, "exam"},
	{TagAssignment, "assignment"},
	{TagDeadline, "deadline"},
}

// ClassifyTag guesses a tag from free text by case-insensitive substring
// match, so "Quizzes" is a Quiz and "Midterm Exam2" an Exam. Text without a
// known keyword is a Meeting.
func ClassifyTag(description string) Tag {
	lower := strings.ToLower(description)
	for _, kw := range tagKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.tag
		}
	}
	return TagMeeting
}

type TagColors struct {
	Background string
	Foreground string
}

var tagPalette = map[Tag]TagColors{
	TagQuiz:       {"#eef7ff", "#1e90ff"},
	TagDeadline:   {"#fff4ec", "#f97316"},
	TagExam:       {"#f2fff7", "#10b981"},
	TagAssignment: {"#fef3f2", "#ef4444"},
	TagMeeting:    {"#f5f3ff", "#8b5cf6"},
	TagOther:      {"#f3f4f6", "#374151"},
}

// TagStyle returns the colour pair used for a tag badge.
func TagStyle(t Tag) TagColors {
	if c, ok := tagPalette[t]; ok {
		return c
	}
	return tagPalette[TagOther]
}

// Date is a civil calendar date without time or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// NewDate builds a Date, rejecting values that time.Date would normalise.
func NewDate(year int, month time.Month, day int) (Date, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, int(month), day)
	}
	return Date{year, month, day}, nil
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	return Date{t.Year(), t.Month(), t.Day()}
}

func Today() Date {
	return DateOf(time.Now())
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.In(time.UTC).AddDate(0, 0, n))
}

func (d Date) Weekday() time.Weekday {
	return d.In(time.UTC).Weekday()
}

func (d Date) Before(o Date) bool {
	return d.String() < o.String()
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
