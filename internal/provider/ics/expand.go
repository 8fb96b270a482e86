package ics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	"github.com/edusis/campuscal/internal/calsync"
)

const maxOccurrences = 5000

// window is the absolute span records are expanded into, [from, to).
type window struct {
	from, to time.Time
}

// expand turns parsed VEVENTs into records. Overrides replace the
// occurrence whose start matches their RECURRENCE-ID.
func expand(events []vevent, w window) ([]calsync.Record, []string, error) {
	if w.to.Before(w.from) {
		return nil, nil, errors.New("expand: window ends before it starts")
	}

	overrides := make(map[string][]vevent)
	var bases []vevent
	for _, ev := range events {
		if ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	var out []calsync.Record
	var truncated []string
	for _, ev := range bases {
		if ev.RRule == "" {
			if inWindow(ev.Start, ev.AllDay, w) {
				out = append(out, toRecord(ev, ev.UID))
			}
			continue
		}

		starts, err := occurrences(ev, w)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "expand %s", ev.UID)
		}
		if len(starts) > maxOccurrences {
			starts = starts[:maxOccurrences]
			truncated = append(truncated, ev.UID)
		}
		for _, start := range starts {
			occ := ev
			occ.Start = start
			if o, ok := findOverride(overrides[ev.UID], start); ok {
				occ = o
			}
			out = append(out, toRecord(occ, ev.UID+"@"+start.UTC().Format(time.RFC3339)))
		}
	}
	return out, truncated, nil
}

func occurrences(ev vevent, w window) ([]time.Time, error) {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		return nil, err
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	from, to := w.from.In(ev.Start.Location()), w.to.In(ev.Start.Location())
	if ev.AllDay {
		// all-day starts are UTC midnights; compare on the calendar date
		from = time.Date(w.from.Year(), w.from.Month(), w.from.Day(), 0, 0, 0, 0, time.UTC)
		to = time.Date(w.to.Year(), w.to.Month(), w.to.Day(), 0, 0, 0, 0, time.UTC)
	}
	starts := set.Between(from, to, true)
	if len(starts) > 0 && !starts[len(starts)-1].Before(to) {
		starts = starts[:len(starts)-1]
	}
	return starts, nil
}

func findOverride(overrides []vevent, start time.Time) (vevent, bool) {
	for _, o := range overrides {
		if o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return vevent{}, false
}

func inWindow(start time.Time, allDay bool, w window) bool {
	if allDay {
		d := start.Format("2006-01-02")
		return d >= w.from.Format("2006-01-02") && d < w.to.Format("2006-01-02")
	}
	return !start.Before(w.from) && start.Before(w.to)
}

func toRecord(ev vevent, id string) calsync.Record {
	rec := calsync.Record{
		ID:          id,
		Summary:     ev.Summary,
		Description: ev.Description,
	}
	if ev.AllDay {
		rec.StartDate = ev.Start.Format("2006-01-02")
		return rec
	}
	start := ev.Start
	rec.StartTime = &start
	return rec
}
