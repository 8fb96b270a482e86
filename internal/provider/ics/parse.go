package ics

import (
	"bytes"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"
)

// vevent is the part of a VEVENT needed to produce records.
type vevent struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	AllDay      bool
	RRule       string
	ExDates     []time.Time
	// Recurrence is the RECURRENCE-ID of an overriding instance.
	Recurrence *time.Time
}

func parseCalendar(body []byte, loc *time.Location) ([]vevent, []error) {
	if len(body) == 0 {
		return nil, []error{errors.New("empty ICS body")}
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, []error{errors.Wrap(err, "parse calendar")}
	}

	var out []vevent
	var errs []error
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve, loc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, ev)
	}
	return out, errs
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (vevent, error) {
	var out vevent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("vevent without UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	dtstart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtstart == nil {
		return out, errors.Errorf("vevent %s has no DTSTART", out.UID)
	}
	out.AllDay = isDateValue(&dtstart.BaseProperty)
	start, err := propTime(strings.TrimSpace(dtstart.Value), dtstart.ICalParameters, out.AllDay, loc)
	if err != nil {
		return out, errors.Wrapf(err, "vevent %s DTSTART", out.UID)
	}
	out.Start = start

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			t, err := propTime(strings.TrimSpace(part), p.ICalParameters, out.AllDay, loc)
			if err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		t, err := propTime(p.Value, p.ICalParameters, out.AllDay, loc)
		if err != nil {
			return out, errors.Wrapf(err, "vevent %s RECURRENCE-ID", out.UID)
		}
		out.Recurrence = &t
	}
	return out, nil
}

func isDateValue(p *ical.BaseProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// propTime parses a DTSTART, EXDATE or RECURRENCE-ID value. All-day values
// are UTC midnights. Floating times are read in loc.
func propTime(v string, params map[string][]string, allDay bool, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if allDay || !strings.Contains(v, "T") {
		return time.ParseInLocation("20060102", v[:min(8, len(v))], time.UTC)
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if tz, ok := params["TZID"]; ok && len(tz) == 1 {
		if l, err := time.LoadLocation(tz[0]); err == nil {
			loc = l
		}
	}
	return time.ParseInLocation("20060102T150405", v, loc)
}
