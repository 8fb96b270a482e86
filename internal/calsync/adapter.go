package calsync

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/edusis/campuscal/internal/calendar"
)

// DefaultTimeFormat renders timed event starts, e.g. "9:05 AM".
const DefaultTimeFormat = "3:04 PM"

// Adapter pulls events from a Provider and maps them into calendar events.
// It satisfies calendar.Syncer.
type Adapter struct {
	provider   Provider
	loc        *time.Location
	timeFormat string
	log        zerolog.Logger
	inflight   *semaphore.Weighted
}

type Option func(*Adapter)

// WithLocation sets the zone timed events are converted to before their date
// and time are taken.
func WithLocation(loc *time.Location) Option {
	return func(a *Adapter) {
		if loc != nil {
			a.loc = loc
		}
	}
}

func WithTimeFormat(layout string) Option {
	return func(a *Adapter) {
		if layout != "" {
			a.timeFormat = layout
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Adapter) {
		a.log = l
	}
}

func NewAdapter(p Provider, opts ...Option) *Adapter {
	a := &Adapter{
		provider:   p,
		loc:        time.Local,
		timeFormat: DefaultTimeFormat,
		log:        zerolog.Nop(),
		inflight:   semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With().Str("component", "calsync").Str("provider", p.Name()).Logger()
	return a
}

func (a *Adapter) Provider() Provider { return a.provider }

// Initialize authenticates against the provider. The returned error matches
// both ErrAuth and ErrSyncFailed.
func (a *Adapter) Initialize(ctx context.Context) error {
	if err := a.provider.Authenticate(ctx); err != nil {
		a.log.Warn().Err(err).Msg("authentication failed")
		return &SyncError{Provider: a.provider.Name(), Stage: StageAuth, Err: fmt.Errorf("%w: %w", ErrAuth, err)}
	}
	a.log.Debug().Msg("authenticated")
	return nil
}

// FetchEvents lists rng page by page, mapping each record as it is reached.
// Iteration stops after the first error, which is a *SyncError.
func (a *Adapter) FetchEvents(ctx context.Context, rng calendar.DateRange) iter.Seq2[calendar.Event, error] {
	return func(yield func(calendar.Event, error) bool) {
		token := ""
		for page := 1; ; page++ {
			if err := ctx.Err(); err != nil {
				yield(calendar.Event{}, a.fail(StageFetch, err))
				return
			}
			p, err := a.provider.ListEvents(ctx, rng, token)
			if err != nil {
				yield(calendar.Event{}, a.fail(StageFetch, err))
				return
			}
			a.log.Debug().Int("page", page).Int("records", len(p.Records)).Msg("fetched page")

			for _, rec := range p.Records {
				ev, err := a.MapRecord(rec)
				if err != nil {
					yield(calendar.Event{}, a.fail(StageMap, err))
					return
				}
				if !yield(ev, nil) {
					return
				}
			}
			if p.NextPageToken == "" {
				return
			}
			if p.NextPageToken == token {
				yield(calendar.Event{}, a.fail(StageFetch, MalformedError("page token %q repeats", token)))
				return
			}
			token = p.NextPageToken
		}
	}
}

func (a *Adapter) fail(stage Stage, err error) error {
	return &SyncError{Provider: a.provider.Name(), Stage: stage, Err: err}
}

// MapRecord converts a provider record into an external event.
func (a *Adapter) MapRecord(rec Record) (calendar.Event, error) {
	if rec.ID == "" {
		return calendar.Event{}, MalformedError("record without id")
	}
	title := strings.TrimSpace(rec.Summary)
	if title == "" {
		return calendar.Event{}, MalformedError("record %s has no summary", rec.ID)
	}

	ev := calendar.Event{
		ID:     rec.ID,
		Title:  title,
		Tag:    calendar.ClassifyTag(rec.Description),
		Source: calendar.SourceExternal,
	}

	switch {
	case rec.StartTime != nil:
		start := rec.StartTime.In(a.loc)
		ev.Date = calendar.DateOf(start)
		ev.Time = start.Format(a.timeFormat)
	case rec.StartDate != "":
		d, err := calendar.ParseDate(rec.StartDate)
		if err != nil {
			return calendar.Event{}, MalformedError("record %s: %v", rec.ID, err)
		}
		ev.Date = d
		ev.Time = calendar.AllDay
	default:
		return calendar.Event{}, MalformedError("record %s has no start", rec.ID)
	}
	return ev, nil
}

// SyncNow re-authenticates, fetches every event in rng and hands them to dst
// in one call. On any failure dst is not touched. Only one sync runs at a
// time; a concurrent call fails with ErrSyncInProgress.
func (a *Adapter) SyncNow(ctx context.Context, rng calendar.DateRange, dst calendar.ExternalReplacer) (int, error) {
	if !a.inflight.TryAcquire(1) {
		return 0, ErrSyncInProgress
	}
	defer a.inflight.Release(1)

	start := time.Now()
	if err := a.Initialize(ctx); err != nil {
		return 0, err
	}

	var events []calendar.Event
	for ev, err := range a.FetchEvents(ctx, rng) {
		if err != nil {
			a.log.Error().Err(err).Msg("sync failed")
			return 0, err
		}
		events = append(events, ev)
	}

	n := dst.ReplaceExternal(events)
	a.log.Info().
		Str("from", rng.From.String()).
		Str("to", rng.To.String()).
		Int("events", n).
		Dur("took", time.Since(start)).
		Msg("sync completed")
	return n, nil
}
