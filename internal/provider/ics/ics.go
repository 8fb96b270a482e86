// Package ics pulls events from iCalendar feeds, either a subscription URL
// or a local .ics file. Recurring events are expanded into one record per
// occurrence.
package ics

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/edusis/campuscal/internal/calendar"
	"github.com/edusis/campuscal/internal/calsync"
)

const defaultTimeout = 20 * time.Second

// Source is a calsync.Provider over one iCalendar feed.
type Source struct {
	id  string
	src string
	loc *time.Location
	log zerolog.Logger
	f   *fetcher
}

type Option func(*Source)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Source) {
		s.log = l
	}
}

func WithLocation(loc *time.Location) Option {
	return func(s *Source) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) {
		s.f.client = c
	}
}

// New creates a source. id names it in logs; when empty the URL host or
// file name is used.
func New(id, src string, opts ...Option) *Source {
	s := &Source{
		id:  id,
		src: src,
		loc: time.Local,
		log: zerolog.Nop(),
	}
	s.f = newFetcher(&http.Client{Timeout: defaultTimeout}, s.log)
	for _, opt := range opts {
		opt(s)
	}
	s.f.log = s.log
	if s.id == "" {
		s.id = defaultID(src)
	}
	return s
}

func defaultID(src string) string {
	if isRemote(src) {
		if u, err := url.Parse(src); err == nil && u.Host != "" {
			return u.Host
		}
		return "remote"
	}
	return filepath.Base(localPath(src))
}

func (s *Source) Name() string {
	return "ics:" + s.id
}

// Authenticate checks that the source is reachable in principle: a
// well-formed URL, or a file that exists.
func (s *Source) Authenticate(context.Context) error {
	if isRemote(s.src) {
		u, err := url.Parse(s.src)
		if err != nil || u.Host == "" {
			return errors.Errorf("invalid feed url %s", redactURL(s.src))
		}
		return nil
	}
	if _, err := os.Stat(localPath(s.src)); err != nil {
		return errors.Wrap(err, "stat feed")
	}
	return nil
}

// ListEvents fetches and expands the whole feed as one page. A feed that
// cannot be fetched or parsed fails the listing; individual VEVENTs that
// cannot be read are skipped and logged.
func (s *Source) ListEvents(ctx context.Context, rng calendar.DateRange, _ string) (calsync.Page, error) {
	body, err := s.f.fetch(ctx, s.src)
	if err != nil {
		return calsync.Page{}, err
	}

	events, errs := parseCalendar(body, s.loc)
	if len(events) == 0 && len(errs) > 0 {
		return calsync.Page{}, calsync.MalformedError("%s: %v", s.Name(), errs[0])
	}
	for _, err := range errs {
		s.log.Warn().Err(err).Str("source", s.id).Msg("skipping vevent")
	}

	w := window{
		from: rng.From.In(s.loc),
		to:   rng.To.AddDays(1).In(s.loc),
	}
	records, truncated, err := expand(events, w)
	if err != nil {
		return calsync.Page{}, calsync.MalformedError("%s: %v", s.Name(), err)
	}
	for _, uid := range truncated {
		s.log.Warn().Str("source", s.id).Str("uid", uid).Int("cap", maxOccurrences).Msg("recurrence truncated")
	}
	return calsync.Page{Records: records}, nil
}

// WatchPaths returns the feed file for local sources.
func (s *Source) WatchPaths() []string {
	if isRemote(s.src) {
		return nil
	}
	return []string{localPath(s.src)}
}
