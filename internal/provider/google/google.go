// Package google pulls events from a Google Calendar through the Calendar
// API, authorized with a stored OAuth token.
package google

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	campus "github.com/edusis/campuscal/internal/calendar"
	"github.com/edusis/campuscal/internal/calsync"
)

const pageSize = 250

type Config struct {
	CredentialsFile string
	TokenFile       string
	CalendarID      string
}

// Calendar is a calsync.Provider over one Google calendar.
type Calendar struct {
	cfg     Config
	loc     *time.Location
	log     zerolog.Logger
	svcOpts []option.ClientOption

	svc *calendar.Service
}

type Option func(*Calendar)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Calendar) {
		c.log = l
	}
}

func WithLocation(loc *time.Location) Option {
	return func(c *Calendar) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithClientOptions passes options to the Calendar API client. An option
// that supplies an HTTP client bypasses the stored OAuth token.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *Calendar) {
		c.svcOpts = append(c.svcOpts, opts...)
	}
}

func New(cfg Config, opts ...Option) *Calendar {
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	c := &Calendar{cfg: cfg, loc: time.Local, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calendar) Name() string {
	return "google"
}

// Authenticate builds the API client. The stored token is refreshed on
// demand by the oauth2 transport.
func (c *Calendar) Authenticate(ctx context.Context) error {
	if c.svc != nil {
		return nil
	}

	opts := c.svcOpts
	if len(opts) == 0 {
		client, err := c.oauthClient(ctx)
		if err != nil {
			return err
		}
		opts = []option.ClientOption{option.WithHTTPClient(client)}
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return errors.Wrap(err, "create calendar client")
	}
	c.svc = svc
	c.log.Debug().Str("calendar", c.cfg.CalendarID).Msg("google calendar client ready")
	return nil
}

func (c *Calendar) oauthClient(ctx context.Context) (*http.Client, error) {
	conf, err := OAuthConfig(c.cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := loadToken(c.cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	src := newSavingTokenSource(conf.TokenSource(ctx, tok), c.cfg.TokenFile, tok, c.log)
	return oauth2.NewClient(ctx, src), nil
}

// ListEvents returns one page of single (recurrence-expanded) events whose
// start falls inside rng. Cancelled events are left out.
func (c *Calendar) ListEvents(ctx context.Context, rng campus.DateRange, pageToken string) (calsync.Page, error) {
	if c.svc == nil {
		return calsync.Page{}, errors.New("google calendar: not authenticated")
	}

	call := c.svc.Events.List(c.cfg.CalendarID).
		Context(ctx).
		SingleEvents(true).
		OrderBy("startTime").
		ShowDeleted(false).
		MaxResults(pageSize).
		TimeMin(rng.From.In(c.loc).Format(time.RFC3339)).
		TimeMax(rng.To.AddDays(1).In(c.loc).Format(time.RFC3339))
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	res, err := call.Do()
	if err != nil {
		return calsync.Page{}, errors.Wrap(err, "list google events")
	}

	page := calsync.Page{NextPageToken: res.NextPageToken}
	for _, item := range res.Items {
		if item.Status == "cancelled" {
			continue
		}
		rec, err := toRecord(item)
		if err != nil {
			return calsync.Page{}, err
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

func toRecord(item *calendar.Event) (calsync.Record, error) {
	rec := calsync.Record{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
	}
	if item.Start == nil {
		return rec, nil
	}
	if item.Start.DateTime != "" {
		t, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return rec, calsync.MalformedError("google event %s start %q", item.Id, item.Start.DateTime)
		}
		rec.StartTime = &t
		return rec, nil
	}
	rec.StartDate = item.Start.Date
	return rec, nil
}
