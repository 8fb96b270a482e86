package cmd

import (
	"github.com/rs/zerolog"

	"github.com/edusis/campuscal/internal/calendar"
	"github.com/edusis/campuscal/internal/calsync"
	"github.com/edusis/campuscal/internal/config"
	"github.com/edusis/campuscal/internal/logging"
	"github.com/edusis/campuscal/internal/parser"
	"github.com/edusis/campuscal/internal/provider/google"
	"github.com/edusis/campuscal/internal/provider/ics"
	"github.com/edusis/campuscal/internal/provider/jsonfeed"
	"github.com/edusis/campuscal/internal/storage/boltdb"
)

// app is what every command needs: the event store and, when any external
// calendar is configured, the sync adapter in front of them.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	store     *calendar.Store
	repo      *boltdb.Repo
	providers *calsync.CompositeProvider
	adapter   *calsync.Adapter
}

func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	var opts []calendar.StoreOption
	if cfg.StorePath != "" {
		repo, err := boltdb.New(boltdb.Config{Path: cfg.StorePath, Logger: log})
		if err != nil {
			return nil, err
		}
		a.repo = repo
		opts = append(opts, calendar.WithPersister(repo))
	}
	store, err := calendar.NewStore(opts...)
	if err != nil {
		return nil, err
	}
	a.store = store

	a.providers = buildProviders(cfg, log)
	if a.providers.Len() > 0 {
		a.adapter = calsync.NewAdapter(a.providers,
			calsync.WithLocation(cfg.Location()),
			calsync.WithTimeFormat(cfg.TimeFormat),
			calsync.WithLogger(logging.Component(log, "sync")),
		)
	}
	return a, nil
}

func buildProviders(cfg *config.Config, log zerolog.Logger) *calsync.CompositeProvider {
	loc := cfg.Location()
	providers := calsync.NewCompositeProvider()

	if cfg.Google.Enabled() {
		providers.Add(google.New(google.Config{
			CredentialsFile: cfg.Google.CredentialsFile,
			TokenFile:       cfg.Google.TokenFile,
			CalendarID:      cfg.Google.CalendarID,
		}, google.WithLocation(loc), google.WithLogger(logging.Component(log, "google"))))
	}
	for _, src := range cfg.ICS {
		providers.Add(ics.New(src.ID, src.URL,
			ics.WithLocation(loc),
			ics.WithLogger(logging.Component(log, "ics")),
		))
	}
	for _, path := range cfg.JSONFeeds {
		providers.Add(jsonfeed.New(path, loc))
	}
	return providers
}

func (a *app) controller(opts ...calendar.ControllerOption) *calendar.Controller {
	base := []calendar.ControllerOption{
		calendar.WithControllerWeekStart(a.cfg.WeekStartDay()),
		calendar.WithSyncWindow(a.cfg.Sync.PastMonths, a.cfg.Sync.FutureMonths),
	}
	if a.adapter != nil {
		base = append(base, calendar.WithSyncer(a.adapter))
	}
	return calendar.NewController(a.store, append(base, opts...)...)
}

func (a *app) parser() *parser.Parser {
	return parser.New(parser.WithTimeFormat(a.cfg.TimeFormat))
}
