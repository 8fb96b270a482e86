package calsync

import (
	"context"
	"time"

	"github.com/edusis/campuscal/internal/calendar"
)

// Record is an event as an external provider reports it. Exactly one of
// StartDate and StartTime is set: StartDate ("YYYY-MM-DD") for all-day
// events, StartTime for timed ones.
type Record struct {
	ID          string     `json:"id"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	StartDate   string     `json:"start_date,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
}

// Page is one batch of records. An empty NextPageToken ends the listing.
type Page struct {
	Records       []Record
	NextPageToken string
}

// Provider is an external calendar the adapter pulls events from.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string
	// Authenticate establishes or refreshes the provider session.
	Authenticate(ctx context.Context) error
	// ListEvents returns the page of records starting at pageToken for
	// events whose start falls inside rng.
	ListEvents(ctx context.Context, rng calendar.DateRange, pageToken string) (Page, error)
}

// Watchable is implemented by providers backed by local files.
type Watchable interface {
	WatchPaths() []string
}
