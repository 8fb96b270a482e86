package calsync

import (
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs a job on a cron schedule, skipping a run while the previous
// one is still going.
type Scheduler struct {
	cron *cron.Cron
	id   cron.EntryID
}

// NewScheduler parses spec, a standard five-field cron expression or a
// descriptor such as "@every 15m".
func NewScheduler(spec string, job func(), log zerolog.Logger) (*Scheduler, error) {
	logger := cronLogger{log.With().Str("component", "scheduler").Logger()}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	id, err := c.AddFunc(spec, job)
	if err != nil {
		return nil, errors.Wrapf(err, "parse sync schedule %q", spec)
	}
	return &Scheduler{cron: c, id: id}, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next reports when the job runs next. It is zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.id).Next
}

type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
