package cmd

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edusis/campuscal/internal/calsync"
	"github.com/edusis/campuscal/internal/config"
	"github.com/edusis/campuscal/internal/logging"
	"github.com/edusis/campuscal/internal/ui"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "campuscal",
	Short: "A terminal academic calendar",
	Long: `campuscal is a terminal calendar for coursework: quizzes, exams,
assignments, deadlines and meetings. Events can be added locally or pulled
from Google Calendar, iCalendar feeds and JSON feed files.`,
	PersistentPreRunE: initConfig,
	RunE:              runTUI,
	SilenceUsage:      true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/campuscal/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

func initConfig(*cobra.Command, []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return nil
}

// cliLogger logs to the command's stderr.
func cliLogger(cmd *cobra.Command) zerolog.Logger {
	return logging.Console(cmd.ErrOrStderr(), cfg.Log.Level)
}

func runTUI(cmd *cobra.Command, args []string) error {
	log, closer, err := logging.File(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer closer.Close()

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	ctrl := a.controller()

	triggers := make(chan string, 1)
	notify := func(reason string) {
		select {
		case triggers <- reason:
		default:
			// a sync is already queued
		}
	}

	if a.adapter != nil {
		if paths := a.providers.WatchPaths(); len(paths) > 0 {
			w, err := calsync.NewWatcher(func(path string) {
				notify("watch:" + filepath.Base(path))
			}, calsync.WithWatcherLogger(logging.Component(log, "watcher")))
			if err != nil {
				log.Warn().Err(err).Msg("file watching disabled")
			} else {
				defer w.Close()
				for _, p := range paths {
					if err := w.Add(p); err != nil {
						log.Warn().Err(err).Str("path", p).Msg("cannot watch feed")
					}
				}
			}
		}

		if cfg.Sync.Cron != "" {
			s, err := calsync.NewScheduler(cfg.Sync.Cron, func() { notify("cron") }, logging.Component(log, "scheduler"))
			if err != nil {
				return errors.Wrap(err, "sync.cron")
			}
			s.Start()
			defer s.Stop()
			log.Info().Time("next", s.Next()).Msg("scheduled sync")
		}
	}

	model := ui.NewModel(ctrl, cfg,
		ui.WithLogger(logging.Component(log, "ui")),
		ui.WithTriggers(triggers),
		ui.WithParser(a.parser()),
	)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
