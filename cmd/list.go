package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/edusis/campuscal/internal/calendar"
)

var (
	listMonth  string
	listOutput string
	listSync   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a month's events and exit",
	Long: `List every event in a month, ordered by date, and exit. The current
month is used unless --month is given. With --sync the configured external
calendars are pulled first.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listMonth, "month", "", "month to list as YYYY-MM")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "text", "output format: text or yaml")
	listCmd.Flags().BoolVar(&listSync, "sync", false, "sync external calendars before listing")
	rootCmd.AddCommand(listCmd)
}

// monthListing is the yaml shape of a listing.
type monthListing struct {
	Month  string           `yaml:"month"`
	Events []calendar.Event `yaml:"events"`
}

func runList(cmd *cobra.Command, args []string) error {
	if listOutput != "text" && listOutput != "yaml" {
		return errors.Errorf("unknown output format %q", listOutput)
	}

	log := cliLogger(cmd)
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	ctrl := a.controller()

	if listMonth != "" {
		first, err := parseMonth(listMonth)
		if err != nil {
			return err
		}
		ctrl.GoTo(first)
	}

	if listSync {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Sync.Timeout)
		defer cancel()
		if _, err := ctrl.Sync(ctx); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
	}

	cursor := ctrl.Cursor()
	events, err := monthEvents(a, ctrl, listSync)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if listOutput == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(monthListing{Month: fmt.Sprintf("%04d-%02d", cursor.Year, int(cursor.Month)), Events: events})
	}
	printEvents(out, cursor, events)
	return nil
}

// monthEvents returns the cursor month's events by date. Without a sync only
// local events exist, so they are read straight from the month's key range
// of the store file.
func monthEvents(a *app, ctrl *calendar.Controller, synced bool) ([]calendar.Event, error) {
	cursor := ctrl.Cursor()
	if a.repo != nil && !synced {
		events, err := a.repo.LoadRange(cursor.First(), cursor.Last())
		if err != nil {
			return nil, errors.Wrap(err, "load events")
		}
		return events, nil
	}

	var events []calendar.Event
	for _, ev := range ctrl.ListEvents() {
		if ev.Date.Year == cursor.Year && ev.Date.Month == cursor.Month {
			events = append(events, ev)
		}
	}
	return events, nil
}

func printEvents(out io.Writer, cursor calendar.MonthCursor, events []calendar.Event) {
	fmt.Fprintf(out, "Events for %s:\n", cursor)
	if len(events) == 0 {
		fmt.Fprintln(out, "No events found.")
		return
	}

	for _, ev := range events {
		marker := ""
		if ev.Source == calendar.SourceExternal {
			marker = " (synced)"
		}
		fmt.Fprintf(out, "  %s  %-8s  [%s] %s%s\n",
			ev.Date.In(time.UTC).Format(cfg.DateFormat), ev.Time, ev.Tag, ev.Title, marker)
		fmt.Fprintf(out, "    id: %s\n", ev.ID)
	}
}

func parseMonth(s string) (calendar.Date, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return calendar.Date{}, errors.Errorf("invalid month %q, want YYYY-MM", s)
	}
	return calendar.DateOf(t), nil
}
