package cmd

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/edusis/campuscal/internal/calendar"
)

var (
	addDate  string
	addTitle string
	addTime  string
	addTag   string
)

var addCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Add a local event",
	Long: `Add a local event. Either pass free text such as
"tomorrow at 2pm Networks quiz", or give --title and --date explicitly.
Flags override what is read from the text.`,
	Example: `  campuscal add next friday 9am SE midterm --tag exam
  campuscal add --date 2024-08-18 --title "DB project" --tag deadline`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addDate, "date", "", "event date, e.g. 2024-08-18, tomorrow, next monday")
	addCmd.Flags().StringVar(&addTitle, "title", "", "event title")
	addCmd.Flags().StringVar(&addTime, "time", "", "event time, e.g. 2pm or 14:00-16:00")
	addCmd.Flags().StringVar(&addTag, "tag", "", "one of Assignment, Quiz, Exam, Deadline, Meeting")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, cliLogger(cmd))
	if err != nil {
		return err
	}
	p := a.parser()

	var draft calendar.Draft
	if len(args) > 0 {
		res, err := p.Parse(strings.Join(args, " "))
		if err != nil {
			return err
		}
		draft = calendar.Draft{Title: res.Title, Date: res.Date, Time: res.Time}
	} else {
		draft.Date = calendar.Today()
	}

	if addDate != "" {
		d, err := p.ParseDate(addDate)
		if err != nil {
			return errors.Wrap(err, "--date")
		}
		draft.Date = d
	}
	if addTitle != "" {
		draft.Title = addTitle
	}
	if addTime != "" {
		res, err := p.Parse(addTime)
		if err != nil || res.Time == "" || res.Title != "" {
			return errors.Errorf("--time: cannot read %q as a time", addTime)
		}
		draft.Time = res.Time
	}
	if addTag != "" {
		tag, ok := calendar.ParseTag(addTag)
		if !ok {
			// let validation name the field
			tag = calendar.Tag(addTag)
		}
		draft.Tag = tag
	}

	ev, err := a.store.Add(draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s on %s at %s [%s]\n  id: %s\n",
		ev.Title, ev.Date, ev.Time, ev.Tag, ev.ID)
	return nil
}
