package cmd

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/edusis/campuscal/internal/calendar"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an event by id",
	Long:    `Delete an event. The id is shown by "campuscal list". You are asked to confirm unless --yes is given.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, cliLogger(cmd))
	if err != nil {
		return err
	}
	ctrl := a.controller()

	id := args[0]
	if _, ok := a.store.Get(id); !ok {
		return errors.Errorf("no event with id %q", id)
	}

	confirm := calendar.Confirmed
	if !deleteYes {
		confirm = promptConfirm
	}
	ok, err := ctrl.DeleteEvent(id, confirm)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Kept.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
	return nil
}

func promptConfirm(ev calendar.Event) bool {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Delete %q on %s", ev.Title, ev.Date),
		IsConfirm: true,
	}
	// a "no" answer comes back as ErrAbort
	_, err := prompt.Run()
	return err == nil
}
