package commands

import (
	"fmt"
	"time"

	"github.com/koizuka/abcreport/report"
	"github.com/spf13/cobra"
)

// now is replaced in tests.
var now = time.Now

func newValidateCommand(root *rootOptions) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "validate --start DATE --end DATE",
		Short: "Checks a date range and the configuration without opening a browser.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).fillDates(&start, &end); err != nil {
				return err
			}
			if err := root.cfg.Validate(); err != nil {
				return err
			}
			r, err := report.ParseDateRange(start, end, now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v (%d days)\n", r, len(r.Days()))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day")
	cmd.Flags().StringVar(&end, "end", "", "last day, inclusive")
	return cmd
}
