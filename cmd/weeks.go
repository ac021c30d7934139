package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/pilosa/diversity"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewWeeksCommand returns a command which prints the weeks an analysis of
// a date range fetches.
func NewWeeksCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "weeks FROM TO",
		Short: "weeks - list the Monday to Sunday weeks covering a date range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := time.Parse(diversity.DayLayout, args[0])
			if err != nil {
				return errors.Wrap(err, "parsing from")
			}
			to, err := time.Parse(diversity.DayLayout, args[1])
			if err != nil {
				return errors.Wrap(err, "parsing to")
			}
			for _, w := range diversity.Weeks(from, to) {
				fmt.Fprintln(stdout, w)
			}
			return nil
		},
	}
}

func init() {
	subcommandFns["weeks"] = NewWeeksCommand
}
