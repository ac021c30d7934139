package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/pilosa/diversity/analyze"
	"github.com/spf13/cobra"
)

// AnalyzeMain is wrapped by NewAnalyzeCommand and only exported for testing
// purposes.
var AnalyzeMain *analyze.Main

// NewAnalyzeCommand returns a new cobra command wrapping AnalyzeMain.
func NewAnalyzeCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	AnalyzeMain = analyze.NewMain()
	AnalyzeMain.Stdout = stdout
	AnalyzeMain.Stderr = stderr
	analyzeCommand := &cobra.Command{
		Use:   "analyze",
		Short: "analyze - entropy profile and weekly mean entropy of a selection",
		Long: `Fetches the mutation proportions of the selection and of each of its
weeks, and writes the position entropy profile, the focused gene's range
within it, the mean entropy and the weekly mean entropy series of the
requested genes as one JSON document (or to Kafka).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return AnalyzeMain.Run()
		},
	}
	flags := analyzeCommand.Flags()
	err := commandeer.Flags(flags, AnalyzeMain)
	if err != nil {
		panic(err)
	}
	return analyzeCommand
}

func init() {
	subcommandFns["analyze"] = NewAnalyzeCommand
}
