package cmd

import (
	"fmt"
	"io"

	"github.com/pilosa/diversity"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewDecodeCommand returns a command which decodes mutation codes and prints
// their parts.
func NewDecodeCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var unit string
	decodeCommand := &cobra.Command{
		Use:   "decode CODE...",
		Short: "decode - show how mutation codes are read",
		Long: `Decodes nucleotide (A23403G, G21765-) and amino acid (S:D614G, ORF8:Q27*)
mutation codes. The sequence type is inferred from each code unless --unit
is given, in which case codes of the other type are rejected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := diversity.Unspecified
			if unit != "" {
				var err error
				st, err = diversity.ParseSequenceType(unit)
				if err != nil {
					return err
				}
			}
			for _, code := range args {
				m, err := diversity.Decode(code, st)
				if err != nil {
					return errors.Wrapf(err, "decoding '%s'", code)
				}
				gene := m.Gene
				if gene == "" {
					gene = "-"
				}
				fmt.Fprintf(stdout, "%s\t%s\tgene=%s\tposition=%d\toriginal=%c\tmutated=%c\tdeletion=%t\tkey=%s\n",
					code, m.Unit, gene, m.Position, m.Original, m.Mutated, m.IsDeletion(), m.Key())
			}
			return nil
		},
	}
	decodeCommand.Flags().StringVar(&unit, "unit", "", "Sequence type the codes must have: nuc or aa.")
	return decodeCommand
}

func init() {
	subcommandFns["decode"] = NewDecodeCommand
}
