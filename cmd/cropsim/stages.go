package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/talgya/phenosim/internal/bbch"
	"github.com/talgya/phenosim/internal/crop"
)

var stagesFlags struct {
	n      int
	before bool
}

var stagesCmd = &cobra.Command{
	Use:   "stages <crop> [code]",
	Short: "Print a crop's BBCH catalog, or the stages around a code",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable()
		if err != nil {
			return err
		}
		spec, err := table.Lookup(args[0])
		if err != nil {
			return err
		}
		cat := bbch.CatalogFor(spec)

		if len(args) == 1 {
			printStages(cmd.OutOrStdout(), cat.Entries())
			return nil
		}
		dir := bbch.After
		if stagesFlags.before {
			dir = bbch.Before
		}
		printStages(cmd.OutOrStdout(), cat.Neighbors(args[1], stagesFlags.n, dir))
		return nil
	},
}

var cropsCmd = &cobra.Command{
	Use:   "crops",
	Short: "List the built-in crops",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CROP\tBASE °C\tTSUM\tSEASON DAYS\tREADY AT\tSTAGES")
		for _, name := range table.Names() {
			spec, err := table.Lookup(name)
			if err != nil {
				return err
			}
			p := spec.Profile
			fmt.Fprintf(tw, "%s\t%.0f\t%.0f\t%d\t%s\t%d\n",
				spec.Name, p.BaseTemp, p.TSumTotal(), p.SeasonDays, spec.ReadyCode, len(spec.Stages))
		}
		return tw.Flush()
	},
}

func init() {
	stagesCmd.Flags().IntVarP(&stagesFlags.n, "n", "n", 3, "number of neighbouring stages")
	stagesCmd.Flags().BoolVar(&stagesFlags.before, "before", false, "list the stages before the code instead of after")
}

func printStages(w io.Writer, entries []crop.StageEntry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCATEGORY\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Code, e.Category, e.Description)
	}
	tw.Flush()
}
