package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dalemusser/dormhub/internal/app/features/workerimport/importutil"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Worker import tools",
	}

	var (
		aliasFile string
		minAge    int
		maxAge    int
		maxShow   int
	)
	checkCmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Check a worker spreadsheet without touching a database",
		Long: `Reads an .xlsx, .xls or .csv file, matches its header row to the
worker fields and applies the row rules that need no farm data
(required values, CIN format, gender, dates, ages, duplicate CINs).
Room capacity and stock are checked only by the server preview.

Exits with status 1 when a column is missing or a row is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			aliases, err := importutil.LoadAliases(aliasFile)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			records, err := importutil.ReadRows(f, filepath.Base(args[0]))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			m, res := importutil.CheckFile(records, aliases, importutil.Options{MinAge: minAge, MaxAge: maxAge})
			if err := importutil.WriteReport(cmd.OutOrStdout(), m, res, maxShow); err != nil {
				return err
			}
			if !m.Complete() || res.Summary.Invalid > 0 {
				return errFindings
			}
			return nil
		},
	}
	checkCmd.Flags().StringVar(&aliasFile, "aliases", "", "YAML file of extra column header spellings")
	checkCmd.Flags().IntVar(&minAge, "min-age", importutil.DefaultMinAge, "Youngest accepted age")
	checkCmd.Flags().IntVar(&maxAge, "max-age", importutil.DefaultMaxAge, "Oldest accepted age")
	checkCmd.Flags().IntVar(&maxShow, "max-issues", 50, "Issues to list (0 lists all)")

	importCmd.AddCommand(checkCmd)
	return importCmd
}
