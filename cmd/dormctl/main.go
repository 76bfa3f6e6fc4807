// Command dormctl holds offline and maintenance tools for DormHub:
// checking an import spreadsheet before upload, and printing the
// duplicate worker report from a database.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errFindings makes the process exit with status 1 without printing
// anything more; the report has already been written.
var errFindings = errors.New("findings reported")

func newRootCmd(logger *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "dormctl",
		Short:         "DormHub maintenance tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newImportCmd())
	root.AddCommand(newConflictsCmd(logger))
	return root
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if err := newRootCmd(logger).Execute(); err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
