package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dalemusser/dormhub/internal/app/features/conflicts"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func newConflictsCmd(logger *zap.Logger) *cobra.Command {
	var (
		uri     string
		dbName  string
		asJSON  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Print workers active on several farms and overlapping stays",
		Long: `Scans the workers collection for CINs held by more than one active
record and for workers whose stay history overlaps itself.

Exits with status 1 when anything is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetAppName("dormctl"))
			if err != nil {
				return fmt.Errorf("connect mongo: %w", err)
			}
			defer func() {
				if err := client.Disconnect(context.Background()); err != nil {
					logger.Warn("mongo disconnect", zap.Error(err))
				}
			}()

			rep, err := conflicts.LoadReport(ctx, client.Database(dbName))
			if err != nil {
				return err
			}
			logger.Debug("conflict report loaded",
				zap.Int("conflicts", len(rep.Conflicts)),
				zap.Int("overlaps", len(rep.Overlaps)))

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return err
				}
			} else if err := writeConflicts(out, rep); err != nil {
				return err
			}
			if len(rep.Conflicts) > 0 || len(rep.Overlaps) > 0 {
				return errFindings
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&uri, "mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	cmd.Flags().StringVar(&dbName, "db", "dormhub", "Database name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall timeout")
	return cmd
}

// writeConflicts prints rep as plain text.
func writeConflicts(w io.Writer, rep conflicts.Report) error {
	var b strings.Builder
	farm := func(id string) string {
		if name, ok := rep.Farms[id]; ok {
			return name
		}
		return id
	}

	fmt.Fprintf(&b, "Active duplicates: %d\n", len(rep.Conflicts))
	for _, c := range rep.Conflicts {
		fmt.Fprintf(&b, "  CIN %s (%s)\n", c.CIN, c.Kind)
		for _, wk := range c.Workers {
			fmt.Fprintf(&b, "    %s  %-28s %-16s entered %s\n",
				wk.ID.Hex(), wk.FullName, farm(wk.FarmID.Hex()), wk.EntryDate.Format(time.DateOnly))
		}
	}

	fmt.Fprintf(&b, "Overlapping histories: %d\n", len(rep.Overlaps))
	for _, o := range rep.Overlaps {
		fmt.Fprintf(&b, "  %s  %s (CIN %s, %s)\n", o.WorkerID.Hex(), o.FullName, o.CIN, farm(o.FarmID.Hex()))
		for _, ov := range o.Overlaps {
			to := "open"
			if !ov.To.IsZero() {
				to = ov.To.Format(time.DateOnly)
			}
			fmt.Fprintf(&b, "    stays %d and %d overlap from %s to %s\n", ov.First, ov.Second, ov.From.Format(time.DateOnly), to)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
