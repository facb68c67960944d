package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/kyoto-geodata/internal/synclog"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent dataset runs",
	Long:  "Displays the most recent entries of the sync log.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.SyncLog.Path == "" {
			return eris.New("status: synclog.path is not configured")
		}
		ctx := cmdContext(cmd)

		sl, err := synclog.Open(ctx, cfg.SyncLog.Path)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		defer sl.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := sl.List(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		if len(entries) == 0 {
			zap.L().Info("no runs recorded, run 'kyoto-geodata all' to fetch datasets")
			return nil
		}

		formatStatusEntries(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("limit", 20, "number of runs to show (0 for all)")
	rootCmd.AddCommand(statusCmd)
}

// formatStatusEntries writes a tabular representation of sync entries to w.
func formatStatusEntries(out io.Writer, entries []synclog.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATASET\tSOURCE\tSTATUS\tSTARTED\tDURATION\tFEATURES\tERROR")
	_, _ = fmt.Fprintln(w, "-------\t------\t------\t-------\t--------\t--------\t-----")

	for _, e := range entries {
		dur := "-"
		if e.CompletedAt != nil {
			dur = e.CompletedAt.Sub(e.StartedAt).Round(time.Second).String()
		}

		errMsg := ""
		if e.Error != "" {
			errMsg = e.ErrorClass + ": " + truncate(e.Error, 60)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.Dataset,
			e.Source,
			e.Status,
			e.StartedAt.Local().Format("2006-01-02 15:04"),
			dur,
			e.Features,
			errMsg,
		)
	}
	_ = w.Flush()
}
