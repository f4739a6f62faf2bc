package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/recipe-miner/internal/pipeline"
	"github.com/sells-group/recipe-miner/internal/resilience"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the staging space and the latest local batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.CheckStore(); err != nil {
			return err
		}
		if err := cfg.CheckTarget(); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		rep, err := pipeline.Status(ctx, st, cfg.Target.SpaceID, statusLimit, pipeline.StatusDirs{
			Drafts:    cfg.Mine.DraftDir,
			Validated: cfg.Validate.OutputDir,
			Records:   cfg.Upload.RecordsDir,
		}, resilience.DefaultRetryConfig())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		name := rep.SpaceName
		if name == "" {
			name = "(unknown space)"
		}
		fmt.Fprintf(out, "Space: %s (%s)\n", name, rep.SpaceID)
		fmt.Fprintf(out, "Recent recipes: %d\n", len(rep.Recent))
		for _, r := range rep.Recent {
			fmt.Fprintf(out, "  %s  %-4s  %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.QAStatus, r.Title)
		}
		fmt.Fprintf(out, "Latest draft:     %s\n", orNone(rep.LatestDraft))
		fmt.Fprintf(out, "Latest validated: %s\n", orNone(rep.LatestValidated))
		if rep.LatestRecord != nil {
			s := rep.LatestRecord.Stats
			fmt.Fprintf(out, "Latest upload:    %s (batch %s: %d success, %d failed, %d skipped)\n",
				rep.LatestRecordAt, rep.LatestRecord.BatchID, s.Success, s.Failed, s.Skipped)
		} else {
			fmt.Fprintln(out, "Latest upload:    none")
		}
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of recent recipes to list")
	rootCmd.AddCommand(statusCmd)
}
