package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/recipe-miner/internal/batchfile"
	"github.com/sells-group/recipe-miner/internal/pipeline"
	"github.com/sells-group/recipe-miner/internal/resolve"
	"github.com/sells-group/recipe-miner/internal/upload"
)

var (
	uploadFile  string
	uploadForce bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a validated batch to the development store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.CheckStore(); err != nil {
			return err
		}
		if err := cfg.CheckTarget(); err != nil {
			return err
		}

		path := uploadFile
		if path == "" {
			p, err := batchfile.Latest(cfg.Validate.OutputDir, batchfile.ValidatedPrefix)
			if err != nil {
				return eris.Wrap(err, "find latest validated batch")
			}
			path = p
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		resolver := resolve.New(st, cfg.Target.UserID)
		uploader := upload.New(st, resolver, upload.Options{
			UserID:     cfg.Target.UserID,
			SpaceID:    cfg.Target.SpaceID,
			StrictRefs: cfg.Upload.StrictRefs,
		})

		pub := pipeline.NewPublisher(uploader, st, cfg.Target.SpaceID, cfg.Upload.RecordsDir)
		res, err := pub.Run(ctx, path, uploadForce || cfg.Upload.AllowReupload)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, item := range res.Outcome.Items {
			switch item.Outcome {
			case upload.OutcomeSuccess:
				fmt.Fprintf(out, "[%d] success %s (%s)\n", item.Index, item.Title, item.RecipeID)
			case upload.OutcomeFailed:
				fmt.Fprintf(out, "[%d] failed  %s: %v\n", item.Index, item.Title, item.Err)
			default:
				fmt.Fprintf(out, "[%d] skipped (no recipe)\n", item.Index)
			}
		}

		s := res.Record.Stats
		fmt.Fprintf(out, "Batch %s: %d success, %d failed, %d skipped\n", res.Record.BatchID, s.Success, s.Failed, s.Skipped)
		if cfg.Upload.StrictRefs {
			stats := resolver.Stats()
			fmt.Fprintf(out, "Resolver: units %d hits / %d lookups (%d fallbacks), foods %d hits / %d lookups\n",
				stats.UnitHits, stats.UnitLookups, stats.UnitFallbacks, stats.FoodHits, stats.FoodLookups)
		}
		fmt.Fprintf(out, "Saved upload record: %s\n", res.RecordFile)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadFile, "file", "", "validated batch to upload (default: latest in validate.output_dir)")
	uploadCmd.Flags().BoolVar(&uploadForce, "force", false, "upload even if this batch file was uploaded before")
	rootCmd.AddCommand(uploadCmd)
}
