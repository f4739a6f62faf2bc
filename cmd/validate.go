package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/recipe-miner/internal/batchfile"
	"github.com/sells-group/recipe-miner/internal/pipeline"
	"github.com/sells-group/recipe-miner/internal/validate"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run quality checks on a draft batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.CheckAnthropic(); err != nil {
			return err
		}

		path := validateFile
		if path == "" {
			p, err := batchfile.Latest(cfg.Mine.DraftDir, batchfile.DraftPrefix)
			if err != nil {
				return eris.Wrap(err, "find latest draft batch")
			}
			path = p
		}

		judge := validate.New(newAnthropic(cfg.Anthropic), validate.Options{
			Model:       cfg.Anthropic.Model,
			Temperature: cfg.Anthropic.ValidationTemperature,
		})

		res, err := pipeline.NewChecker(judge, cfg.Validate.OutputDir, cfg.Validate.Delay()).Run(ctx, path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, item := range res.Items {
			fmt.Fprintf(out, "[%d/%d] %-5s %s: %s\n", i+1, len(res.Items),
				item.QAMeta.Status, item.Recipe.DisplayTitle(), item.QAMeta.Reason)
		}
		fmt.Fprintf(out, "Validated %d recipes (pass: %d, flag: %d)\n", len(res.Items), res.Stats.Pass, res.Stats.Flag)
		fmt.Fprintf(out, "Saved validated batch: %s\n", res.File)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateFile, "file", "", "draft batch to validate (default: latest in mine.draft_dir)")
	rootCmd.AddCommand(validateCmd)
}
