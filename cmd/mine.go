package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/recipe-miner/internal/pipeline"
	"github.com/sells-group/recipe-miner/internal/synth"
)

var (
	mineDishes   []string
	mineDishFile string
	minePersona  string
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Search, scrape and synthesize recipes into a draft batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.CheckAnthropic(); err != nil {
			return err
		}

		dishes, err := selectDishes()
		if err != nil {
			return err
		}
		if len(dishes) == 0 {
			return eris.New("no dishes to mine")
		}

		collector, closeCache := newCollector(ctx)
		defer closeCache()

		synthesizer := synth.New(newAnthropic(cfg.Anthropic), synth.Options{
			Model:       cfg.Anthropic.Model,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			Temperature: cfg.Anthropic.SynthesisTemperature,
		})

		miner := pipeline.NewMiner(collector, synthesizer, cfg.Mine.DraftDir, cfg.Mine.DishDelay())
		res, err := miner.Mine(ctx, dishes, cfg.Mine.ResolvePersona(minePersona))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Mined %d of %d dishes (no sources: %d, generation failed: %d)\n",
			res.Stats.Mined, len(dishes), res.Stats.SkippedNoSources, res.Stats.SkippedGeneration)
		if res.File == "" {
			fmt.Fprintln(out, "No recipes were generated")
			return nil
		}
		fmt.Fprintf(out, "Saved draft batch: %s\n", res.File)
		fmt.Fprintln(out, "Next: recipe-miner validate --file "+res.File)
		return nil
	},
}

// selectDishes prefers --dish, then --dishes, then the configured list.
func selectDishes() ([]string, error) {
	if len(mineDishes) > 0 {
		return cleanDishes(mineDishes), nil
	}
	if mineDishFile != "" {
		return loadDishes(mineDishFile)
	}
	return cleanDishes(cfg.Mine.Dishes), nil
}

func init() {
	mineCmd.Flags().StringSliceVar(&mineDishes, "dish", nil, "dish to mine (repeatable)")
	mineCmd.Flags().StringVar(&mineDishFile, "dishes", "", "file listing dishes (YAML or one per line)")
	mineCmd.Flags().StringVar(&minePersona, "persona", "", "persona key from mine.personas or literal persona text")
	rootCmd.AddCommand(mineCmd)
}
