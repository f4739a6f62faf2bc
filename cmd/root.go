package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/recipe-miner/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "recipe-miner",
	Short:        "Recipe mining, validation and upload pipeline",
	Long:         "Searches the web for dishes, synthesizes consensus recipes with Claude, validates them and uploads them to the development recipe store.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}
