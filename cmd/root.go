package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadintel/internal/config"
)

var (
	cfg          *config.Config
	outputFormat string
	ownerID      string
)

var rootCmd = &cobra.Command{
	Use:   "leadintel",
	Short: "Website lead analysis pipeline",
	Long:  "Scrapes company websites, extracts contacts, profiles the company with a generative model, scores the lead, drafts outreach and stores the result.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", "local", "owner recorded on analyzed leads and used to scope lead queries")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
