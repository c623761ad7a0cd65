package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Analyze a single website and store the lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		lead, err := env.Pipeline.Analyze(ctx, args[0], ownerID)
		if err != nil {
			return err
		}
		return render(os.Stdout, outputFormat, lead, func(w io.Writer) { formatLead(w, lead) })
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
