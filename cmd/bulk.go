package main

import (
	"bufio"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var bulkFile string

var bulkCmd = &cobra.Command{
	Use:   "bulk [url...]",
	Short: "Analyze many websites with bounded concurrency",
	Long:  "Analyzes each URL as an independent run. URLs come from arguments, from --file (one per line, # comments allowed), or both.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		urls := append([]string{}, args...)
		if bulkFile != "" {
			fromFile, err := readURLFile(bulkFile)
			if err != nil {
				return err
			}
			urls = append(urls, fromFile...)
		}

		env, err := initPipeline(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Pipeline.Bulk(ctx, urls, ownerID)
		if err != nil {
			return err
		}
		env.Dispatcher.Wait()
		env.Checker.Drain(env.Dispatcher.Errors())
		env.Checker.Check(ctx)
		return render(os.Stdout, outputFormat, report, func(w io.Writer) { formatBulkReport(w, report) })
	},
}

func init() {
	bulkCmd.Flags().StringVarP(&bulkFile, "file", "f", "", "file with one URL per line")
	rootCmd.AddCommand(bulkCmd)
}

// readURLFile reads one URL per line, skipping blanks and # comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open url file")
	}
	defer f.Close() //nolint:errcheck
	return parseURLList(f)
}

func parseURLList(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "read url file")
	}
	return urls, nil
}
