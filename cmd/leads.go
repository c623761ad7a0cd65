package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadintel/internal/model"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect stored leads",
	Long:  "Commands for listing, viewing, deleting and summarizing the leads of --owner.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("leads")
	},
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter, err := leadFilterFromFlags(cmd)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		page, err := st.ListLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads list")
		}
		if page.Total == 0 {
			_, _ = fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}
		return render(os.Stdout, outputFormat, page, func(w io.Writer) { formatLeadList(w, page) })
	},
}

func addLeadFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("search", "", "filter by company name substring")
	cmd.Flags().String("industry", "", "filter by industry substring")
	cmd.Flags().Float64("min-score", 0, "minimum lead score")
	cmd.Flags().Float64("max-score", 10, "maximum lead score")
	cmd.Flags().String("sort", string(model.SortNewest), "sort order: newest, score-high, score-low, name")
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("limit", model.DefaultPageLimit, "leads per page")
}

// leadFilterFromFlags builds a normalized filter scoped to --owner. Score
// bounds apply only when their flag was set.
func leadFilterFromFlags(cmd *cobra.Command) (model.LeadFilter, error) {
	f := model.LeadFilter{OwnerID: ownerID}
	flags := cmd.Flags()

	f.Search, _ = flags.GetString("search")
	f.Industry, _ = flags.GetString("industry")
	sortBy, _ := flags.GetString("sort")
	f.Sort = model.ParseLeadSort(sortBy)
	f.Page, _ = flags.GetInt("page")
	f.Limit, _ = flags.GetInt("limit")

	for _, b := range []struct {
		name string
		dst  **float64
	}{{"min-score", &f.MinScore}, {"max-score", &f.MaxScore}} {
		if !flags.Changed(b.name) {
			continue
		}
		v, err := flags.GetFloat64(b.name)
		if err != nil {
			return f, eris.Wrapf(err, "--%s", b.name)
		}
		*b.dst = &v
	}
	if f.MinScore != nil && f.MaxScore != nil && *f.MinScore > *f.MaxScore {
		return f, eris.New("--min-score must not exceed --max-score")
	}

	f.Normalize()
	return f, nil
}

// -- leads get --

var leadsGetCmd = &cobra.Command{
	Use:   "get <lead-id>",
	Short: "Show full details of a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lead, err := st.GetLead(ctx, args[0], ownerID)
		if err != nil {
			return eris.Wrap(err, "leads get")
		}
		return render(os.Stdout, outputFormat, lead, func(w io.Writer) { formatLead(w, lead) })
	},
}

// -- leads delete --

var leadsDeleteCmd = &cobra.Command{
	Use:   "delete <lead-id>",
	Short: "Delete a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteLead(ctx, args[0], ownerID); err != nil {
			return eris.Wrap(err, "leads delete")
		}
		_, _ = fmt.Fprintln(os.Stderr, "Lead deleted.")
		return nil
	},
}

// -- leads stats --

var leadsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate lead statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.Stats(ctx, ownerID)
		if err != nil {
			return eris.Wrap(err, "leads stats")
		}
		return render(os.Stdout, outputFormat, stats, func(w io.Writer) { formatStats(w, stats) })
	},
}

func init() {
	addLeadFilterFlags(leadsListCmd)

	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsGetCmd)
	leadsCmd.AddCommand(leadsDeleteCmd)
	leadsCmd.AddCommand(leadsStatsCmd)
	rootCmd.AddCommand(leadsCmd)
}
