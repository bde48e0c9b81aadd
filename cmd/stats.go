package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/davenull4x/applyforge/internal/ats"
	"github.com/davenull4x/applyforge/internal/config"
	"github.com/davenull4x/applyforge/internal/observability"
	"github.com/davenull4x/applyforge/internal/outcome"
)

// newStatsCmd creates the `stats` command, a read-only view over the
// application history.
func newStatsCmd() *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarizes application history and success rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			cfg, err := config.NewFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			days, _ := cmd.Flags().GetInt("days")

			analytics := outcome.NewAnalytics(cfg.Storage.AnalyticsFile, logger)
			s := analytics.Summarize(days)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Applications: %d\n", s.Total)
			fmt.Fprintf(out, "  submitted:  %d (%d verified)\n", s.Submitted, s.Verified)
			fmt.Fprintf(out, "  manual:     %d\n", s.Manual)
			fmt.Fprintf(out, "  failed:     %d\n", s.Failed)
			fmt.Fprintf(out, "Success rate: %.1f%%\n", s.SuccessRate*100)

			if len(s.ByPlatform) > 0 {
				fmt.Fprintln(out, "By platform:")
				platforms := make([]string, 0, len(s.ByPlatform))
				for p := range s.ByPlatform {
					platforms = append(platforms, string(p))
				}
				sort.Strings(platforms)
				for _, p := range platforms {
					fmt.Fprintf(out, "  %-16s %d\n", p, s.ByPlatform[ats.Platform(p)])
				}
			}

			if best := analytics.BestTimeFilter(); best != "" {
				fmt.Fprintf(out, "Best search time filter: %s\n", best)
			}
			if top := analytics.TopCompanies(5); len(top) > 0 {
				fmt.Fprintln(out, "Most applied-to companies:")
				for _, c := range top {
					fmt.Fprintf(out, "  %s\n", c)
				}
			}
			return nil
		},
	}
	statsCmd.Flags().Int("days", 0, "restrict the summary to the last N days (0 means all time)")
	return statsCmd
}
