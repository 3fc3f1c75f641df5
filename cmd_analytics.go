package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"portfolio/model"
	"portfolio/storage"
)

var analyticsProject string

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Inspect recorded page views",
}

var analyticsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print view counts per page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		views, err := storage.OpenViewStore(cfg.Resolve(cfg.AnalyticsDB))
		if err != nil {
			return err
		}
		defer views.Close()

		pages, err := views.PageCounts(cmd.Context())
		if err != nil {
			return err
		}
		if err := printPageCounts(cmd.OutOrStdout(), pages); err != nil {
			return err
		}

		if analyticsProject != "" {
			n, err := views.ProjectViewCount(cmd.Context(), analyticsProject)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "project %s: %s views\n", analyticsProject, humanize.Comma(n))
		}
		return nil
	},
}

func init() {
	analyticsSummaryCmd.Flags().StringVar(&analyticsProject, "project", "", "Also show views for this project id")
	analyticsCmd.AddCommand(analyticsSummaryCmd)
}

func printPageCounts(w io.Writer, pages []model.PageCount) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tVIEWS")
	var total int64
	for _, p := range pages {
		page := p.Page
		if page == "" {
			page = "(unknown)"
		}
		fmt.Fprintf(tw, "%s\t%s\n", page, humanize.Comma(p.Views))
		total += p.Views
	}
	fmt.Fprintf(tw, "total\t%s\n", humanize.Comma(total))
	return tw.Flush()
}
