package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewThreatCmd groups the store-backed threat assessments.
func NewThreatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threat",
		Short: "Assess competitor and market threats from the store",
	}
	cmd.AddCommand(newThreatCompetitorCmd(), newThreatMarketCmd())
	return cmd
}

func newThreatCompetitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "competitor <id>",
		Short: "Assess a single competitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, b Backend) error {
				return PrintResult(cmd, assessmentView{b.Threat().AssessCompetitorThreat(ctx, args[0])})
			})
		},
	}
}

func newThreatMarketCmd() *cobra.Command {
	var archive, listArchives bool
	cmd := &cobra.Command{
		Use:   "market <industry>",
		Short: "Assess an industry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, b Backend) error {
				if listArchives {
					objs, err := b.Threat().ListMarketArchives(ctx, args[0])
					if err != nil {
						return err
					}
					return PrintResult(cmd, archiveListView(objs))
				}
				if archive {
					report, err := b.Threat().ArchiveMarketAssessment(ctx, args[0])
					if err != nil {
						return err
					}
					return PrintResult(cmd, archiveView{report})
				}
				return PrintResult(cmd, assessmentView{b.Threat().AssessMarketThreat(ctx, args[0])})
			})
		},
	}
	cmd.Flags().BoolVar(&archive, "archive", false, "store the assessment in the report archive")
	cmd.Flags().BoolVar(&listArchives, "list-archives", false, "list the archived reports of the industry, newest first")
	cmd.MarkFlagsMutuallyExclusive("archive", "list-archives")
	return cmd
}
