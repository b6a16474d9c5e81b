package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/competeiq/internal/domain/competitor"
	"github.com/turtacn/competeiq/internal/domain/threat"
)

// NewScoreCmd scores documents offline.
func NewScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score competitor documents without a database",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "file <competitor.json>",
		Short: "Assess a competitor document on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c competitor.Competitor
			if err := readJSONFile(args[0], &c); err != nil {
				return err
			}
			return PrintResult(cmd, assessmentView{threat.NewCalculator().Assess(&c)})
		},
	})
	return cmd
}
