package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/competeiq/internal/domain/provider"
	"github.com/turtacn/competeiq/pkg/errors"
)

// NewProvidersCmd groups provider attribution commands.
func NewProvidersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Attribute analysis data points to AI providers",
	}
	cmd.AddCommand(newProvidersAnalysisCmd(), newProvidersFileCmd())
	return cmd
}

func newProvidersAnalysisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analysis <id>",
		Short: "Count providers of a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, b Backend) error {
				counts, err := b.Attribution().ProviderCounts(ctx, args[0])
				if err != nil {
					return err
				}
				return PrintResult(cmd, providerCountsView(counts))
			})
		},
	}
}

func newProvidersFileCmd() *cobra.Command {
	var known []string
	cmd := &cobra.Command{
		Use:   "file <path.json>",
		Short: "Count providers of an analysis document on disk (no database)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc map[string]any
			if err := readJSONFile(args[0], &doc); err != nil {
				return err
			}
			var opts []provider.ResolverOption
			if len(known) > 0 {
				opts = append(opts, provider.WithKnownProviders(known...))
			}
			counts := provider.NewResolver(opts...).ExtractProviderCounts(doc)
			return PrintResult(cmd, providerCountsView(counts))
		},
	}
	cmd.Flags().StringSliceVar(&known, "known-providers", nil, "provider names matched in source citations")
	return cmd
}

func readJSONFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.InvalidParam("cannot read " + path).WithCause(err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.InvalidParam("invalid JSON in " + path).WithCause(err)
	}
	return nil
}
