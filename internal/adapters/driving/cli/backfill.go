package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

var backfillForce bool

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Generate missing embeddings",
	Long: `Embeds every active chunk that has no stored vector, for example after
configuring a provider. --force re-embeds everything, which is needed after
switching to a model with a different dimension.`,
	Args: cobra.NoArgs,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().BoolVar(&backfillForce, "force", false, "re-embed every chunk")
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	if backfillService == nil {
		return errBackfillUnavailable
	}

	report, err := backfillService.Run(commandContext(cmd), backfillForce)
	if err != nil {
		return reportFailure(cmd, err)
	}
	if jsonFlag {
		return printOutcome(cmd, domain.StatusCompleted, "", report)
	}
	cmd.Printf("Embedded: %d  Skipped: %d  Failed: %d\n", report.Embedded, report.Skipped, report.Failed)
	return nil
}
