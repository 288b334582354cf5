package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

// statusReport is the JSON shape of the status command.
type statusReport struct {
	ActiveChunks   int                  `json:"active_chunks"`
	ActiveTokens   int                  `json:"active_tokens"`
	Archive        *domain.ArchiveStats `json:"archive,omitempty"`
	Insights       *domain.InsightStats `json:"insights,omitempty"`
	CurrentSession string               `json:"current_session,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarise the store",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if chunkService == nil {
		return errChunkUnavailable
	}
	ctx := commandContext(cmd)

	listing, err := chunkService.List(ctx, driving.ListRequest{Limit: 1})
	if err != nil {
		return err
	}
	report := statusReport{ActiveChunks: listing.TotalChunks, ActiveTokens: listing.TotalTokens}

	if retentionService != nil {
		if report.Archive, err = retentionService.Stats(ctx); err != nil {
			return err
		}
	}
	if insightService != nil {
		if report.Insights, err = insightService.Status(ctx); err != nil {
			return err
		}
	}
	if sessionService != nil {
		if report.CurrentSession, err = sessionService.Current(ctx); err != nil {
			return err
		}
	}

	if jsonFlag {
		return printJSON(cmd, report)
	}

	cmd.Println("[Chunks]")
	cmd.Printf("  Active: %d (%d tokens)\n", report.ActiveChunks, report.ActiveTokens)
	if a := report.Archive; a != nil {
		cmd.Printf("  Archived: %d (%s on disk)\n", a.Count, formatBytes(a.TotalCompressedSize))
	}
	if in := report.Insights; in != nil {
		cmd.Println()
		cmd.Println("[Insights]")
		cmd.Printf("  Total: %d\n", in.Total)
		for category, n := range in.ByCategory {
			cmd.Printf("  %s: %d\n", category, n)
		}
	}
	if report.CurrentSession != "" {
		cmd.Println()
		cmd.Printf("Current session: %s\n", report.CurrentSession)
	}
	return nil
}
