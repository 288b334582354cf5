package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

var (
	retentionNoArchive bool
	retentionPurge     bool
)

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Archive and purge unused chunks",
	Long: `Chunks nobody reads are compressed into the archive, and archives
nobody restores are eventually purged. Tagged, frequently read and keyword
protected chunks are never touched.`,
}

var retentionPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show what a retention run would do",
	Args:  cobra.NoArgs,
	RunE:  runRetentionPreview,
}

var retentionRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Archive stale chunks",
	Long: `Archives every current archive candidate. Purging archives is opt-in
with --purge.`,
	Args: cobra.NoArgs,
	RunE: runRetentionRun,
}

var retentionRestoreCmd = &cobra.Command{
	Use:   "restore <chunk-id>",
	Short: "Restore an archived chunk",
	Args:  cobra.ExactArgs(1),
	RunE:  runRetentionRestore,
}

var retentionStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive size and compression",
	Args:  cobra.NoArgs,
	RunE:  runRetentionStats,
}

func init() {
	retentionRunCmd.Flags().BoolVar(&retentionNoArchive, "no-archive", false, "skip archiving")
	retentionRunCmd.Flags().BoolVar(&retentionPurge, "purge", false, "permanently delete old archives")

	retentionCmd.AddCommand(retentionPreviewCmd, retentionRunCmd, retentionRestoreCmd, retentionStatsCmd)
	rootCmd.AddCommand(retentionCmd)
}

func runRetentionPreview(cmd *cobra.Command, _ []string) error {
	if retentionService == nil {
		return errRetentionUnavailable
	}

	preview, err := retentionService.Preview(commandContext(cmd))
	if err != nil {
		return err
	}
	if jsonFlag {
		return printOutcome(cmd, domain.StatusPreview, "", preview)
	}

	cmd.Printf("Archive candidates: %d\n", len(preview.ArchiveCandidates))
	for _, c := range preview.ArchiveCandidates {
		cmd.Printf("  %s  created %s, read %d times  %s\n",
			c.ID, formatAge(c.CreatedAt), c.AccessCount, truncate(c.Summary, 40))
	}
	cmd.Println()
	cmd.Printf("Purge candidates: %d\n", len(preview.PurgeCandidates))
	for _, c := range preview.PurgeCandidates {
		cmd.Printf("  %s  archived %s  %s\n", c.ID, formatAge(c.ArchivedAt), truncate(c.Summary, 40))
	}
	return nil
}

func runRetentionRun(cmd *cobra.Command, _ []string) error {
	if retentionService == nil {
		return errRetentionUnavailable
	}

	report, err := retentionService.Run(commandContext(cmd), driving.RetentionRunOptions{
		Archive: !retentionNoArchive,
		Purge:   retentionPurge,
	})
	if err != nil {
		return err
	}
	if jsonFlag {
		return printOutcome(cmd, domain.StatusCompleted, "", report)
	}

	cmd.Printf("Archived: %d\n", len(report.Archived))
	cmd.Printf("Purged:   %d\n", len(report.Purged))
	if len(report.Errors) > 0 {
		cmd.Printf("Errors:   %d\n", len(report.Errors))
		for _, e := range report.Errors {
			cmd.Printf("  %s\n", e)
		}
	}
	return nil
}

func runRetentionRestore(cmd *cobra.Command, args []string) error {
	if retentionService == nil {
		return errRetentionUnavailable
	}

	c, err := retentionService.Restore(commandContext(cmd), args[0])
	if err != nil {
		return reportFailure(cmd, err)
	}
	if jsonFlag {
		return printOutcome(cmd, domain.StatusRestored, "", c)
	}
	cmd.Printf("Restored chunk %s\n", c.ID)
	return nil
}

func runRetentionStats(cmd *cobra.Command, _ []string) error {
	if retentionService == nil {
		return errRetentionUnavailable
	}

	stats, err := retentionService.Stats(commandContext(cmd))
	if err != nil {
		return err
	}
	if jsonFlag {
		return printJSON(cmd, stats)
	}

	cmd.Printf("Archived chunks: %d\n", stats.Count)
	cmd.Printf("Original size:   %s\n", formatBytes(stats.TotalOriginalSize))
	cmd.Printf("Compressed size: %s\n", formatBytes(stats.TotalCompressedSize))
	if ratio, ok := stats.CompressionRatio(); ok {
		cmd.Printf("Space saved:     %.1f%%\n", ratio)
	}
	return nil
}
