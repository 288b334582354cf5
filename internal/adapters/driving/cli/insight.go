package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
)

var (
	rememberCategory   string
	rememberImportance string
	rememberTags       string

	recallCategory   string
	recallImportance string
	recallLimit      int

	updateContent    string
	updateCategory   string
	updateImportance string
	updateTags       string
	updateAddTags    string
	updateRemoveTags string
)

var rememberCmd = &cobra.Command{
	Use:   "remember <content>",
	Short: "Save a permanent insight",
	Long: `Saves a short fact or decision. Insights are never archived or purged.

Importance is one of low, medium, high or critical.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemember,
}

var recallCmd = &cobra.Command{
	Use:   "recall [query]",
	Short: "Find saved insights",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRecall,
}

var insightCmd = &cobra.Command{
	Use:   "insight",
	Short: "Manage insights",
}

var insightUpdateCmd = &cobra.Command{
	Use:   "update <insight-id>",
	Short: "Edit an insight",
	Long: `Edits an insight. Only the flags given are changed; --tags replaces
every tag while --add-tags and --remove-tags adjust the current set.`,
	Args: cobra.ExactArgs(1),
	RunE: runInsightUpdate,
}

var forgetCmd = &cobra.Command{
	Use:   "forget <insight-id>",
	Short: "Delete an insight",
	Args:  cobra.ExactArgs(1),
	RunE:  runForget,
}

func init() {
	rememberCmd.Flags().StringVarP(&rememberCategory, "category", "c", "", "category (default general)")
	rememberCmd.Flags().StringVar(&rememberImportance, "importance", "", "low, medium, high or critical (default medium)")
	rememberCmd.Flags().StringVarP(&rememberTags, "tags", "t", "", "comma-separated tags")

	recallCmd.Flags().StringVarP(&recallCategory, "category", "c", "", "only recall this category")
	recallCmd.Flags().StringVar(&recallImportance, "importance", "", "only recall this importance")
	recallCmd.Flags().IntVarP(&recallLimit, "limit", "n", 10, "maximum number of insights")

	insightUpdateCmd.Flags().StringVar(&updateContent, "content", "", "new content")
	insightUpdateCmd.Flags().StringVarP(&updateCategory, "category", "c", "", "new category")
	insightUpdateCmd.Flags().StringVar(&updateImportance, "importance", "", "new importance")
	insightUpdateCmd.Flags().StringVarP(&updateTags, "tags", "t", "", "comma-separated tags replacing all current tags")
	insightUpdateCmd.Flags().StringVar(&updateAddTags, "add-tags", "", "comma-separated tags to add")
	insightUpdateCmd.Flags().StringVar(&updateRemoveTags, "remove-tags", "", "comma-separated tags to remove")

	insightCmd.AddCommand(insightUpdateCmd)
	rootCmd.AddCommand(rememberCmd, recallCmd, insightCmd, forgetCmd)
}

func runRemember(cmd *cobra.Command, args []string) error {
	if insightService == nil {
		return errInsightUnavailable
	}

	in, err := insightService.Remember(commandContext(cmd), driving.InsightRequest{
		Content:    args[0],
		Category:   rememberCategory,
		Importance: rememberImportance,
		Tags:       domain.ParseTagList(rememberTags),
	})
	if err != nil {
		return reportFailure(cmd, err)
	}

	if jsonFlag {
		return printOutcome(cmd, domain.StatusSaved, "", in)
	}
	cmd.Printf("Saved insight %s (%s, %s)\n", in.ID, in.Category, in.Importance)
	return nil
}

func runRecall(cmd *cobra.Command, args []string) error {
	if insightService == nil {
		return errInsightUnavailable
	}

	query := driving.RecallQuery{
		Category:   recallCategory,
		Importance: recallImportance,
		Limit:      recallLimit,
	}
	if len(args) == 1 {
		query.Query = args[0]
	}

	hits, err := insightService.Recall(commandContext(cmd), query)
	if err != nil {
		return reportFailure(cmd, err)
	}

	if jsonFlag {
		return printJSON(cmd, hits)
	}
	if len(hits) == 0 {
		cmd.Println("No insights found.")
		return nil
	}
	for _, h := range hits {
		in := h.Insight
		cmd.Printf("  %s [%s/%s] %s\n", in.ID, in.Category, in.Importance, truncate(in.Content, 70))
		if in.Tags.Len() > 0 {
			cmd.Printf("      tags: %s\n", in.Tags.Join(", "))
		}
	}
	return nil
}

func runInsightUpdate(cmd *cobra.Command, args []string) error {
	if insightService == nil {
		return errInsightUnavailable
	}

	flags := cmd.Flags()
	var patch domain.InsightPatch
	if flags.Changed("content") {
		patch.Content = &updateContent
	}
	if flags.Changed("category") {
		patch.Category = &updateCategory
	}
	if flags.Changed("importance") {
		patch.Importance = &updateImportance
	}
	if flags.Changed("tags") {
		replace := domain.ParseTagList(updateTags)
		patch.ReplaceTags = &replace
	}
	patch.AddTags = domain.ParseTagList(updateAddTags)
	patch.RemoveTags = domain.ParseTagList(updateRemoveTags)

	in, changed, err := insightService.Update(commandContext(cmd), args[0], patch)
	if err != nil {
		return reportFailure(cmd, err)
	}

	status := domain.StatusUpdated
	if !changed {
		status = domain.StatusNoChange
	}
	if jsonFlag {
		return printOutcome(cmd, status, "", in)
	}
	if !changed {
		cmd.Printf("Insight %s unchanged\n", in.ID)
		return nil
	}
	cmd.Printf("Updated insight %s\n", in.ID)
	return nil
}

func runForget(cmd *cobra.Command, args []string) error {
	if insightService == nil {
		return errInsightUnavailable
	}

	if err := insightService.Forget(commandContext(cmd), args[0]); err != nil {
		return reportFailure(cmd, err)
	}
	if jsonFlag {
		return printOutcome(cmd, domain.StatusDeleted, "", map[string]string{"insight_id": args[0]})
	}
	cmd.Printf("Deleted insight %s\n", args[0])
	return nil
}
