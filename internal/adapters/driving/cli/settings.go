package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rlm/internal/core/domain"
)

var (
	embeddingProviderFlag string
	embeddingModelFlag    string
	embeddingBaseURLFlag  string

	retentionArchiveDays   int
	retentionPurgeDays     int
	retentionMinAccess     int
	retentionProtectedTags string
	retentionAutoPurge     bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change settings",
	Long: `Shows the search, embedding, retention and scheduler settings stored in
config.toml. The subcommands change one group at a time; "wizard" walks
through search mode and embedding provider interactively.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Choose search mode and embedding provider step by step",
	Args:  cobra.NoArgs,
	RunE:  runSettingsWizard,
}

var settingsModeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Choose the search mode",
	Long: `Chooses between keyword-only search and hybrid search.

  text_only  BM25 keyword ranking, no setup needed
  hybrid     BM25 fused with vector similarity, needs an embedding provider`,
	Args: cobra.NoArgs,
	RunE: runSettingsMode,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Choose the embedding provider",
	Long: `Chooses the provider that embeds chunks for semantic search. Without
--provider the choice is interactive. The API key is always prompted for,
never taken from a flag.`,
	Args: cobra.NoArgs,
	RunE: runSettingsEmbedding,
}

var settingsAlphaCmd = &cobra.Command{
	Use:   "alpha <0..1>",
	Short: "Set the semantic weight of hybrid search",
	Long: `Sets how much the semantic score counts in hybrid search.
0 ranks by keywords only, 1 by meaning only. The default is 0.6.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsAlpha,
}

var settingsRetentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Change archive and purge thresholds",
	Long:  `Changes only the thresholds given as flags; the rest stay as they are.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsRetention,
}

func init() {
	f := settingsEmbeddingCmd.Flags()
	f.StringVar(&embeddingProviderFlag, "provider", "", "none, ollama or openai")
	f.StringVar(&embeddingModelFlag, "model", "", "embedding model (provider default when empty)")
	f.StringVar(&embeddingBaseURLFlag, "base-url", "", "API endpoint (provider default when empty)")

	f = settingsRetentionCmd.Flags()
	f.IntVar(&retentionArchiveDays, "archive-after", 0, "days before an unread chunk is archived")
	f.IntVar(&retentionPurgeDays, "purge-after", 0, "days in the archive before purging")
	f.IntVar(&retentionMinAccess, "min-access", 0, "reads that make a chunk immune")
	f.StringVar(&retentionProtectedTags, "protected-tags", "", "comma-separated tags that protect a chunk")
	f.BoolVar(&retentionAutoPurge, "auto-purge", false, "let the scheduler purge old archives")

	settingsCmd.AddCommand(settingsShowCmd, settingsWizardCmd, settingsModeCmd,
		settingsEmbeddingCmd, settingsAlphaCmd, settingsRetentionCmd)
	rootCmd.AddCommand(settingsCmd)
}

func requireSettings() error {
	if settingsService == nil {
		return errSettingsUnavailable
	}
	return nil
}

// settingsGroup is one bracketed block of "settings show".
type settingsGroup struct {
	name string
	rows [][2]string
}

func (g *settingsGroup) add(label, format string, args ...any) {
	g.rows = append(g.rows, [2]string{label, fmt.Sprintf(format, args...)})
}

func describeSettings(s *domain.AppSettings) []settingsGroup {
	search := settingsGroup{name: "Search"}
	search.add("Mode", "%s", s.Search.Mode.Description())
	search.add("Semantic weight", "%.2f", s.Search.Alpha)
	search.add("Include insights", "%t", s.Search.IncludeInsights)

	emb := s.Embedding
	embedding := settingsGroup{name: "Embedding"}
	embedding.add("Provider", "%s", emb.Provider.Description())
	if emb.Provider != domain.AIProviderNone {
		embedding.add("Model", "%s", emb.Model)
	}
	if emb.BaseURL != "" {
		embedding.add("Base URL", "%s", emb.BaseURL)
	}
	if emb.Provider.RequiresAPIKey() {
		key := "(not set)"
		if emb.APIKey != "" {
			key = maskAPIKey(emb.APIKey)
		}
		embedding.add("API Key", "%s", key)
	}
	if emb.IsConfigured() {
		embedding.add("Status", "configured")
	} else {
		embedding.add("Status", "not configured")
	}

	p := s.Retention.Policy
	retention := settingsGroup{name: "Retention"}
	retention.add("Archive after", "%d days", int(p.ArchiveAfter/domain.Day))
	retention.add("Purge after", "%d days", int(p.PurgeAfter/domain.Day))
	retention.add("Immune after", "%d reads", p.MinAccessForImmunity)
	retention.add("Protected tags", "%s", p.ProtectedTags.Join(", "))
	retention.add("Auto purge", "%t", s.Retention.AutoPurge)

	sched := settingsGroup{name: "Scheduler"}
	if s.Scheduler.Enabled {
		sched.add("Enabled", "yes")
		sched.add("Retention every", "%s", s.Scheduler.RetentionInterval)
		sched.add("Backfill every", "%s", s.Scheduler.BackfillInterval)
	} else {
		sched.add("Enabled", "no")
	}

	return []settingsGroup{search, embedding, retention, sched}
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}

	if jsonFlag {
		masked := *settings
		masked.Embedding.APIKey = maskAPIKey(masked.Embedding.APIKey)
		return printJSON(cmd, masked)
	}

	for _, g := range describeSettings(settings) {
		cmd.Printf("[%s]\n", g.name)
		for _, row := range g.rows {
			cmd.Printf("  %s: %s\n", row[0], row[1])
		}
		cmd.Println()
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'rlm settings wizard' to fix it.")
		return nil
	}
	cmd.Println("Configuration is valid.")
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	p := newPrompter(cmd)

	p.heading("Step 1: Search Mode")
	mode, err := pickSearchMode(p, 1)
	if err != nil {
		return err
	}
	cmd.Printf("Search mode: %s\n\n", mode.Description())

	if settingsService.RequiresEmbedding() {
		p.heading("Step 2: Embedding Provider")
		if err := pickEmbeddingProvider(p); err != nil {
			return err
		}
	} else {
		p.heading("Step 2: Embedding Provider (skipped)")
		cmd.Println("Keyword search needs no embeddings.")
	}

	cmd.Println()
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		return nil
	}
	cmd.Println("All settings are valid and saved.")
	return nil
}

// pickSearchMode asks for a mode and stores it. def is the 1-based default,
// 0 for none.
func pickSearchMode(p *prompter, def int) (domain.SearchMode, error) {
	modes := domain.AllSearchModes()
	labels := make([]string, len(modes))
	for i, m := range modes {
		labels[i] = m.Description()
	}
	i, ok := p.choose(labels, def)
	if !ok {
		return "", errors.New("invalid selection")
	}
	if err := settingsService.SetSearchMode(modes[i]); err != nil {
		return "", fmt.Errorf("setting search mode: %w", err)
	}
	return modes[i], nil
}

func runSettingsMode(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	p := newPrompter(cmd)
	p.heading("Search Mode")
	mode, err := pickSearchMode(p, 0)
	if err != nil {
		return err
	}
	cmd.Printf("Search mode set to: %s\n", mode.Description())

	if !mode.RequiresEmbedding() {
		return nil
	}
	if s, err := settingsService.Get(); err == nil && !s.Embedding.IsConfigured() {
		cmd.Println("\nNote: search falls back to keywords until an embedding provider is set.")
		cmd.Println("Run 'rlm settings embedding' to choose one.")
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	p := newPrompter(cmd)
	if embeddingProviderFlag == "" {
		return pickEmbeddingProvider(p)
	}

	provider := domain.AIProvider(embeddingProviderFlag)
	if !provider.IsValid() {
		return fmt.Errorf("unknown provider %q", embeddingProviderFlag)
	}
	var apiKey string
	if provider.RequiresAPIKey() {
		apiKey = p.secret("API key (empty keeps the stored key)")
	}
	return applyEmbeddingProvider(cmd, provider, embeddingModelFlag, apiKey, embeddingBaseURLFlag)
}

func pickEmbeddingProvider(p *prompter) error {
	providers := domain.AllEmbeddingProviders()
	labels := make([]string, len(providers))
	for i, pr := range providers {
		labels[i] = pr.Description()
	}
	i, _ := p.choose(labels, 1)
	provider := providers[i]
	if provider == domain.AIProviderNone {
		return applyEmbeddingProvider(p.cmd, provider, "", "", "")
	}

	model := p.line("Model", domain.DefaultEmbeddingModels()[provider])
	var apiKey string
	if provider.RequiresAPIKey() {
		if apiKey = p.secret("API key"); apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}
	return applyEmbeddingProvider(p.cmd, provider, model, apiKey, "")
}

// applyEmbeddingProvider stores the provider and pings it. A provider that
// does not answer is still saved so the user can fix the endpoint later.
func applyEmbeddingProvider(cmd *cobra.Command, provider domain.AIProvider, model, apiKey, baseURL string) error {
	if err := settingsService.SetEmbeddingProvider(provider, model, apiKey, baseURL); err != nil {
		return fmt.Errorf("setting embedding provider: %w", err)
	}
	if provider == domain.AIProviderNone {
		cmd.Println("Embeddings disabled; search uses keywords only.")
		return nil
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding provider unreachable: %w", err)
	}
	cmd.Println("OK")

	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}
	cmd.Printf("Embedding provider: %s (%s)\n", provider.Description(), model)
	cmd.Println("Run 'rlm backfill' to embed existing chunks.")
	return nil
}

func runSettingsAlpha(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	alpha, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid weight %q", args[0])
	}
	if err := settingsService.SetHybridAlpha(alpha); err != nil {
		return fmt.Errorf("setting semantic weight: %w", err)
	}
	cmd.Printf("Semantic weight set to %.2f\n", alpha)
	return nil
}

func runSettingsRetention(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}

	policy, autoPurge := settings.Retention.Policy, settings.Retention.AutoPurge
	changed := cmd.Flags().Changed
	if changed("archive-after") {
		policy.ArchiveAfter = time.Duration(retentionArchiveDays) * domain.Day
	}
	if changed("purge-after") {
		policy.PurgeAfter = time.Duration(retentionPurgeDays) * domain.Day
	}
	if changed("min-access") {
		policy.MinAccessForImmunity = retentionMinAccess
	}
	if changed("protected-tags") {
		policy.ProtectedTags = domain.ParseTagList(retentionProtectedTags)
	}
	if changed("auto-purge") {
		autoPurge = retentionAutoPurge
	}

	if err := settingsService.SetRetentionPolicy(policy, autoPurge); err != nil {
		return fmt.Errorf("setting retention policy: %w", err)
	}
	cmd.Println("Retention policy updated.")
	return nil
}
