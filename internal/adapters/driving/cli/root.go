// Package cli implements the rlm command line interface with cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rlm/internal/core/domain"
	"github.com/custodia-labs/rlm/internal/core/ports/driving"
	"github.com/custodia-labs/rlm/internal/logger"
)

// version is set by SetVersion from the build.
var version = "dev"

// Services are the driving ports the commands call. Nil entries disable
// the commands that need them.
type Services struct {
	Search    driving.SearchService
	Chunks    driving.ChunkService
	Insights  driving.InsightService
	Retention driving.RetentionService
	Sessions  driving.SessionService
	Backfill  driving.BackfillService
	Settings  driving.SettingsService
	Scheduler driving.Scheduler

	SchedulerConfig domain.SchedulerConfig
}

// Options are the global flags handed to the bootstrap function.
type Options struct {
	Verbose   bool
	Ephemeral bool
}

// BootstrapFunc builds the services for one invocation. The returned
// function releases them.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, func() error, error)

var (
	searchService    driving.SearchService
	chunkService     driving.ChunkService
	insightService   driving.InsightService
	retentionService driving.RetentionService
	sessionService   driving.SessionService
	backfillService  driving.BackfillService
	settingsService  driving.SettingsService
	scheduler        driving.Scheduler
	schedulerConfig  domain.SchedulerConfig

	bootstrap BootstrapFunc
	release   func() error
)

var (
	verboseFlag   bool
	jsonFlag      bool
	ephemeralFlag bool
)

// annotationNoServices marks commands that run without opening the store.
const annotationNoServices = "rlm/no-services"

var rootCmd = &cobra.Command{
	Use:   "rlm",
	Short: "Persistent memory and retrieval for LLM agents",
	Long: `rlm stores conversation context as chunks on disk, finds it again with
keyword and semantic search, and keeps the store small by archiving and
purging chunks nobody reads.

Data lives in ~/.rlm unless RLM_HOME is set. RLM_LOG=debug|info|warn|error
sets the stderr log level when --verbose is not given.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "print debug logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output results as JSON")
	rootCmd.PersistentFlags().BoolVar(&ephemeralFlag, "ephemeral", false, "keep everything in memory for this run")
}

// SetServices installs the services directly, bypassing the bootstrap.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	searchService = s.Search
	chunkService = s.Chunks
	insightService = s.Insights
	retentionService = s.Retention
	sessionService = s.Sessions
	backfillService = s.Backfill
	settingsService = s.Settings
	scheduler = s.Scheduler
	schedulerConfig = s.SchedulerConfig
}

// SetBootstrap sets the function that builds services before a command runs.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command. Command output goes to stdout.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	err := rootCmd.ExecuteContext(ctx)
	if cerr := teardown(); err == nil {
		err = cerr
	}
	return err
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verboseFlag)
	if !verboseFlag {
		if err := logger.LevelFromEnv(); err != nil {
			return err
		}
	}

	if bootstrap == nil || cmd.Annotations[annotationNoServices] == "true" {
		return nil
	}
	services, closeFn, err := bootstrap(cmd.Context(), Options{
		Verbose:   verboseFlag,
		Ephemeral: ephemeralFlag,
	})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	SetServices(services)
	release = closeFn
	return nil
}

func teardown() error {
	if release == nil {
		return nil
	}
	fn := release
	release = nil
	return fn()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Sentinel errors for commands whose service is unavailable.
var (
	errSearchUnavailable    = errors.New("search service not configured")
	errChunkUnavailable     = errors.New("chunk service not configured")
	errInsightUnavailable   = errors.New("insight service not configured")
	errRetentionUnavailable = errors.New("retention service not configured")
	errSessionUnavailable   = errors.New("session service not configured")
	errBackfillUnavailable  = errors.New("no embedding provider configured; run 'rlm settings embedding'")
	errSettingsUnavailable  = errors.New("settings service not configured")
	errSchedulerUnavailable = errors.New("scheduler not configured")
)
