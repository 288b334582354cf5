package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rlm/internal/adapters/driving/rest"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API",
	Long: `Serves search, chunks, insights and retention over HTTP as JSON.

Set RLM_API_KEY to require "Authorization: Bearer <key>" on every route
except /healthz.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:7070", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	server, err := rest.NewServer(&rest.Ports{
		Search:    searchService,
		Chunks:    chunkService,
		Insights:  insightService,
		Retention: retentionService,
	}, serveAddr, os.Getenv("RLM_API_KEY"))
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	stop := startScheduler(ctx)
	defer stop()

	cmd.Printf("REST API listening on http://%s\n", serveAddr)
	return server.Run(ctx)
}
