package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rlm/internal/adapters/driving/mcp"
)

var (
	mcpPort int
	mcpHost string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rlm tools to an MCP client",
	Long: `Serves chunk, search, insight and retention tools to an AI assistant.

JSON-RPC runs over stdin/stdout unless --port is given, in which case the
streamable HTTP transport listens on --host:--port. Logs always go to
stderr.

A client entry for stdio mode:

  {"mcpServers": {"rlm": {"command": "rlm", "args": ["mcp", "serve"]}}}`,
	Example: `  rlm mcp serve
  rlm mcp serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "serve HTTP on this port instead of stdio")
	mcpServeCmd.Flags().StringVar(&mcpHost, "host", "127.0.0.1", "HTTP bind address")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if mcpPort < 0 || mcpPort > 65535 {
		return fmt.Errorf("invalid port %d", mcpPort)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Search:    searchService,
		Chunks:    chunkService,
		Insights:  insightService,
		Retention: retentionService,
		Sessions:  sessionService,
	})
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	stop := startScheduler(ctx)
	defer stop()

	if mcpPort == 0 {
		return server.Run(ctx)
	}
	addr := net.JoinHostPort(mcpHost, strconv.Itoa(mcpPort))
	cmd.Printf("MCP server listening on http://%s\n", addr)
	return server.RunHTTP(ctx, addr)
}
