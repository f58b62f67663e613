package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/sonodraft/internal/mcptools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the ultrasound tools over MCP on stdio",
	Long: `Starts Chrome (or attaches to the configured one) and serves the ultrasound
tools over stdin/stdout. Logs go to stderr. The operator logs in and opens
pages in the browser window; the tools act on whatever the tab shows.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	ctx := cmd.Context()

	rt, err := openRuntime(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := mcp.NewServer(&mcp.Implementation{Name: "sonodraft", Version: version}, nil)
	mcptools.Register(srv, rt.sess)

	logger.Info("mcp: serving over stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}
