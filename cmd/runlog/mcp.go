// ABOUTME: CLI command for starting MCP server.
// ABOUTME: Runs stdio-based MCP server for Claude integration.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/runlog/internal/logging"
	"github.com/harperreed/runlog/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

MCP allows AI assistants like Claude to log runs and read your running
analytics through a standardized protocol. The server communicates via
stdin/stdout; logs go to stderr.

CLAUDE DESKTOP CONFIGURATION:

  Add this to your Claude Desktop config (claude_desktop_config.json):

  {
    "mcpServers": {
      "runlog": {
        "command": "runlog",
        "args": ["mcp"]
      }
    }
  }

  On macOS, the config is at:
    ~/Library/Application Support/Claude/claude_desktop_config.json

AVAILABLE TOOLS:

  add_run            Log a run
  list_runs          List recent runs
  get_run            Get one run by ID
  delete_run         Delete a run
  get_stats          Totals for a period or date range
  get_month_report   Month report with weekly buckets and goal progress
  get_year_report    Year report with monthly buckets
  compare_weeks      This week against last week
  get_records        Personal records
  get_streak         Current and longest streak
  predict_races      Race time predictions
  get_zones          Heart rate zone distribution
  get_dashboard      Everything at once
  add_shoe           Add a shoe
  list_shoes         Shoes by mileage
  set_goal           Set a monthly goal

AVAILABLE RESOURCES:

  runlog://recent     The 10 most recent runs
  runlog://summary    The dashboard`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(trk, userID, logging.Default(cfg.GetLogLevel()))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Handle shutdown signals
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			cancel()
		}()

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
