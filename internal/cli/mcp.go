package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	namcp "github.com/ppiankov/nightaudit/internal/mcp"
)

var mcpWatch bool

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpWatch, "watch", true, "Reload ordering and no-show fee settings when the config file changes")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs nightaudit as an MCP (Model Context Protocol) server over stdio.\nExposes one audit session as tools: select, view, start, post_revenue, no_shows, close_day, abandon.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	srv, err := namcp.New(namcp.Config{
		Controller:      s.ctl,
		Version:         version,
		ChargeNoShowFee: cfg.Workflow.ChargeNoShowFee,
		Logger:          slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if mcpWatch {
		path := resolvedConfigPath()
		if _, err := os.Stat(path); err == nil {
			go func() {
				if err := srv.WatchConfig(ctx, path); err != nil {
					slog.Warn("config watch stopped", "path", path, "error", err)
				}
			}()
		} else if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("config watch disabled", "path", path, "error", err)
		}
	}

	fmt.Fprintln(os.Stderr, "nightaudit MCP server running on stdio")
	fmt.Fprintf(os.Stderr, "Session: %s\n\n", s.ctl.Session())
	return srv.Run(ctx)
}
