package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/nightaudit/internal/sandbox"
)

var (
	sandboxAddr    string
	sandboxToken   string
	sandboxRooms   int
	sandboxLatency time.Duration
)

func init() {
	sandboxCmd.Flags().StringVar(&sandboxAddr, "addr", "127.0.0.1:8080", "Listen address")
	sandboxCmd.Flags().StringVar(&sandboxToken, "token", "", "Require this bearer token on every request")
	sandboxCmd.Flags().IntVar(&sandboxRooms, "rooms", 40, "Total rooms in the property")
	sandboxCmd.Flags().DurationVar(&sandboxLatency, "latency", 0, "Artificial delay added to each step call")
	rootCmd.AddCommand(sandboxCmd)
}

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Run an in-memory PMS that serves the night audit API",
	Long:  "Serves the night audit endpoints from seeded bookings for demos and testing.\nState is per date and lost on exit.",
	RunE:  runSandbox,
}

func runSandbox(cmd *cobra.Command, args []string) error {
	srv := sandbox.New(sandbox.Config{
		Addr:       sandboxAddr,
		Token:      sandboxToken,
		TotalRooms: sandboxRooms,
		Latency:    sandboxLatency,
		Logger:     slog.Default(),
	})

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintf(os.Stderr, "nightaudit sandbox on http://%s\n", srv.Addr())
	return srv.Start(ctx)
}
