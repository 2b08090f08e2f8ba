package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/nightaudit/internal/ui"
)

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the session view as JSON")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show audit status, report, and step checklist for --date",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext()
	defer cancel()

	v, loadErr := s.load(ctx)
	if loadErr == nil || v.ProcessKey != "" {
		if statusJSON {
			out, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		} else {
			fmt.Print(ui.RenderView(v))
		}
	}
	if loadErr != nil {
		return fmt.Errorf("failed to load audit: %w", loadErr)
	}
	return nil
}
