package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/nightaudit/internal/export"
	"github.com/ppiankov/nightaudit/internal/ui"
)

var exportOut string

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path (default nightaudit-<date>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the audit report for --date to an xlsx workbook",
	Long:  "Loads status and report for --date and writes Summary, Bookings, and Steps sheets.\nThe Steps sheet lists recorded runs from the history database when available.",
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext()
	defer cancel()

	v, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load audit: %w", err)
	}

	path := exportOut
	if path == "" {
		path = fmt.Sprintf("nightaudit-%s.xlsx", v.ProcessKey)
	}
	if err := export.Save(path, v, s.records(ctx, v.ProcessKey)); err != nil {
		return err
	}
	fmt.Println(ui.SuccessMsg("Report written to %s", path))
	return nil
}
