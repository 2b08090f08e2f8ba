package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/nightaudit/internal/history"
	"github.com/ppiankov/nightaudit/internal/model"
	"github.com/ppiankov/nightaudit/internal/ui"
)

var (
	historyLimit int
	historyJSON  bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of recent runs to show when --date is not set")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print records as JSON")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded step runs",
	Long:  "Reads the local SQLite step history. With --date, lists every run for that date in order; otherwise the most recent runs.",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.Journal.HistoryDB == "" {
		return errors.New("history is disabled: journal.history_db is empty")
	}
	store, err := history.Open(cfg.Journal.HistoryDB)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	var recs []model.StepRecord
	if auditDate != "" {
		key, err := processKey()
		if err != nil {
			return err
		}
		recs, err = store.List(ctx, key)
		if err != nil {
			return err
		}
	} else {
		recs, err = store.ListRecent(ctx, historyLimit)
		if err != nil {
			return err
		}
	}

	if historyJSON {
		out, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	if len(recs) == 0 {
		fmt.Println(ui.Muted("No step runs recorded."))
		return nil
	}
	fmt.Println(ui.Table(
		[]string{"Started", "Date", "Step", "Outcome", "Audit ID", "Duration", "Error"},
		historyRows(recs),
	))
	return nil
}

func historyRows(recs []model.StepRecord) [][]string {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{
			r.StartedAt.Local().Format(time.DateTime),
			string(r.ProcessKey),
			r.Step.Title(),
			string(r.Outcome),
			r.AuditID,
			r.Duration.Round(time.Millisecond).String(),
			r.Error,
		})
	}
	return rows
}
