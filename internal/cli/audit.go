package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/nightaudit/internal/audit"
)

var (
	tailLines   int
	tailSession string
	tailSince   time.Duration
	tailJSON    bool
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent entries to show")
	auditTailCmd.Flags().StringVar(&tailSession, "session", "", "Only entries from this controller session")
	auditTailCmd.Flags().DurationVar(&tailSince, "since", 0, "Only entries newer than this (e.g. 24h)")
	auditTailCmd.Flags().BoolVar(&tailJSON, "json", false, "Print entries as JSON")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for verifying and inspecting the hash-chained step log.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify hash chain integrity of the audit log",
	Long:  "Walks the JSONL audit log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail [path]",
	Short: "Show recent audit log entries",
	Long:  "Reads the last N entries from the JSONL audit log as a timeline.\nWith --date, only entries for that audit date.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditTail,
}

// auditLogPath returns the explicit path argument or the configured log.
func auditLogPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if cfg.Journal.AuditLog == "" {
		return "", errors.New("no audit log path: pass one or set journal.audit_log")
	}
	return cfg.Journal.AuditLog, nil
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	path, err := auditLogPath(args)
	if err != nil {
		return err
	}
	result := audit.Verify(path)
	if result.Valid {
		fmt.Printf("OK: %d entries verified\n", result.Lines)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	os.Exit(1)
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	path, err := auditLogPath(args)
	if err != nil {
		return err
	}
	filter := audit.Filter{Session: tailSession, Limit: tailLines}
	if auditDate != "" {
		key, err := processKey()
		if err != nil {
			return err
		}
		filter.ProcessKey = string(key)
	}
	if tailSince > 0 {
		filter.From = time.Now().Add(-tailSince)
	}

	result, err := audit.Read(path, filter)
	if err != nil {
		return err
	}
	if tailJSON {
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}
	fmt.Print(audit.FormatTimeline(result))
	return nil
}
