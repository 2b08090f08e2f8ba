package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/nightaudit/internal/config"
	"github.com/ppiankov/nightaudit/internal/logging"
	"github.com/ppiankov/nightaudit/internal/model"
	"github.com/ppiankov/nightaudit/internal/ui"
)

var (
	configPath string
	logLevel   string
	auditDate  string
	traceSpans bool
	noColor    bool

	// cfg is loaded once in PersistentPreRunE.
	cfg *config.Config
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to config YAML (default ~/.nightaudit/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&auditDate, "date", "", "Audit date YYYY-MM-DD (default today)")
	pf.BoolVar(&traceSpans, "trace", false, "Log OpenTelemetry spans for each step and refresh")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
}

var rootCmd = &cobra.Command{
	Use:          "nightaudit",
	Short:        "Hotel night audit workflow controller",
	Long:         "Drives the night audit of a property management system: start, post room revenue, process no-shows, close the day.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.ConfigureColor(noColor)

		loaded, err := config.Load(resolvedConfigPath())
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if err := logging.Configure(loaded.LogLevel, loaded.LogFormat); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// processKey returns the --date key, or today's.
func processKey() (model.ProcessKey, error) {
	if auditDate == "" {
		return model.Today(), nil
	}
	return model.ParseProcessKey(auditDate)
}
