package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/nightaudit/internal/config"
	"github.com/ppiankov/nightaudit/internal/ui"
)

var (
	initBaseURL string
	initForce   bool
)

func init() {
	initCmd.Flags().StringVar(&initBaseURL, "base-url", "", "PMS API base URL to write (default http://localhost:8080)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default nightaudit configuration",
	Long: `Creates ~/.nightaudit/config.yaml (or --config) with default settings.

The token is read from NIGHTAUDIT_TOKEN unless api.token or api.token_env
is set in the file.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path := resolvedConfigPath()
	wrote, err := writeIfMissing(path)
	if err != nil {
		return err
	}
	if !wrote {
		fmt.Println(ui.WarnMsg("%s already exists, use --force to overwrite", path))
		return nil
	}
	fmt.Println(ui.SuccessMsg("Created %s", path))
	return nil
}

// writeIfMissing writes the default config to path if it doesn't exist or
// --force is set. Returns true if the file was written.
func writeIfMissing(path string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	c := config.Default()
	if initBaseURL != "" {
		c.API.BaseURL = initBaseURL
	}
	if err := c.Validate(); err != nil {
		return false, err
	}
	if err := config.Write(path, c); err != nil {
		return false, err
	}
	return true, nil
}
