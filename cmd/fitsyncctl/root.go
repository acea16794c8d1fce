package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fitsync/config"
	"fitsync/internal/client"

	"github.com/spf13/cobra"
)

var (
	configPath string
	timeout    time.Duration
	api        *client.FitsyncAPI
)

var rootCmd = &cobra.Command{
	Use:   "fitsyncctl",
	Short: "Operate a fitsync server",
	Long: `fitsyncctl talks to a running fitsync server.

CONFIGURATION:

  Reads base_url and api_key from ~/.config/fitsync/cli.json:

  {"fitsync": {"base_url": "http://localhost:8080", "api_key": "..."}}

  FITSYNC_URL and FITSYNC_API_KEY override the file.

EXAMPLES:

  fitsyncctl providers             # Which providers are configured
  fitsyncctl connect fitbit        # Authorize Fitbit in the browser
  fitsyncctl sync                  # Sync every device for today
  fitsyncctl balance 2026-03-14    # Energy balance for a day`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		cfg, err := config.LoadCLIConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		api = client.NewFitsyncAPI(cfg.Fitsync.BaseURL, cfg.Fitsync.APIKey, 0, nil)
		return nil
	},
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "fitsync-cli.json"
	}
	return filepath.Join(dir, "fitsync", "cli.json")
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to CLI config file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout (connect waits up to 10m)")
}
