package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ritzau/service-catalog/pkg/config"
	"github.com/ritzau/service-catalog/pkg/logging"
	"github.com/ritzau/service-catalog/pkg/source"
)

var rootCmd = &cobra.Command{
	Use:           "service-catalog",
	Short:         "Serve and analyze a catalog of services and their dependencies",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("config", config.DefaultFile, "Path to a TOML config file")
	f.String("metadata-file", "", "Metadata JSON or YAML file to load instead of the bundled data")
	f.String("metadata-url", "", "URL to fetch metadata from at startup and on refresh")
	f.Duration("fetch-timeout", source.DefaultTimeout, "Timeout for metadata fetches")
	f.String("verbosity", "", "Log level (trace, debug, info, warn, error)")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.String("log-format", "text", "Log format (text or json)")
	f.Int("top", 5, "Entries per analytics list")

	rootCmd.AddCommand(serveCmd, reportCmd)
}

// loadConfig reads the merged configuration and applies its logging settings.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	logging.Configure(os.Stderr, level, cfg.LogFormat == "json")
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
