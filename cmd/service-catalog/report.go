package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritzau/service-catalog/pkg/analytics"
	"github.com/ritzau/service-catalog/pkg/graph"
	"github.com/ritzau/service-catalog/pkg/output"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print catalog analytics for the configured metadata",
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	loader, err := newLoader(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	now := time.Now()
	idx := graph.BuildAt(loader.Services(), now)

	status := loader.Status()
	title := fmt.Sprintf("Service catalog (%s, %d services)", status.Source, status.Count)
	if status.FetchError != "" {
		fmt.Fprintf(os.Stderr, "Warning: metadata fetch failed: %s\n", status.FetchError)
	}
	output.PrintSummary(os.Stdout, title, analytics.Summarize(idx, now, cfg.Top))
	return nil
}
