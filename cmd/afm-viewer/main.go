/*
Package main is the entry point for the afm-viewer CLI.

afm-viewer browses AFM measurement catalogs. The selected tool's catalog
is loaded once and searched locally; viewed measurements and groups are
remembered per tool.

Usage:
  afm-viewer [command]

Available Commands:
  search      Search the selected tool's catalog
  browse      Browse the catalog interactively
  detail      Show one measurement
  profile     Show the surface profile of a measurement point
  wafer       Show the wafer map of a measurement
  export      Export measurements as CSV
  history     Show recently viewed measurements
  group       Manage the current group and saved snapshots
  tools       List AFM tools and select one
  activity    Show recent activity
  serve       Run a local AFM catalog service from fixture files
  config      Create and inspect the configuration file
  version     Show version information

Examples:
  # Serve generated data and search it
  afm-viewer serve --generate 200 &
  afm-viewer search LOT

  # Open the interactive browser on another tool
  afm-viewer browse --tool MAPC01
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/khanglvm/afm-viewer/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
