// Command pnl is the options day P&L attribution journal.
package main

import (
	"os"

	"github.com/fatih/color"

	"pnl-attribution/internal/cli"
	"pnl-attribution/internal/logging"
)

func main() {
	rootCmd := cli.NewRootCmd(nil, logging.NewLogger())
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
