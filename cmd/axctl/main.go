package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trunnion/axctl/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "axctl",
	Short: "axctl bootstraps an interactive shell on an Axis network camera",
	Long: `axctl installs a small application package on an Axis network camera over
its vendor HTTP API, which opens a mutually-authenticated TLS listener
running an interactive shell, then connects to it and forwards stdin/stdout.`,
	Version: Version,
	// main prints the returned error itself.
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("axctl version %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug-level internal logging on stderr")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress informational session records")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(appCmd)
}

func initLogging() {
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")

	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	log.Init(log.Config{Level: level})
}
